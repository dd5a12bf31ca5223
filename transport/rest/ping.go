package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Ping answers liveness probes.
type Ping struct{}

func NewPing() *Ping {
	return &Ping{}
}

func (that *Ping) Register(router chi.Router) {
	router.Get("/ping", that.PingHandler)
}

func (that *Ping) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}
