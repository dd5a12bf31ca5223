package rest

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/view"
)

//go:embed templates/*.html
var templates embed.FS

type gameUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error)
	PlayMove(ctx context.Context, sessionID string, cell int) (*entity.Session, error)
	JumpTo(ctx context.Context, sessionID string, index int) (*entity.Session, error)
	ToggleOrder(ctx context.Context, sessionID string) (*entity.Session, error)
	Reset(ctx context.Context, sessionID string) (*entity.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

// action applies one gesture to the session. It may return a rejection
// error together with the unchanged session.
type action func(ctx context.Context, sessionID string, r *http.Request) (*entity.Session, error)

type errorResponse struct {
	Error string `json:"error"`
}

type Handlers struct {
	logger     *slog.Logger
	game       gameUseCase
	sessionTTL time.Duration
	page       *template.Template
}

func NewHandlers(logger *slog.Logger, game gameUseCase, sessionTTL time.Duration) *Handlers {
	return &Handlers{
		logger:     logger.With("component", "rest"),
		game:       game,
		sessionTTL: sessionTTL,
		page:       template.Must(template.ParseFS(templates, "templates/*.html")),
	}
}

func (that *Handlers) Register(router chi.Router) {
	router.Get("/", that.Page)
	router.Post("/play/{cell}", that.form(that.playMove))
	router.Post("/jump/{index}", that.form(that.jumpTo))
	router.Post("/order", that.form(that.toggleOrder))
	router.Post("/reset", that.form(that.reset))
	router.Post("/session/end", that.EndSession)

	router.Route("/api", func(api chi.Router) {
		api.Get("/state", that.State)
		api.Post("/play/{cell}", that.api(that.playMove))
		api.Post("/jump/{index}", that.api(that.jumpTo))
		api.Post("/order", that.api(that.toggleOrder))
		api.Post("/reset", that.api(that.reset))
	})
}

// Page - renders the board, status and move list of the caller's session.
func (that *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Page")

	session, err := that.game.GetOrCreateSession(r.Context(), pkg.SessionIDFromRequest(r))
	if err != nil {
		log.Error("failed to get session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err = that.page.ExecuteTemplate(&buf, "game.html", view.New(session.Game)); err != nil {
		log.Error("failed to render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	pkg.SetSessionCookie(w, session.ID, that.sessionTTL)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err = buf.WriteTo(w); err != nil {
		log.Error("failed to write page", "error", err)
	}
}

// State - returns the view of the caller's session as JSON.
func (that *Handlers) State(w http.ResponseWriter, r *http.Request) {
	session, err := that.game.GetOrCreateSession(r.Context(), pkg.SessionIDFromRequest(r))
	if err != nil {
		that.logger.Error("failed to get session", "method", "State", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get session"})
		return
	}

	pkg.SetSessionCookie(w, session.ID, that.sessionTTL)
	writeJSON(w, http.StatusOK, view.New(session.Game))
}

func (that *Handlers) EndSession(w http.ResponseWriter, r *http.Request) {
	if sessionID := pkg.SessionIDFromRequest(r); sessionID != "" {
		if err := that.game.EndSession(r.Context(), sessionID); err != nil {
			that.logger.Error("failed to end session", "method", "EndSession", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	pkg.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (that *Handlers) playMove(ctx context.Context, sessionID string, r *http.Request) (*entity.Session, error) {
	cell, err := intParam(r, "cell")
	if err != nil {
		return nil, err
	}

	return that.game.PlayMove(ctx, sessionID, cell)
}

func (that *Handlers) jumpTo(ctx context.Context, sessionID string, r *http.Request) (*entity.Session, error) {
	index, err := intParam(r, "index")
	if err != nil {
		return nil, err
	}

	return that.game.JumpTo(ctx, sessionID, index)
}

func (that *Handlers) toggleOrder(ctx context.Context, sessionID string, _ *http.Request) (*entity.Session, error) {
	return that.game.ToggleOrder(ctx, sessionID)
}

func (that *Handlers) reset(ctx context.Context, sessionID string, _ *http.Request) (*entity.Session, error) {
	return that.game.Reset(ctx, sessionID)
}

// form - runs the action for an HTML form post and sends the browser back to the page.
func (that *Handlers) form(do action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, status, err := that.run(r, do)
		if err != nil {
			http.Error(w, http.StatusText(status), status)
			return
		}

		pkg.SetSessionCookie(w, session.ID, that.sessionTTL)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// api - runs the action and answers with the resulting view.
func (that *Handlers) api(do action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, status, err := that.run(r, do)
		if err != nil {
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		pkg.SetSessionCookie(w, session.ID, that.sessionTTL)
		writeJSON(w, http.StatusOK, view.New(session.Game))
	}
}

// run - applies the action. Rejected moves and jumps are not errors for the
// caller: the unchanged session is returned.
func (that *Handlers) run(r *http.Request, do action) (*entity.Session, int, error) {
	log := that.logger.With("method", "run", "path", r.URL.Path)

	session, err := do(r.Context(), pkg.SessionIDFromRequest(r), r)

	switch {
	case err == nil:
		return session, http.StatusOK, nil
	case usecase.IsRejected(err):
		log.Debug("request ignored", "error", err)
		return session, http.StatusOK, nil
	case isBadParam(err):
		return nil, http.StatusBadRequest, err
	default:
		log.Error("failed to handle request", "error", err)
		return nil, http.StatusInternalServerError, errInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func intParam(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, &badParamError{name: name, value: chi.URLParam(r, name)}
	}

	return value, nil
}
