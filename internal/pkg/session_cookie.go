package pkg

import (
	"net/http"
	"time"
)

const SessionCookieName = "user_session"

// SessionIDFromRequest - returns the session id carried by the request, or "".
func SessionIDFromRequest(req *http.Request) string {
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// SetSessionCookie - issues the session cookie. Its expiry follows the session ttl
// and slides forward with every response.
func SetSessionCookie(writer http.ResponseWriter, id string, ttl time.Duration) {
	http.SetCookie(writer, NewSessionCookie(id, ttl))
}

// NewSessionCookie - builds the session cookie, for responses that are not written
// through a ResponseWriter such as a websocket handshake.
func NewSessionCookie(id string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	}

	return cookie
}

func ClearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
