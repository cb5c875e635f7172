package route

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ClientCtxKeyType string

const (
	ClientCtxKey         ClientCtxKeyType = "client-id"
	ClientIDCookieName   string           = "client-id"
	clientIDCookieMaxAge int              = 400 * 24 * 60 * 60
)

// ClientMiddleware identifies the browser by its client-id cookie, issuing a
// new one when it is missing or malformed. Preferences are scoped to it.
func ClientMiddleware(next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := func() string {
			cookie, err := r.Cookie(ClientIDCookieName)
			if err != nil {
				return ""
			}
			id, err := uuid.Parse(strings.TrimSpace(cookie.Value))
			if err != nil {
				return ""
			}
			return id.String()
		}()
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ClientIDCookieName,
				Value:    clientID,
				Path:     "/",
				MaxAge:   clientIDCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ClientCtxKey, clientID)
		next(w, r.WithContext(ctx))
	}
}

// ClientID returns the id set by ClientMiddleware.
func ClientID(r *http.Request) string {
	clientID, _ := r.Context().Value(ClientCtxKey).(string)
	return clientID
}
