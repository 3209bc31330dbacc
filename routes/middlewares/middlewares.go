package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/surveyforge/surveyforge/httpx"
	"github.com/surveyforge/surveyforge/log"
)

// SessionCookie carries the admin's opaque session token.
const SessionCookie = "admin_session"

// Admin middleware to check for the 'admin' role in the session token.
func Admin(tokenSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(tokenSecret, nil), admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isAdmin := false
		if rolesClaim, ok := claims["roles"]; ok {
			roles := strings.Split(rolesClaim, ",")
			for _, role := range roles {
				if role == "admin" {
					isAdmin = true
					break
				}
			}
		}

		if !isAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CookieAuth maps the session cookie onto the Authorization header expected
// by the token authorizer, and turns its 401/403 responses into redirects
// to the login page, which is what a browser flow wants.
func CookieAuth() func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loginLocation := "/login?goto=" + url.QueryEscape(r.RequestURI)

			token, err := r.Cookie(SessionCookie)
			if err != nil {
				// no session at all
				http.Redirect(w, r, loginLocation, http.StatusSeeOther)
				return
			}

			r.Header.Set("authorization", "Bearer "+token.Value)

			buf := httpx.NewResponseBuffer()
			h.ServeHTTP(buf, r)

			if buf.Status() == http.StatusUnauthorized || buf.Status() == http.StatusForbidden {
				// stale or forged token: drop it and ask for a fresh login
				http.SetCookie(w, &http.Cookie{
					Path:   "/",
					Name:   SessionCookie,
					Value:  "",
					MaxAge: -1,
				})
				http.Redirect(w, r, loginLocation, http.StatusSeeOther)
				return
			}

			err = buf.Flush(w)
			if err != nil {
				// headers are already out, can only log
				log.Errorf("cookie_auth.flush: %s", err)
			}
		})
	}
}
