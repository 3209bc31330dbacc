package routes

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/surveyforge/surveyforge/app"
	"github.com/surveyforge/surveyforge/httpx"
	"github.com/surveyforge/surveyforge/log"
	"github.com/surveyforge/surveyforge/routes/middlewares"
	"github.com/surveyforge/surveyforge/views"
)

func ShowLogin(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, "admin_login.html", struct{ Failed bool }{r.URL.Query().Has("failed")})
	}
}

// Login checks the submitted password against the stored hash by driving the
// bearer server through a password grant, then stores the resulting token in
// the session cookie.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			httpx.WriteError(w, "login.parse_form", httpx.ValidationError{Field: "pass", Reason: "malformed form body"})
			return
		}
		pass := r.PostForm.Get("pass")
		if pass == "" {
			httpx.WriteError(w, "login.pass", httpx.ValidationError{Field: "pass", Reason: "missing"})
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {httpx.AdminUser},
			"password":   {pass},
		}
		req, err := http.NewRequest("POST", "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogInternalError(w, "login.new_request", err)
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		if resp.Status() != http.StatusOK {
			log.Debug("login.check: wrong password")
			http.Redirect(w, r, "/login?failed=1", http.StatusSeeOther)
			return
		}

		var token struct {
			AccessToken string  `json:"access_token"`
			ExpiresIn   float64 `json:"expires_in"`
		}
		err = json.Unmarshal(resp.Body(), &token)
		if err != nil {
			httpx.LogInternalError(w, "login.parse_token", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     middlewares.SessionCookie,
			Value:    token.AccessToken,
			MaxAge:   int(token.ExpiresIn),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// there is only one administrator: drop every server-side session
		_, err := app.ExecContext(r.Context(), "DELETE FROM session")
		if err != nil {
			httpx.WriteError(w, "logout.clear_sessions", httpx.StorageError{Op: "session.delete", Err: err})
			return
		}

		http.SetCookie(w, &http.Cookie{
			Path:   "/",
			Name:   middlewares.SessionCookie,
			Value:  "",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
