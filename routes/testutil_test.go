package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/surveyforge/surveyforge/app"
	"github.com/surveyforge/surveyforge/config"
	"github.com/surveyforge/surveyforge/database"
	"github.com/surveyforge/surveyforge/httpx"
	"github.com/surveyforge/surveyforge/model"
	"github.com/surveyforge/surveyforge/routes/middlewares"
)

const testPassword = "hunter2"

// newTestApp builds an App over a fresh migrated SQLite file and a password
// hash file, both in a per-test temp dir.
func newTestApp(t *testing.T) app.App {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Config{
		Addr:        "127.0.0.1:0",
		DBPath:      filepath.Join(dir, "survey.sqlite"),
		PasswdFile:  filepath.Join(dir, "passwd"),
		TokenSecret: "test-secret",
		SessionTTL:  time.Hour,
	}

	err := httpx.WritePasswordHash(cfg.PasswdFile, testPassword)
	if err != nil {
		t.Fatalf("write password hash: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}
}

func get(t *testing.T, handler http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// login performs the form login flow and returns the issued session cookie.
func login(t *testing.T, handler http.Handler) *http.Cookie {
	t.Helper()

	w := postForm(t, handler, "/login", url.Values{"pass": {testPassword}}, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login: expected status %d, got %d", http.StatusSeeOther, w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatal("login: no session cookie issued")
	return nil
}

// insertSurvey seeds a survey and its questions directly through SQL and
// returns the survey id plus the question ids in position order.
func insertSurvey(t *testing.T, app app.App, title string, questions ...model.Question) (surveyID int, questionIDs []int) {
	t.Helper()

	err := app.QueryRow(`
		INSERT INTO survey (title, description) VALUES (?, ?)
		RETURNING id`,
		title, "",
	).Scan(&surveyID)
	if err != nil {
		t.Fatalf("insert survey: %v", err)
	}

	for i, q := range questions {
		params, err := q.MarshalParams()
		if err != nil {
			t.Fatalf("marshal question params: %v", err)
		}
		var paramsCol any
		if params != "" {
			paramsCol = params
		}

		var qid int
		err = app.QueryRow(`
			INSERT INTO question (survey_id, position, title, description, type, params)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			surveyID, i, q.Title, q.Description, string(q.Type), paramsCol,
		).Scan(&qid)
		if err != nil {
			t.Fatalf("insert question: %v", err)
		}
		questionIDs = append(questionIDs, qid)
	}
	return
}

func readBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return string(body)
}
