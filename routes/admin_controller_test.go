package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/surveyforge/surveyforge/model"
)

func TestCreateSurveyInsertsOrderedQuestions(t *testing.T) {
	app := newTestApp(t)
	handler := Wire(app)
	cookie := login(t, handler)

	form := url.Values{
		"survey_title":  {"Team lunch"},
		"survey_descr":  {"Weekly poll"},
		"num_questions": {"3"},

		"inp0title": {"Any comments?"},
		"type0":     {"TEXT"},

		"inp1title":   {"Pick a cuisine"},
		"type1":       {"RADIO"},
		"inp1options": {"Italian;Thai;Mexican"},

		"inp2title": {"How hungry are you?"},
		"type2":     {"INTEGER_RANGE"},
		"inp2lb":    {"1"},
		"inp2ub":    {"5"},
	}
	w := postForm(t, handler, "/s/new", form, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", w.Code, readBody(t, w))
	}

	rows, err := app.Query(`
		SELECT position, title, type, COALESCE(params, '')
		FROM question
		ORDER BY position`)
	if err != nil {
		t.Fatalf("query questions: %v", err)
	}
	defer rows.Close()

	type row struct {
		position int
		title    string
		qtype    string
		params   string
	}
	var got []row
	for rows.Next() {
		var q row
		if err := rows.Scan(&q.position, &q.title, &q.qtype, &q.params); err != nil {
			t.Fatalf("scan question: %v", err)
		}
		got = append(got, q)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 question rows, got %d", len(got))
	}
	for i, q := range got {
		if q.position != i {
			t.Errorf("question %d: expected position %d, got %d", i, i, q.position)
		}
	}
	if got[0].title != "Any comments?" || got[0].qtype != "TEXT" || got[0].params != "" {
		t.Errorf("unexpected TEXT question row: %+v", got[0])
	}
	if got[1].qtype != "RADIO" || !strings.Contains(got[1].params, `"Thai"`) {
		t.Errorf("unexpected RADIO question row: %+v", got[1])
	}
	if got[2].qtype != "INTEGER_RANGE" || !strings.Contains(got[2].params, `"lb":1`) {
		t.Errorf("unexpected INTEGER_RANGE question row: %+v", got[2])
	}
}

func TestCreateSurveyMissingQuestionCount(t *testing.T) {
	app := newTestApp(t)
	handler := Wire(app)
	cookie := login(t, handler)

	form := url.Values{
		"survey_title": {"Broken form"},
	}
	w := postForm(t, handler, "/s/new", form, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var surveyCount int
	err := app.QueryRow("SELECT COUNT(*) FROM survey").Scan(&surveyCount)
	if err != nil {
		t.Fatalf("count surveys: %v", err)
	}
	if surveyCount != 0 {
		t.Errorf("expected no survey rows, got %d", surveyCount)
	}
}

func TestFetchResultsEmptySurvey(t *testing.T) {
	app := newTestApp(t)

	surveyID, questionIDs := insertSurvey(t, app, "Unanswered",
		model.Question{Title: "First", Type: model.TypeText},
		model.Question{Title: "Second", Type: model.TypeText},
	)

	results, err := fetchResults(context.Background(), app.DB, surveyID)
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}

	if len(results.Sets) != 0 {
		t.Errorf("expected no response sets, got %d", len(results.Sets))
	}
	if len(results.Questions) != 2 {
		t.Fatalf("expected 2 question columns, got %d", len(results.Questions))
	}
	for i, q := range results.Questions {
		if q.ID != questionIDs[i] {
			t.Errorf("question column %d: expected id %d, got %d", i, questionIDs[i], q.ID)
		}
	}
}

// A response set that answered questions of two surveys must contribute
// only the target survey's answers to that survey's results.
func TestFetchResultsIsSurveyScoped(t *testing.T) {
	app := newTestApp(t)

	surveyID, questionIDs := insertSurvey(t, app, "Mine",
		model.Question{Title: "Q1", Type: model.TypeText},
	)
	_, otherIDs := insertSurvey(t, app, "Theirs",
		model.Question{Title: "Q1", Type: model.TypeText},
	)

	// one response set spanning both surveys, seeded directly
	_, err := app.Exec("UPDATE last_response_set SET id = 1")
	if err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	for _, qid := range []int{questionIDs[0], otherIDs[0]} {
		_, err = app.Exec(
			"INSERT INTO answer (question_id, response_set, value) VALUES (?, 1, ?)",
			qid, fmt.Sprintf("answer to %d", qid))
		if err != nil {
			t.Fatalf("seed answer: %v", err)
		}
	}

	results, err := fetchResults(context.Background(), app.DB, surveyID)
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}

	if len(results.Sets) != 1 {
		t.Fatalf("expected 1 response set, got %d", len(results.Sets))
	}
	answers := results.Sets[0].Answers
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer in set, got %d: %v", len(answers), answers)
	}
	if _, leaked := answers[otherIDs[0]]; leaked {
		t.Error("answer to another survey's question leaked into results")
	}
}

func TestSurveyResultsPage(t *testing.T) {
	app := newTestApp(t)
	handler := Wire(app)
	cookie := login(t, handler)

	surveyID, questionIDs := insertSurvey(t, app, "Tasting",
		model.Question{Title: "Verdict", Type: model.TypeText},
	)
	form := url.Values{strconv.Itoa(questionIDs[0]): {"delicious"}}
	postForm(t, handler, fmt.Sprintf("/s/%d/submit", surveyID), form, nil)

	w := get(t, handler, fmt.Sprintf("/results/%d", surveyID), cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := readBody(t, w)
	if !strings.Contains(body, "Verdict") || !strings.Contains(body, "delicious") {
		t.Error("results table missing question title or answer")
	}
}

func TestDownloadResultsShape(t *testing.T) {
	app := newTestApp(t)
	handler := Wire(app)
	cookie := login(t, handler)

	surveyID, questionIDs := insertSurvey(t, app, "Tasting",
		model.Question{Title: "Q1", Type: model.TypeText},
		model.Question{Title: "Q2", Type: model.TypeText},
	)

	form := url.Values{
		strconv.Itoa(questionIDs[0]): {"only the first"},
	}
	w := postForm(t, handler, fmt.Sprintf("/s/%d/submit", surveyID), form, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("submit: expected status 303, got %d", w.Code)
	}

	w = get(t, handler, fmt.Sprintf("/download/%d", surveyID), cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if disposition := w.Header().Get("Content-Disposition"); !strings.Contains(disposition, "attachment") {
		t.Errorf("expected attachment disposition, got %q", disposition)
	}

	var export struct {
		Questions map[string]string   `json:"questions"`
		Responses []map[string]string `json:"responses"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &export)
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}

	if len(export.Questions) != len(questionIDs) {
		t.Fatalf("expected %d questions in export, got %d", len(questionIDs), len(export.Questions))
	}
	for _, qid := range questionIDs {
		if _, ok := export.Questions[strconv.Itoa(qid)]; !ok {
			t.Errorf("question %d missing from export lookup table", qid)
		}
	}

	if len(export.Responses) != 1 {
		t.Fatalf("expected 1 response entry, got %d", len(export.Responses))
	}
	entry := export.Responses[0]
	if len(entry) != 1 {
		t.Fatalf("expected 1 answered key, got %d: %v", len(entry), entry)
	}
	if entry[strconv.Itoa(questionIDs[0])] != "only the first" {
		t.Errorf("unexpected answer in export: %v", entry)
	}
}

func TestDownloadUnknownSurvey(t *testing.T) {
	app := newTestApp(t)
	handler := Wire(app)
	cookie := login(t, handler)

	w := get(t, handler, "/download/999", cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
