package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/surveyforge/surveyforge/app"
	"github.com/surveyforge/surveyforge/httpx"
	"github.com/surveyforge/surveyforge/log"
	"github.com/surveyforge/surveyforge/model"
	"github.com/surveyforge/surveyforge/views"
)

func AdminPanel(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, "admin.html", nil)
	}
}

func NewSurveyForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, "new_survey.html", nil)
	}
}

// CreateSurvey turns the survey builder form into one survey row plus one
// question row per declared question, positions 0..N-1 in submitted order,
// all in a single transaction.
func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			httpx.WriteError(w, "new_survey.parse_form", httpx.ValidationError{Field: "form", Reason: "malformed form body"})
			return
		}

		survey, err := parseSurveyForm(r.PostForm)
		if err != nil {
			httpx.WriteError(w, "new_survey.parse", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.WriteError(w, "new_survey.begin_tx", httpx.StorageError{Op: "tx.begin", Err: err})
			return
		}
		defer tx.Rollback()

		var surveyID int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO survey (title, description) VALUES (?, ?)
			RETURNING id`,
			survey.Title,
			survey.Description,
		).Scan(&surveyID)
		if err != nil {
			httpx.WriteError(w, "new_survey.insert", httpx.StorageError{Op: "survey.insert", Err: err})
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO question (survey_id, position, title, description, type, params)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			httpx.WriteError(w, "new_survey.questions.prepare", httpx.StorageError{Op: "question.prepare", Err: err})
			return
		}
		defer stmt.Close()

		for i, q := range survey.Questions {
			params, err := q.MarshalParams()
			if err != nil {
				httpx.WriteError(w, "new_survey.questions.params", httpx.StorageError{Op: "question.params", Err: err})
				return
			}
			var paramsCol any
			if params != "" {
				paramsCol = params
			}

			_, err = stmt.ExecContext(r.Context(), surveyID, i, q.Title, q.Description, string(q.Type), paramsCol)
			if err != nil {
				httpx.WriteError(w, "new_survey.questions.insert", httpx.StorageError{Op: "question.insert", Err: err})
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.WriteError(w, "new_survey.commit", httpx.StorageError{Op: "tx.commit", Err: err})
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func ResultsList(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := fetchSurveys(r.Context(), app.DB)
		if err != nil {
			httpx.WriteError(w, "results.surveys", err)
			return
		}

		views.Render(w, "results_list.html", struct{ Surveys []model.Survey }{surveys})
	}
}

func SurveyResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := strconv.Atoi(chi.URLParam(r, "surveyID"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.surveyID")
			return
		}

		results, err := fetchResults(r.Context(), app.DB, surveyID)
		if err != nil {
			httpx.WriteError(w, "results", err)
			return
		}

		views.Render(w, "survey_results.html", results)
	}
}

// DownloadResults exports a survey's answer matrix as JSON: a question
// id -> title lookup table plus one answer map per response set.
func DownloadResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := strconv.Atoi(chi.URLParam(r, "surveyID"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.surveyID")
			return
		}

		results, err := fetchResults(r.Context(), app.DB, surveyID)
		if err != nil {
			httpx.WriteError(w, "download", err)
			return
		}

		questions := make(map[string]string, len(results.Questions))
		for _, q := range results.Questions {
			questions[strconv.Itoa(q.ID)] = q.Title
		}

		responses := make([]map[string]string, 0, len(results.Sets))
		for _, set := range results.Sets {
			answers := make(map[string]string, len(set.Answers))
			for qid, answer := range set.Answers {
				answers[strconv.Itoa(qid)] = answer
			}
			responses = append(responses, answers)
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("survey_%d_results.json", surveyID)))
		render.JSON(w, r, map[string]any{
			"questions": questions,
			"responses": responses,
		})
	}
}

func parseSurveyForm(form url.Values) (model.Survey, error) {
	survey := model.Survey{
		Title:       form.Get("survey_title"),
		Description: form.Get("survey_descr"),
	}
	if survey.Title == "" {
		return survey, httpx.ValidationError{Field: "survey_title", Reason: "missing"}
	}

	rawN := form.Get("num_questions")
	if rawN == "" {
		return survey, httpx.ValidationError{Field: "num_questions", Reason: "missing"}
	}
	n, err := strconv.Atoi(rawN)
	if err != nil || n < 0 {
		return survey, httpx.ValidationError{Field: "num_questions", Reason: "not a non-negative integer"}
	}

	for i := 0; i < n; i++ {
		q := model.Question{
			Position: i,
			Title:    form.Get(fmt.Sprintf("inp%dtitle", i)),
			Type:     model.QuestionType(form.Get(fmt.Sprintf("type%d", i))),
		}
		if !q.Type.Valid() {
			return survey, httpx.ValidationError{Field: fmt.Sprintf("type%d", i), Reason: "unknown question type"}
		}

		switch q.Type {
		case model.TypeRadio:
			q.Options = model.SplitOptions(form.Get(fmt.Sprintf("inp%doptions", i)))
		case model.TypeIntegerRange:
			q.IntegerLB, err = parseOptionalInt(form, fmt.Sprintf("inp%dlb", i))
			if err != nil {
				return survey, err
			}
			q.IntegerUB, err = parseOptionalInt(form, fmt.Sprintf("inp%dub", i))
			if err != nil {
				return survey, err
			}
		}

		survey.Questions = append(survey.Questions, q)
	}
	return survey, nil
}

func parseOptionalInt(form url.Values, key string) (*int, error) {
	raw := form.Get(key)
	if raw == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, httpx.ValidationError{Field: key, Reason: "not an integer"}
	}
	return &n, nil
}

// fetchResults aggregates a survey's answers into one row per response set.
// The answer query joins through the survey's own questions, so a response
// set that also answered another survey's questions contributes only this
// survey's answers here.
func fetchResults(ctx context.Context, db *sql.DB, surveyID int) (model.Results, error) {
	results := model.Results{}

	err := db.QueryRowContext(ctx, `
		SELECT s.id, s.title, s.description
		FROM survey s
		WHERE s.id = ?`,
		surveyID,
	).Scan(&results.Survey.ID, &results.Survey.Title, &results.Survey.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return results, httpx.NotFoundError{Kind: "survey", ID: surveyID}
	}
	if err != nil {
		return results, httpx.StorageError{Op: "results.survey", Err: err}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT q.id, q.title
		FROM question q
		WHERE q.survey_id = ?
		ORDER BY q.position`,
		surveyID,
	)
	if err != nil {
		return results, httpx.StorageError{Op: "results.questions", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		q := model.Question{SurveyID: surveyID}
		err = rows.Scan(&q.ID, &q.Title)
		if err != nil {
			return results, httpx.StorageError{Op: "results.questions.scan", Err: err}
		}
		results.Questions = append(results.Questions, q)
	}
	if err = rows.Err(); err != nil {
		return results, httpx.StorageError{Op: "results.questions.rows", Err: err}
	}

	rows, err = db.QueryContext(ctx, `
		SELECT a.response_set, q.id, a.value
		FROM answer a
		INNER JOIN question q ON (a.question_id = q.id)
		WHERE q.survey_id = ?
		ORDER BY a.response_set`,
		surveyID,
	)
	if err != nil {
		return results, httpx.StorageError{Op: "results.answers", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var set, qid int
		var value string
		err = rows.Scan(&set, &qid, &value)
		if err != nil {
			return results, httpx.StorageError{Op: "results.answers.scan", Err: err}
		}

		lastIdx := len(results.Sets) - 1
		if lastIdx > -1 && results.Sets[lastIdx].ID == set {
			results.Sets[lastIdx].Answers[qid] = value
		} else {
			results.Sets = append(results.Sets, model.ResponseSet{
				ID:      set,
				Answers: map[int]string{qid: value},
			})
		}
	}
	if err = rows.Err(); err != nil {
		return results, httpx.StorageError{Op: "results.answers.rows", Err: err}
	}

	return results, nil
}
