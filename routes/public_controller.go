package routes

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/surveyforge/surveyforge/app"
	"github.com/surveyforge/surveyforge/httpx"
	"github.com/surveyforge/surveyforge/log"
	"github.com/surveyforge/surveyforge/model"
	"github.com/surveyforge/surveyforge/views"
)

func Home(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := fetchSurveys(r.Context(), app.DB)
		if err != nil {
			httpx.WriteError(w, "home.surveys", err)
			return
		}

		views.Render(w, "homepage.html", struct{ Surveys []model.Survey }{surveys})
	}
}

func ViewSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := strconv.Atoi(chi.URLParam(r, "surveyID"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.surveyID")
			return
		}

		survey, err := fetchSurvey(r.Context(), app.DB, surveyID)
		if err != nil {
			httpx.WriteError(w, "view_survey", err)
			return
		}

		views.Render(w, "view_survey.html", struct{ Survey model.Survey }{survey})
	}
}

// SubmitSurvey records one response set: a fresh id from the global counter
// plus one answer row per submitted question key. Keys are checked against
// the survey's own question set, so a forged post cannot attach answers to
// another survey's questions.
func SubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := strconv.Atoi(chi.URLParam(r, "surveyID"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.surveyID")
			return
		}

		err = r.ParseForm()
		if err != nil {
			httpx.WriteError(w, "submit.parse_form", httpx.ValidationError{Field: "form", Reason: "malformed form body"})
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.WriteError(w, "submit.begin_tx", httpx.StorageError{Op: "tx.begin", Err: err})
			return
		}
		defer tx.Rollback()

		var exists bool
		err = tx.QueryRowContext(r.Context(),
			"SELECT 1 FROM survey WHERE id = ?", surveyID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.WriteError(w, "submit.survey", httpx.NotFoundError{Kind: "survey", ID: surveyID})
			return
		}
		if err != nil {
			httpx.WriteError(w, "submit.survey", httpx.StorageError{Op: "survey.select", Err: err})
			return
		}

		known := map[int]bool{}
		rows, err := tx.QueryContext(r.Context(),
			"SELECT id FROM question WHERE survey_id = ?", surveyID)
		if err != nil {
			httpx.WriteError(w, "submit.questions", httpx.StorageError{Op: "question.select", Err: err})
			return
		}
		for rows.Next() {
			var id int
			err = rows.Scan(&id)
			if err != nil {
				rows.Close()
				httpx.WriteError(w, "submit.questions", httpx.StorageError{Op: "question.scan", Err: err})
				return
			}
			known[id] = true
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			httpx.WriteError(w, "submit.questions", httpx.StorageError{Op: "question.rows", Err: err})
			return
		}

		answers := make(map[int]string, len(r.PostForm))
		for key := range r.PostForm {
			qid, err := strconv.Atoi(key)
			if err != nil || !known[qid] {
				httpx.WriteError(w, "submit.answer_key", httpx.ValidationError{Field: key, Reason: "not a question of this survey"})
				return
			}
			answers[qid] = r.PostForm.Get(key)
		}

		// single-statement bump, never increment-then-read: concurrent
		// submissions each get a distinct, contiguous id
		var responseSet int
		err = tx.QueryRowContext(r.Context(), `
			UPDATE last_response_set SET id = id + 1
			RETURNING id`,
		).Scan(&responseSet)
		if err != nil {
			httpx.WriteError(w, "submit.response_set", httpx.StorageError{Op: "response_set.next", Err: err})
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO answer (question_id, response_set, value)
			VALUES (?, ?, ?)`)
		if err != nil {
			httpx.WriteError(w, "submit.answers.prepare", httpx.StorageError{Op: "answer.prepare", Err: err})
			return
		}
		defer stmt.Close()

		for qid, value := range answers {
			_, err := stmt.ExecContext(r.Context(), qid, responseSet, value)
			if err != nil {
				httpx.WriteError(w, "submit.answers.insert", httpx.StorageError{Op: "answer.insert", Err: err})
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.WriteError(w, "submit.commit", httpx.StorageError{Op: "tx.commit", Err: err})
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func fetchSurveys(ctx context.Context, db *sql.DB) ([]model.Survey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.title, s.description
		FROM survey s`)
	if err != nil {
		return nil, httpx.StorageError{Op: "surveys.select", Err: err}
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		s := model.Survey{}
		err = rows.Scan(&s.ID, &s.Title, &s.Description)
		if err != nil {
			return nil, httpx.StorageError{Op: "surveys.scan", Err: err}
		}

		surveys = append(surveys, s)
	}
	if err = rows.Err(); err != nil {
		return nil, httpx.StorageError{Op: "surveys.rows", Err: err}
	}
	return surveys, nil
}

func fetchSurvey(ctx context.Context, db *sql.DB, surveyID int) (model.Survey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			s.id, s.title, s.description,
			q.id, q.position, q.title, q.description, q.type, q.params
		FROM survey s
		LEFT OUTER JOIN question q ON (s.id = q.survey_id)
		WHERE s.id = ?
		ORDER BY q.position`,
		surveyID,
	)
	if err != nil {
		return model.Survey{}, httpx.StorageError{Op: "survey.select", Err: err}
	}
	defer rows.Close()

	survey := model.Survey{}
	for rows.Next() {
		var (
			qID, qPos      sql.NullInt64
			qTitle, qDescr sql.NullString
			qType, qParams sql.NullString
		)
		err = rows.Scan(
			&survey.ID, &survey.Title, &survey.Description,
			&qID, &qPos, &qTitle, &qDescr, &qType, &qParams,
		)
		if err != nil {
			return model.Survey{}, httpx.StorageError{Op: "survey.scan", Err: err}
		}
		if !qID.Valid {
			// survey without questions
			continue
		}

		q := model.Question{
			ID:          int(qID.Int64),
			SurveyID:    survey.ID,
			Position:    int(qPos.Int64),
			Title:       qTitle.String,
			Description: qDescr.String,
			Type:        model.QuestionType(qType.String),
		}
		err = q.UnmarshalParams(qParams.String)
		if err != nil {
			return model.Survey{}, httpx.StorageError{Op: "survey.params", Err: err}
		}

		survey.Questions = append(survey.Questions, q)
	}
	if err = rows.Err(); err != nil {
		return model.Survey{}, httpx.StorageError{Op: "survey.rows", Err: err}
	}

	if survey.ID == 0 {
		return model.Survey{}, httpx.NotFoundError{Kind: "survey", ID: surveyID}
	}
	return survey, nil
}
