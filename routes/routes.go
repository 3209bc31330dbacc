package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/surveyforge/surveyforge/app"
	"github.com/surveyforge/surveyforge/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Get("/", Home(app))
	root.Get("/login", ShowLogin(app))
	root.Post("/login", Login(app))
	root.Get("/logout", Logout(app))

	root.Get(`/s/{surveyID:^\d+$}`, ViewSurvey(app))
	root.Post(`/s/{surveyID:^\d+$}/submit`, SubmitSurvey(app))

	root.Group(func(r chi.Router) {
		r.Use(middlewares.CookieAuth(), middlewares.Admin(app.TokenSecret))

		r.Get("/admin", AdminPanel(app))
		r.Get("/s/new", NewSurveyForm(app))
		r.Post("/s/new", CreateSurvey(app))
		r.Get("/results", ResultsList(app))
		r.Get(`/results/{surveyID:^\d+$}`, SurveyResults(app))
		r.Get(`/download/{surveyID:^\d+$}`, DownloadResults(app))
	})

	return root
}
