package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/surveyforge/surveyforge/app"
	"github.com/surveyforge/surveyforge/config"
	"github.com/surveyforge/surveyforge/database"
	"github.com/surveyforge/surveyforge/httpx"
	"github.com/surveyforge/surveyforge/log"
	"github.com/surveyforge/surveyforge/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if cfg.Command == config.CmdSetPassword {
		err = setPassword(cfg)
		if err != nil {
			log.Fatal("main.set_password:", err)
		}
		return
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}

// setPassword prompts for a new administrator password without echo and
// overwrites the hash file.
func setPassword(cfg config.Config) error {
	fmt.Print("Pick new administrator password: ")
	plain, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	if len(plain) == 0 {
		return errors.New("empty password")
	}

	err = httpx.WritePasswordHash(cfg.PasswdFile, string(plain))
	if err != nil {
		return err
	}

	log.Info("Written hash to " + cfg.PasswdFile)
	return nil
}
