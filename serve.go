package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/api/handlers"
	"github.com/linesmerrill/legal-case-api/api/scheduler"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/databases"
)

const shutdownTimeout = 15 * time.Second

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server and the hearing reminder scheduler",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a := handlers.App{Config: *c}
	if err := a.Initialize(ctx); err != nil { // initialize database and router
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			zap.S().Errorw("failed to disconnect from database", "error", err)
		}
	}()

	if c.SendgridAPIKey != "" {
		s := newScheduler(c, &a)
		if err := s.Start(); err != nil {
			return err
		}
		defer s.Stop()
	} else {
		zap.S().Warn("SENDGRID_API_KEY is not set, hearing reminders are disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", c.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		zap.S().Infow("legal-case-api is up and running",
			"port", c.Port,
			"url", c.BaseURL,
		)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.S().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newScheduler(c *config.Config, a *handlers.App) *scheduler.Scheduler {
	db := a.DB()
	return scheduler.NewScheduler(c.ReminderSchedule,
		databases.NewCaseDatabase(db),
		databases.NewUserDatabase(db),
		databases.NewUserPreferencesDatabase(db),
		scheduler.NewSendgridMailer(c.SendgridAPIKey, c.ReminderFromEmail),
	)
}
