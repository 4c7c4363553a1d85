package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/api/handlers"
	"github.com/linesmerrill/legal-case-api/config"
)

var remindCommand = &cli.Command{
	Name:   "remind",
	Usage:  "Send hearing reminder emails once and exit",
	Action: remind,
}

func remind(cCtx *cli.Context) error {
	c, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.SendgridAPIKey == "" {
		return errors.New("SENDGRID_API_KEY is required to send reminders")
	}

	a := handlers.App{Config: *c}
	if err := a.Initialize(cCtx.Context); err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	sent, err := newScheduler(c, &a).SendHearingReminders(cCtx.Context)
	if err != nil {
		return err
	}
	zap.S().Infow("hearing reminders sent", "count", sent)
	return nil
}
