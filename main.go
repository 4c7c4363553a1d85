package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/logging"
)

func main() {
	// config.New swaps in the configured logger, this one covers startup
	if logger, err := logging.New(os.Getenv("ENVIRONMENT")); err == nil {
		zap.ReplaceGlobals(logger)
	}

	app := &cli.App{
		Name:  "legal-case-api",
		Usage: "Case management API for law practices",
		Commands: []*cli.Command{
			serveCommand,
			remindCommand,
			hashPasswordCommand,
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		zap.S().Fatalw("application failed", "error", err)
	}
}
