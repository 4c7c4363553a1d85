package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/linesmerrill/legal-case-api/api/handlers"
)

var hashPasswordCommand = &cli.Command{
	Name:      "hash-password",
	Usage:     "Print the bcrypt hash of a password, for fixing a user by hand",
	ArgsUsage: "<password>",
	Action: func(cCtx *cli.Context) error {
		password := cCtx.Args().First()
		if password == "" {
			return errors.New("usage: legal-case-api hash-password <password>")
		}
		hash, err := handlers.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fmt.Fprintf(cCtx.App.Writer, "Bcrypt Hash: %s\n", hash)
		fmt.Fprintf(cCtx.App.Writer, "\nTo update in MongoDB, run:\n")
		fmt.Fprintf(cCtx.App.Writer, "db.users.updateOne({\"email\": \"<email>\"}, {$set: {\"password\": %q}})\n", hash)
		return nil
	},
}
