package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill"
	"github.com/layer-3/quill/config"
	"github.com/layer-3/quill/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	gin.SetMode(cfg.GinMode)
	logger := logging.New(cfg.IsLocal(), logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := quill.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error(context.Background(), "failed to close resources", "error", err)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "seed-user" {
		return seedUser(ctx, app, os.Args[2:])
	}

	return app.Run(ctx)
}

// seedUser creates an identity: quill seed-user -email a@b.c -password secret
func seedUser(ctx context.Context, app *quill.App, args []string) error {
	fs := flag.NewFlagSet("seed-user", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "plain text password, stored as a bcrypt hash")
	inactive := fs.Bool("inactive", false, "create the account disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	identity, err := app.Identities.Create(ctx, *email, *password, !*inactive)
	if err != nil {
		return err
	}

	fmt.Printf("created identity %s (%s)\n", identity.ID, identity.Email)
	return nil
}
