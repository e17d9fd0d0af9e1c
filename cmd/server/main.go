// Package main implements the read API server, which serves the artifacts
// generated by forge runs and, when the run ledger is enabled, the recorded
// item outcomes and batch jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/recipe-forge/internal/config"
	"github.com/phrazzld/recipe-forge/internal/platform/logger"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run loads the configuration and serves until ctx is cancelled. With
// --migrate it applies the ledger migrations and returns instead.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := newFlagSet(stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(config.Options{ConfigFile: configFile, Flags: flags})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to set up logger: %v\n", err)
		return err
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"ledger_enabled", cfg.Database.URL != "")

	if migrate, _ := flags.GetBool("migrate"); migrate {
		return runMigrations(ctx, cfg, log)
	}

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		return err
	}
	return app.startHTTPServer(ctx, app.setupRouter())
}

func newFlagSet(output io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.String("config", "", "YAML configuration file (default ./forge.yaml if present)")
	flags.Bool("migrate", false, "apply the run ledger migrations and exit")
	flags.Int("port", 8080, "HTTP port")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("database-url", "", "PostgreSQL URL of the run ledger; empty disables it")
	flags.String("output-dir", "", "directory of the served artifacts (default json_recipes)")
	flags.String("image-dir", "images", "directory served under /images")
	return flags
}
