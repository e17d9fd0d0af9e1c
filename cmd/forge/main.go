// Package main implements the forge command, which generates recipe content
// in bulk: recipe texts from a list of titles, then translations, images and
// embeddings of the generated recipes.
//
// Usage:
//
//	forge <generate|translate|images|embed> [flags]
//
// Every flag has a configuration file and environment variable equivalent,
// see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/recipe-forge/internal/config"
	"github.com/phrazzld/recipe-forge/internal/job"
	"github.com/phrazzld/recipe-forge/internal/pipeline"
	"github.com/phrazzld/recipe-forge/internal/platform/logger"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// commands maps subcommand names to job kinds.
var commands = map[string]job.Kind{
	"generate":  job.KindRecipe,
	"translate": job.KindTranslate,
	"images":    job.KindImages,
	"embed":     job.KindEmbed,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one forge command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	kind, ok := commands[args[0]]
	if !ok {
		if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
			printUsage(stdout)
			return exitOK
		}
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return exitUsage
	}

	flags := newFlagSet(args[0], stderr)
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(config.Options{ConfigFile: configFile, Flags: flags})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitFailure
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to set up logger: %v\n", err)
		return exitFailure
	}

	app, err := newApplication(ctx, cfg, afero.NewOsFs(), log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer app.cleanup()

	runID, _ := flags.GetString("run-id")
	runner, err := app.newRunner(ctx, kind, runID)
	if err != nil {
		log.Error("failed to prepare run", "kind", string(kind), "error", err)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	summary, runErr := runner.Run(ctx)
	printSummary(stdout, summary)

	reportPath, _ := flags.GetString("report")
	if reportPath != "" {
		if err := app.exportReport(reportPath, summary); err != nil {
			log.Error("failed to export run report", "path", reportPath, "error", err)
		} else {
			_, _ = fmt.Fprintf(stdout, "Report written to %s\n", reportPath)
		}
	}

	return exitCode(log, runErr)
}

// exitCode maps the error of a run to the process exit code. Failed items
// alone do not fail the command; they are listed in the summary.
func exitCode(log *slog.Logger, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrInterrupted):
		log.Warn("run interrupted", "error", err)
		return exitInterrupted
	default:
		log.Error("run failed", "error", err)
		return exitFailure
	}
}

func printSummary(w io.Writer, summary pipeline.Summary) {
	_, _ = fmt.Fprintln(w, summary.Report.Summary())
	if preview := summary.Report.FailurePreview(); preview != "" {
		_, _ = fmt.Fprintln(w, preview)
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: forge <generate|translate|images|embed> [flags]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  generate   write recipe texts for the titles of the input file")
	_, _ = fmt.Fprintln(w, "  translate  translate the generated recipes")
	_, _ = fmt.Fprintln(w, "  images     draw one picture of every generated recipe")
	_, _ = fmt.Fprintln(w, "  embed      compute an embedding of every generated recipe")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Run 'forge <command> --help' for the flags of a command.")
}
