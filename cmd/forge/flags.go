package main

import (
	"io"

	"github.com/spf13/pflag"
)

// newFlagSet declares the flags of a forge command. Flags named in
// config.FlagKeys override the matching configuration keys when set; their
// defaults here are only shown in the usage text.
func newFlagSet(name string, output io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("forge "+name, pflag.ContinueOnError)
	flags.SetOutput(output)

	flags.String("config", "", "YAML configuration file (default ./forge.yaml if present)")
	flags.String("report", "", "write an XLSX run report to this path")
	flags.String("run-id", "", "id labelling the run (default: random UUID)")

	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("database-url", "", "PostgreSQL URL of the run ledger; empty disables it")

	flags.String("provider", "mistral", "synchronous chat provider: mistral or gemini")
	flags.String("model", "mistral-small-latest", "Mistral model for chat and batch requests")

	flags.Bool("batch", true, "submit chat jobs as one provider batch job")
	flags.Int("concurrency", 4, "worker pool size")
	flags.Int("retries", 2, "extra worker pool attempts per item")
	flags.Float64("poll-interval", 5, "seconds between batch status queries")
	flags.Float64("timeout-minutes", 30, "batch polling deadline in minutes; 0 waits indefinitely")
	flags.Bool("overwrite", false, "regenerate items whose artifact exists")
	flags.Int("limit", 0, "process at most this many input records; 0 means all")

	flags.String("input", "recipes.csv", "CSV (title,description) or title list to generate from")
	flags.String("source-dir", "", "directory of generated recipes read by derived commands")
	flags.String("output-dir", "", "directory receiving the artifacts (default depends on the command)")
	flags.String("template-dir", "", "directory of prompt templates overriding the built-in ones")

	flags.StringSlice("languages", nil, "translation target languages, e.g. en,es")
	flags.String("format", "jpg", "image format: jpg or png")

	return flags
}
