package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/output"
	"github.com/spf13/afero"
)

// Catalog turns input records into the pending work items of a run.
type Catalog struct {
	fs        afero.Fs
	outputDir string
	ext       string
	overwrite bool
	logger    *slog.Logger
}

// Config holds the catalog settings.
type Config struct {
	// OutputDir is where artifacts are written, one per identity
	OutputDir string

	// Extension is the artifact file extension, without the dot
	Extension string

	// Overwrite disables the existing-artifact skip
	Overwrite bool
}

// New creates a catalog reading existence from fs.
func New(fs afero.Fs, config Config, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		fs:        fs,
		outputDir: config.OutputDir,
		ext:       config.Extension,
		overwrite: config.Overwrite,
		logger:    logger.With("component", "catalog"),
	}
}

// OutputPath returns where the artifact of an identity is stored.
func (c *Catalog) OutputPath(identity string) string {
	return filepath.Join(c.outputDir, identity+"."+c.ext)
}

// Rejection is an input record that cannot become a work item.
type Rejection struct {
	Index    int
	Identity string
	Err      error
}

// Result is the outcome of Build.
type Result struct {
	// Items are the pending work items, in input order
	Items []*domain.WorkItem

	// Total is the number of input records, for [i/total] progress
	Total int

	// Skipped holds the identities whose artifact already exists
	Skipped []string

	// Duplicates counts records repeating an earlier record verbatim
	Duplicates int

	// Rejected holds records that failed to read or validate
	Rejected []Rejection
}

// Build creates a work item for every record whose artifact does not exist
// yet. Records that repeat an earlier record are dropped; two different
// records with the same identity abort the build with a *CollisionError.
func (c *Catalog) Build(ctx context.Context, records []Record) (Result, error) {
	result := Result{Total: len(records)}
	seen := make(map[string]int, len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		identity := rec.Identity
		if identity == "" && rec.Err == nil {
			if strings.TrimSpace(rec.Title) == "" {
				result.Rejected = append(result.Rejected, Rejection{
					Index: i,
					Err:   fmt.Errorf("%w: row %d", domain.ErrEmptyTitle, i+1),
				})
				continue
			}
			identity = domain.IdentityFor(rec.Title)
		}

		if first, dup := seen[identity]; dup {
			prev := records[first]
			if prev.Title == rec.Title && prev.Description == rec.Description {
				result.Duplicates++
				c.logger.WarnContext(ctx, "duplicate input record ignored",
					"identity", identity,
					"row", i+1,
					"first_row", first+1)
				continue
			}
			return result, &CollisionError{Identity: identity, FirstIndex: first, SecondIndex: i}
		}
		if identity != "" {
			seen[identity] = i
		}

		if rec.Err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, Identity: identity, Err: rec.Err})
			continue
		}

		path := c.OutputPath(identity)
		if !c.overwrite {
			exists, err := afero.Exists(c.fs, path)
			if err != nil {
				result.Rejected = append(result.Rejected, Rejection{
					Index:    i,
					Identity: identity,
					Err:      &output.LocalIOError{Op: "stat", Path: path, Err: err},
				})
				continue
			}
			if exists {
				result.Skipped = append(result.Skipped, identity)
				c.logger.DebugContext(ctx, "artifact exists, skipping",
					"progress", fmt.Sprintf("[%d/%d]", i+1, len(records)),
					"identity", identity)
				continue
			}
		}

		item, err := domain.NewWorkItemWithIdentity(i, identity, rec.Title, rec.Description)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, Identity: identity, Err: err})
			continue
		}
		item.Source = rec.Source
		item.OutputPath = path
		result.Items = append(result.Items, item)
	}

	c.logger.InfoContext(ctx, "catalog built",
		"records", result.Total,
		"pending", len(result.Items),
		"skipped", len(result.Skipped),
		"duplicates", result.Duplicates,
		"rejected", len(result.Rejected))
	return result, nil
}
