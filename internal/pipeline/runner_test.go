package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/recipe-forge/internal/batch"
	"github.com/phrazzld/recipe-forge/internal/catalog"
	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/events"
	"github.com/phrazzld/recipe-forge/internal/fallback"
	"github.com/phrazzld/recipe-forge/internal/generation"
	"github.com/phrazzld/recipe-forge/internal/job"
	"github.com/phrazzld/recipe-forge/internal/mocks"
	"github.com/phrazzld/recipe-forge/internal/task"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		RunID:        "run-test",
		Input:        "recipes.csv",
		Batch:        true,
		BatchModel:   "mistral-small-latest",
		PollInterval: time.Millisecond,
		Pool:         task.WorkerPoolConfig{WorkerCount: 2, Retries: 0, RetryDelay: time.Millisecond},
		Fallback:     fallback.Config{Interval: time.Millisecond, EmptyRetryDelay: time.Millisecond},
	}
}

func writeCSV(t *testing.T, fs afero.Fs, rows ...string) {
	t.Helper()
	content := "title,description\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, afero.WriteFile(fs, "recipes.csv", []byte(content), 0o644))
}

func writeRecipe(t *testing.T, fs afero.Fs, title, description, text string) string {
	t.Helper()
	id := domain.IdentityFor(title)
	data, err := json.Marshal(job.Recipe{Title: title, Description: description, Text: text})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, DefaultRecipeDir+"/"+id+".json", data, 0o644))
	return id
}

func readJSON(t *testing.T, fs afero.Fs, path string) map[string]any {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func successLine(t *testing.T, id, text string) string {
	t.Helper()
	line, err := json.Marshal(map[string]any{
		"custom_id": id,
		"response": map[string]any{
			"status_code": 200,
			"body": map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"content": text}}},
			},
		},
	})
	require.NoError(t, err)
	return string(line)
}

func newRecipeJob(t *testing.T) job.Job {
	t.Helper()
	j, err := BuildJob(job.KindRecipe, JobDeps{ChatModel: "mistral-small-latest"})
	require.NoError(t, err)
	return j
}

func TestRun_BatchWithFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,Fines et dorées.", "Tarte Tatin,", "Flan,", "Gratin,")
	gratin := domain.IdentityFor("Gratin")
	require.NoError(t, afero.WriteFile(fs, DefaultRecipeDir+"/"+gratin+".json", []byte(`{}`), 0o644))

	crepes := domain.IdentityFor("Crêpes")
	tarte := domain.IdentityFor("Tarte Tatin")
	provider := &mocks.MockBatchProvider{
		Status: batch.StatusSucceeded,
		Output: []byte(strings.Join([]string{
			successLine(t, batch.CustomID(crepes, job.FieldText), "## Crêpes du lot"),
			fmt.Sprintf(`{"custom_id":%q,"error":{"message":"overloaded"}}`, batch.CustomID(tarte, job.FieldText)),
		}, "\n")),
	}
	gen := &mocks.MockGenerator{Text: "## Recette de secours"}

	var mu sync.Mutex
	var outcomes []*events.OutcomeEvent
	emitter := events.NewInMemoryEventEmitter(quietLogger())
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, e *events.OutcomeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, e)
		return nil
	}))
	var jobs []batch.JobEntry
	recorder := jobRecorderFunc(func(_ context.Context, e batch.JobEntry) error {
		jobs = append(jobs, e)
		return nil
	})

	runner := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen, Batch: provider}, testConfig(), quietLogger(),
		WithEmitter(emitter), WithJobRecorder(recorder))
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "batch", summary.Strategy)
	assert.Equal(t, 3, summary.Report.Succeeded)
	assert.Equal(t, 1, summary.Report.Skipped)
	assert.Zero(t, summary.Report.Failed)
	require.NotNil(t, summary.Batch)
	assert.Equal(t, 1, summary.Batch.Committed)
	require.NotNil(t, summary.Fallback)
	assert.Equal(t, 2, summary.Fallback.Committed)
	assert.Equal(t, 2, gen.Calls(), "only unresolved items reach the fallback")

	art := readJSON(t, fs, DefaultRecipeDir+"/"+crepes+".json")
	assert.Equal(t, "Crêpes", art["title"])
	assert.Equal(t, "Fines et dorées", art["description"])
	assert.Equal(t, "## Crêpes du lot", art["text"])
	art = readJSON(t, fs, DefaultRecipeDir+"/"+tarte+".json")
	assert.Equal(t, "## Recette de secours", art["text"])

	specs := provider.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "run-test", specs[0].Metadata["run_id"])
	assert.Equal(t, "recipe", specs[0].Metadata["kind"])
	assert.NotEmpty(t, jobs)
	assert.Equal(t, "run-test", jobs[0].RunID)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, outcomes, 4, "one outcome per input record")
}

type jobRecorderFunc func(ctx context.Context, e batch.JobEntry) error

func (f jobRecorderFunc) RecordJob(ctx context.Context, e batch.JobEntry) error { return f(ctx, e) }

func TestRun_PoolWhenBatchDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,", "Flan,")
	provider := &mocks.MockBatchProvider{Status: batch.StatusSucceeded}
	gen := &mocks.MockGenerator{Text: "recette"}

	cfg := testConfig()
	cfg.Batch = false
	summary, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen, Batch: provider}, cfg, quietLogger()).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pool", summary.Strategy)
	assert.Equal(t, 2, summary.Report.Succeeded)
	assert.Equal(t, 2, gen.Calls())
	assert.Empty(t, provider.Specs())
	require.NotNil(t, summary.Pool)
	assert.Equal(t, 2, summary.Pool.Succeeded)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,", "Flan,")
	gen := &mocks.MockGenerator{Text: "recette"}
	cfg := testConfig()
	cfg.Batch = false

	_, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen}, cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)

	summary, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen}, cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Report.Skipped)
	assert.Zero(t, summary.Report.Succeeded)
	assert.Equal(t, 2, gen.Calls(), "nothing is generated twice")
}

func TestRun_RejectedRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,", ",sans titre")
	gen := &mocks.MockGenerator{Text: "recette"}
	cfg := testConfig()
	cfg.Batch = false

	summary, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen}, cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Report.Succeeded)
	assert.Equal(t, 1, summary.Report.Failed)
	require.Len(t, summary.Report.Failures, 1)
	assert.Equal(t, "record 2", summary.Report.Failures[0].Identity)
}

func TestRun_IdentityCollision(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,sucrées", "Crêpes,salées")

	_, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: &mocks.MockGenerator{}}, testConfig(), quietLogger()).
		Run(context.Background())
	assert.ErrorIs(t, err, catalog.ErrIdentityCollision)
}

func TestRun_MissingInput(t *testing.T) {
	_, err := NewRunner(afero.NewMemMapFs(), newRecipeJob(t), Clients{Generator: &mocks.MockGenerator{}},
		testConfig(), quietLogger()).Run(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInterrupted)
}

func TestRun_TitleList(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "titles.txt", []byte("# dessert\nCrêpes\n\nFlan\n"), 0o644))
	gen := &mocks.MockGenerator{Text: "recette"}
	cfg := testConfig()
	cfg.Input = "titles.txt"
	cfg.Batch = false
	cfg.Limit = 1

	summary, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen}, cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Report.Succeeded)
	assert.Equal(t, 1, gen.Calls(), "limit caps the records")
}

func TestRun_Interrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,", "Flan,", "Gratin,")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &mocks.MockGenerator{CompleteFn: func(ctx context.Context, _ generation.ChatRequest) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	cfg := testConfig()
	cfg.Batch = false
	cfg.Pool.WorkerCount = 1

	summary, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen}, cfg, quietLogger()).Run(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Report.Succeeded)
	assert.Equal(t, 3, summary.Report.Failed, "every unfinished item is accounted for")
	for _, f := range summary.Report.Failures {
		assert.ErrorIs(t, f.Err, ErrInterrupted)
	}

	entries, _ := afero.ReadDir(fs, DefaultRecipeDir)
	assert.Empty(t, entries, "no partial artifacts")
}

func TestRun_InterruptedDuringBatchSkipsFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,", "Flan,")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &mocks.MockBatchProvider{GetJobFn: func(context.Context, string) (batch.Job, error) {
		cancel()
		return batch.Job{ID: mocks.MockJobID, Status: batch.StatusRunning}, nil
	}}
	gen := &mocks.MockGenerator{Text: "recette"}

	summary, err := NewRunner(fs, newRecipeJob(t), Clients{Generator: gen, Batch: provider}, testConfig(), quietLogger()).
		Run(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Zero(t, gen.Calls(), "fallback is skipped after an interrupt")
	assert.Nil(t, summary.Fallback)
	assert.Equal(t, 2, summary.Report.Failed)
}

func TestRun_Translate(t *testing.T) {
	fs := afero.NewMemMapFs()
	id := writeRecipe(t, fs, "Crêpes", "Fines", "Mélanger la farine.")
	require.NoError(t, afero.WriteFile(fs, DefaultRecipeDir+"/broken.json", []byte(`{`), 0o644))

	gen := &mocks.MockGenerator{CompleteFn: func(_ context.Context, req generation.ChatRequest) (string, error) {
		return "translated", nil
	}}
	j, err := BuildJob(job.KindTranslate, JobDeps{ChatModel: "m", Languages: []string{"en", "fr"}})
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Batch = false

	summary, err := NewRunner(fs, j, Clients{Generator: gen}, cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Report.Succeeded)
	assert.Equal(t, 1, summary.Report.Failed, "unreadable source artifact")
	assert.Equal(t, 3, gen.Calls(), "title, description and text to english")

	art := readJSON(t, fs, DefaultTranslationDir+"/"+id+".json")
	assert.Equal(t, "Crêpes", art["title_fr"])
	assert.Equal(t, "translated", art["title_en"])
	assert.Equal(t, "translated", art["text_en"])
}

func TestRun_Embed(t *testing.T) {
	fs := afero.NewMemMapFs()
	id := writeRecipe(t, fs, "Crêpes", "Fines", "Mélanger.")
	embedder := &mocks.MockEmbedder{Vector: []float32{0.5, 0.25}}

	j, err := BuildJob(job.KindEmbed, JobDeps{Embedder: embedder, EmbeddingModel: "text-embedding-004"})
	require.NoError(t, err)
	summary, err := NewRunner(fs, j, Clients{}, testConfig(), quietLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pool", summary.Strategy)
	assert.Equal(t, 1, summary.Report.Succeeded)
	assert.Equal(t, []string{"Crêpes: Fines\nMélanger."}, embedder.Texts())
	art := readJSON(t, fs, DefaultEmbeddingDir+"/"+id+".json")
	assert.EqualValues(t, 2, art["dimension"])
}

func TestRun_ImagesWithLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, title := range []string{"Crêpes", "Flan", "Gratin"} {
		writeRecipe(t, fs, title, "", "texte")
	}
	images := &mocks.MockImageGenerator{Image: []byte{0xff, 0xd8}}

	j, err := BuildJob(job.KindImages, JobDeps{Images: images, ImageFormat: "jpeg"})
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Limit = 2
	summary, err := NewRunner(fs, j, Clients{}, cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Report.Succeeded)
	files, err := afero.Glob(fs, DefaultImageDir+"/*.jpg")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRun_ProcessorFailuresAreReported(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecipe(t, fs, "Crêpes", "", "texte")
	images := &mocks.MockImageGenerator{Err: fmt.Errorf("%w: unsafe", generation.ErrContentBlocked)}

	j, err := BuildJob(job.KindImages, JobDeps{Images: images})
	require.NoError(t, err)
	summary, err := NewRunner(fs, j, Clients{}, testConfig(), quietLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Report.Failed)
	require.Len(t, summary.Report.Failures, 1)
	assert.ErrorIs(t, summary.Report.Failures[0].Err, generation.ErrContentBlocked)
}

func TestRun_ChatJobWithoutGenerator(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCSV(t, fs, "Crêpes,")
	summary, err := NewRunner(fs, newRecipeJob(t), Clients{}, testConfig(), quietLogger()).Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Equal(t, 1, summary.Report.Failed, "the pending item is failed, not lost")
}

func TestBuildJob(t *testing.T) {
	_, err := BuildJob(job.KindImages, JobDeps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	_, err = BuildJob(job.KindEmbed, JobDeps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	_, err = BuildJob("poems", JobDeps{})
	assert.ErrorIs(t, err, job.ErrUnknownKind)
	_, err = BuildJob(job.KindImages, JobDeps{Images: &mocks.MockImageGenerator{}, ImageFormat: "gif"})
	assert.ErrorIs(t, err, job.ErrUnsupportedFormat)

	j, err := BuildJob(job.KindTranslate, JobDeps{Languages: []string{"en,es"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es"}, j.(*job.TranslationJob).Languages())
}

func TestDefaultDirs(t *testing.T) {
	tests := []struct {
		kind           job.Kind
		source, output string
	}{
		{job.KindRecipe, "", DefaultRecipeDir},
		{job.KindTranslate, DefaultRecipeDir, DefaultTranslationDir},
		{job.KindImages, DefaultRecipeDir, DefaultImageDir},
		{job.KindEmbed, DefaultRecipeDir, DefaultEmbeddingDir},
	}
	for _, tc := range tests {
		source, output := DefaultDirs(tc.kind)
		assert.Equal(t, tc.source, source, string(tc.kind))
		assert.Equal(t, tc.output, output, string(tc.kind))
	}
}

func TestNewRunner_GeneratesRunID(t *testing.T) {
	r := NewRunner(afero.NewMemMapFs(), newRecipeJob(t), Clients{}, Config{}, nil)
	assert.Len(t, r.RunID(), 36)
}
