package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/recipe-forge/internal/api/shared"
	"github.com/phrazzld/recipe-forge/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOutcomeReader struct {
	listFn func(ctx context.Context, runID string) ([]store.OutcomeRecord, error)
}

func (m *mockOutcomeReader) ListOutcomes(ctx context.Context, runID string) ([]store.OutcomeRecord, error) {
	return m.listFn(ctx, runID)
}

type mockJobReader struct {
	getFn func(ctx context.Context, jobID string) (store.JobRecord, error)
}

func (m *mockJobReader) GetJob(ctx context.Context, jobID string) (store.JobRecord, error) {
	return m.getFn(ctx, jobID)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg RouterConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(cfg, quietLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func seedArtifacts(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "recipes/bbb.json", []byte(`{"title":"Tarte"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "recipes/aaa.json", []byte(`{"title":"Crêpes"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "recipes/ccc.json", []byte(`{"title":"Flan"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "recipes/.ddd.json.tmp-1", []byte(`{`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "recipes/notes.txt", []byte(`x`), 0o644))
	return fs
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	resp, body := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestListItems(t *testing.T) {
	srv := newTestServer(t, RouterConfig{Items: NewItemHandler(seedArtifacts(t), "recipes", nil)})

	resp, body := get(t, srv, "/api/items")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list ItemListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, list.Items)
	assert.Equal(t, 3, list.Total)

	_, body = get(t, srv, "/api/items?limit=1&offset=1")
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, []string{"bbb"}, list.Items)
	assert.Equal(t, 1, list.Offset)

	_, body = get(t, srv, "/api/items?offset=10")
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Items)
	assert.Equal(t, 3, list.Total)

	resp, body = get(t, srv, "/api/items?offset=9223372036854775807&limit=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Items)

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1", "limit=5000"} {
		resp, _ := get(t, srv, "/api/items?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestPage(t *testing.T) {
	ids := []string{"a", "b", "c"}
	tests := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"first page", 0, 2, []string{"a", "b"}},
		{"last page", 2, 2, []string{"c"}},
		{"past the end", 3, 2, []string{}},
		{"largest offset", math.MaxInt, 10, []string{}},
		{"largest limit", 1, math.MaxInt, []string{"b", "c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, page(ids, tc.offset, tc.limit))
		})
	}
}

func TestListItems_MissingDirectory(t *testing.T) {
	srv := newTestServer(t, RouterConfig{Items: NewItemHandler(afero.NewMemMapFs(), "nowhere", nil)})
	resp, body := get(t, srv, "/api/items")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"items":[],"total":0,"offset":0}`, string(body))
}

func TestGetItem(t *testing.T) {
	srv := newTestServer(t, RouterConfig{Items: NewItemHandler(seedArtifacts(t), "recipes", nil)})

	resp, body := get(t, srv, "/api/items/aaa")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"title":"Crêpes"}`, string(body))

	resp, body = get(t, srv, "/api/items/zzz")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errResp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "Item not found", errResp.Error)
	assert.Len(t, errResp.TraceID, 32)

	resp, _ = get(t, srv, "/api/items/.ddd")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/abc.jpg", []byte{0xff, 0xd8, 0xff}, 0o644))
	srv := newTestServer(t, RouterConfig{Images: fs})

	resp, body := get(t, srv, "/images/abc.jpg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, body)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp, _ = get(t, srv, "/images/missing.jpg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunRoutes(t *testing.T) {
	updated := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	outcomes := &mockOutcomeReader{listFn: func(_ context.Context, runID string) ([]store.OutcomeRecord, error) {
		if runID == "broken" {
			return nil, errors.New("connection refused")
		}
		return []store.OutcomeRecord{
			{RunID: runID, Kind: "recipe", Identity: "aaa", Status: "succeeded", Path: "recipes/aaa.json", UpdatedAt: updated},
			{RunID: runID, Kind: "recipe", Identity: "bbb", Status: "failed", Error: "timeout", UpdatedAt: updated},
		}, nil
	}}
	jobs := &mockJobReader{getFn: func(_ context.Context, jobID string) (store.JobRecord, error) {
		if jobID != "job-1" {
			return store.JobRecord{}, store.ErrJobNotFound
		}
		return store.JobRecord{JobID: "job-1", RunID: "run-1", Kind: "recipe", Status: "succeeded",
			Requests: 2, CompletedRequests: 2, TotalRequests: 2, UpdatedAt: updated}, nil
	}}
	srv := newTestServer(t, RouterConfig{Runs: NewRunHandler(outcomes, jobs, nil)})

	resp, body := get(t, srv, "/api/runs/run-1/outcomes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []OutcomeResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "recipes/aaa.json", list[0].Path)
	assert.Equal(t, "timeout", list[1].Error)

	resp, body = get(t, srv, "/api/runs/broken/outcomes")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "connection refused")

	resp, body = get(t, srv, "/api/jobs/job-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job JobResponse
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, "run-1", job.RunID)
	assert.Equal(t, 2, job.CompletedRequests)

	resp, _ = get(t, srv, "/api/jobs/job-2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunRoutes_LedgerDisabled(t *testing.T) {
	srv := newTestServer(t, RouterConfig{Runs: NewRunHandler(nil, nil, nil)})

	resp, body := get(t, srv, "/api/runs/run-1/outcomes")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "Run ledger is not enabled")

	resp, _ = get(t, srv, "/api/jobs/job-1")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
		msg  string
	}{
		{ErrInvalidIdentity, http.StatusBadRequest, "Invalid item id"},
		{ErrArtifactNotFound, http.StatusNotFound, "Item not found"},
		{store.ErrJobNotFound, http.StatusNotFound, "Batch job not found"},
		{ErrLedgerDisabled, http.StatusServiceUnavailable, "Run ledger is not enabled"},
		{store.ErrInvalidEntity, http.StatusBadRequest, "Invalid request"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err), tc.err.Error())
		assert.Equal(t, tc.msg, GetSafeErrorMessage(tc.err), tc.err.Error())
	}
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
