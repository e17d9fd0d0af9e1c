package api

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/recipe-forge/internal/api/shared"
	"github.com/spf13/afero"
)

// DefaultPageSize is the number of items listed when no limit is given.
const DefaultPageSize = 100

// ItemListResponse is the body of GET /api/items.
type ItemListResponse struct {
	Items  []string `json:"items"`
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
}

// listItemsRequest holds the query parameters of GET /api/items.
type listItemsRequest struct {
	Limit  int `validate:"gte=1,lte=1000"`
	Offset int `validate:"gte=0"`
}

// itemRequest holds the path parameter of GET /api/items/{id}.
type itemRequest struct {
	ID string `validate:"required,max=255,printascii,excludesall=/\\"`
}

// validateItemRequest rejects ids that cannot name an artifact inside the
// output directory.
func validateItemRequest(req itemRequest) error {
	if err := shared.ValidateRequest(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if strings.HasPrefix(req.ID, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, req.ID)
	}
	return nil
}

// ItemHandler serves the JSON artifacts stored in one output directory.
type ItemHandler struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
}

// NewItemHandler creates a handler over the artifacts in dir.
func NewItemHandler(fsys afero.Fs, dir string, logger *slog.Logger) *ItemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemHandler{fs: fsys, dir: dir, logger: logger.With("component", "item_handler")}
}

// ListItems handles GET /api/items. It returns the identities that have an
// artifact, sorted, paginated by the limit and offset query parameters.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	ids, err := h.identities()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list items", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ItemListResponse{
		Items:  page(ids, req.Offset, req.Limit),
		Total:  len(ids),
		Offset: req.Offset,
	})
}

// page returns at most limit ids starting at offset. Offsets past the end
// give an empty page.
func page(ids []string, offset, limit int) []string {
	start := min(offset, len(ids))
	end := start + min(limit, len(ids)-start)
	return ids[start:end]
}

// GetItem handles GET /api/items/{id} and returns the stored artifact as is.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	req := itemRequest{ID: chi.URLParam(r, "id")}
	if err := validateItemRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	data, err := afero.ReadFile(h.fs, filepath.Join(h.dir, req.ID+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrArtifactNotFound, req.ID)
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithRawJSON(w, r, http.StatusOK, data)
}

// identities lists the artifact stems of the output directory. A missing
// directory has no items.
func (h *ItemHandler) identities() ([]string, error) {
	entries, err := afero.ReadDir(h.fs, h.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func parseListRequest(r *http.Request) (listItemsRequest, error) {
	req := listItemsRequest{Limit: DefaultPageSize}
	q := r.URL.Query()
	var err error
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("limit: %w", err)
		}
	}
	if v := q.Get("offset"); v != "" {
		if req.Offset, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("offset: %w", err)
		}
	}
	return req, shared.ValidateRequest(req)
}
