package main

import (
	"net/http"

	"github.com/phrazzld/recipe-forge/internal/api"
	"github.com/spf13/afero"
)

// setupRouter creates the read API router over the application's artifact
// directories and ledger readers.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Items:  api.NewItemHandler(app.fs, app.itemDir(), app.logger),
		Runs:   api.NewRunHandler(app.outcomes, app.jobs, app.logger),
		Images: afero.NewBasePathFs(app.fs, app.imageDir()),
	}, app.logger)
}
