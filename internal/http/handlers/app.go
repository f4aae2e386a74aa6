// Package handlers implements the HTTP surface: submission, progress
// polling, downloads, health, and the converter listing. Handlers parse and
// shape; all conversion decisions live in the dispatch layer.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rafey804/flipfilex-sub000/internal/capability"
	"github.com/rafey804/flipfilex-sub000/internal/dispatch"
	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
	"github.com/rafey804/flipfilex-sub000/internal/jobs"
	"github.com/rafey804/flipfilex-sub000/internal/storage"
)

type App struct {
	Dispatcher *dispatch.Dispatcher
	Jobs       *jobs.Registry
	Store      *storage.FileStore
	Caps       *capability.Registry
	Logger     infra.Logger
	Version    string
}

func NewApp(
	dispatcher *dispatch.Dispatcher,
	registry *jobs.Registry,
	store *storage.FileStore,
	caps *capability.Registry,
	logger infra.Logger,
	version string,
) *App {
	return &App{
		Dispatcher: dispatcher,
		Jobs:       registry,
		Store:      store,
		Caps:       caps,
		Logger:     logger,
		Version:    version,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// detail writes the error body shape clients depend on.
func (a *App) detail(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"detail": msg})
}

// fail maps a dispatch error onto its status code and client-safe detail.
func (a *App) fail(w http.ResponseWriter, err error) {
	a.detail(w, domain.KindOf(err).HTTPStatus(), domain.DetailOf(err))
}
