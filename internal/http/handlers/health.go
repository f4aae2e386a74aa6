package handlers

import (
	"net/http"
	"sort"
)

// Health handles GET /health. Dependencies reflect the startup capability
// probes; a missing tool disables its kinds but not the process.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]bool)
	for _, st := range a.Caps.Report() {
		deps[st.Name] = st.Available
	}

	kinds := make([]string, 0, len(a.Dispatcher.Table()))
	for kind := range a.Dispatcher.Table() {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	a.json(w, http.StatusOK, map[string]any{
		"status":                "ok",
		"version":               a.Version,
		"dependencies":          deps,
		"supported_conversions": kinds,
	})
}
