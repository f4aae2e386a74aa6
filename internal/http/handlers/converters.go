package handlers

import (
	"net/http"
	"sort"
)

type converterInfo struct {
	Kind          string   `json:"kind"`
	Endpoint      string   `json:"endpoint"`
	Category      string   `json:"category"`
	Mode          string   `json:"mode"`
	InputFormats  []string `json:"input_formats,omitempty"`
	TargetFormats []string `json:"target_formats,omitempty"`
	Available     bool     `json:"available"`
}

// Converters handles GET /converters: the full kind catalogue with per-kind
// availability derived from the capability probes, plus the aggregate
// category → supported extensions map.
func (a *App) Converters(w http.ResponseWriter, r *http.Request) {
	table := a.Dispatcher.Table()
	items := make([]converterInfo, 0, len(table))
	seen := make(map[string]map[string]struct{})
	for kind, spec := range table {
		items = append(items, converterInfo{
			Kind:          string(kind),
			Endpoint:      "/convert/" + string(kind),
			Category:      string(spec.Category),
			Mode:          string(spec.Mode),
			InputFormats:  spec.InputExts,
			TargetFormats: spec.TargetExts,
			Available:     len(a.Caps.Missing(spec.RequiredCapabilities)) == 0,
		})
		cat := string(spec.Category)
		if seen[cat] == nil {
			seen[cat] = make(map[string]struct{})
		}
		for _, ext := range spec.InputExts {
			seen[cat][ext] = struct{}{}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Kind < items[j].Kind })

	categories := make(map[string][]string, len(seen))
	for cat, exts := range seen {
		list := make([]string, 0, len(exts))
		for ext := range exts {
			list = append(list, ext)
		}
		sort.Strings(list)
		categories[cat] = list
	}

	a.json(w, http.StatusOK, map[string]any{
		"converters": items,
		"categories": categories,
	})
}
