package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rafey804/flipfilex-sub000/internal/storage"
	"github.com/rafey804/flipfilex-sub000/pkg/mimetype"
)

// Download handles GET /download/*. The wildcard admits one level of
// subdirectory for bundle artifacts; the store's resolver rejects anything
// else.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		a.detail(w, http.StatusBadRequest, "malformed download name")
		return
	}

	f, info, err := a.Store.Open(name)
	if err != nil {
		a.fail(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", mimetype.ByName(name))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", downloadFilename(name)))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

var asciiFold = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	norm.NFC,
)

// downloadFilename derives the attachment filename: the embedded original
// name hint when present, folded to ASCII so the header never needs
// RFC 2231 encoding.
func downloadFilename(name string) string {
	display := storage.DisplayName(name)
	if i := strings.LastIndexByte(display, '/'); i >= 0 {
		display = display[i+1:]
	}

	folded, _, err := transform.String(asciiFold, display)
	if err != nil || strings.TrimSpace(folded) == "" {
		return display
	}
	folded = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, folded)
	if strings.TrimSpace(strings.Trim(folded, "._")) == "" {
		return display
	}
	return folded
}
