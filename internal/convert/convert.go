// Package convert defines the narrow contract every format converter
// implements and the static registry describing each conversion kind. The
// dispatch layer depends only on these types; the per-kind shims wrap
// external tools and remote services.
package convert

import (
	"context"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// Options carries the per-kind scalar parameters parsed from form fields or
// a JSON body (target format, quality, password, text, ...).
type Options map[string]string

// Get returns the option value or a default when absent.
func (o Options) Get(key, def string) string {
	if v, ok := o[key]; ok && v != "" {
		return v
	}
	return def
}

// Request is the converter input. InputPaths holds the staged upload(s);
// kinds that take no file leave it empty. Converters write exactly one
// artifact to OutputPath, except bundle kinds which fill BundleDir and leave
// archiving to the dispatcher.
type Request struct {
	InputPaths []string
	OutputPath string
	BundleDir  string
	Options    Options
	// Progress receives monotonically increasing percentages in [0,100)
	// while the converter runs. May be nil.
	Progress func(percent int, message string)
}

// Result carries optional structured metadata about a successful conversion.
type Result struct {
	Metadata map[string]any
}

// Converter is the contract every conversion shim implements. On failure the
// returned error carries a domain.ErrorKind; no partial output may remain at
// OutputPath.
type Converter interface {
	Convert(ctx context.Context, req Request) (Result, error)
}

// Mode selects how a kind executes relative to the submitting request.
type Mode string

const (
	// Inline kinds complete while the HTTP request is open.
	Inline Mode = "inline"
	// Background kinds return a job id and run on the worker pool.
	Background Mode = "background"
)

// Per-class converter time budgets.
const (
	MediaTimeout    = 30 * time.Minute
	DocumentTimeout = 10 * time.Minute
	ImageTimeout    = 5 * time.Minute
)

// Spec statically describes one conversion kind: its constraints, required
// capabilities, execution mode, and the converter that performs it.
type Spec struct {
	Kind     domain.Kind
	Category domain.Category
	Class    domain.WorkloadClass
	Mode     Mode

	// InputExts lists accepted upload extensions, without dots. Empty for
	// kinds that take no file.
	InputExts []string
	// TargetExts lists permitted target_format values; empty when the kind
	// has a fixed output format.
	TargetExts []string
	// OutputExt is the produced extension when target_format does not
	// determine it.
	OutputExt string

	// RequiresFile is false for text-only kinds fed by a JSON body.
	RequiresFile bool
	// MultiInput kinds accept two or more file parts in one request.
	MultiInput bool
	// Bundle kinds emit several artifacts that are archived into one zip.
	Bundle bool

	RequiredCapabilities []string
	Timeout              time.Duration

	Converter Converter
}

// ResolveOutputExt picks the extension of the artifact this kind will
// produce for the given options.
func (s Spec) ResolveOutputExt(opts Options) string {
	if s.Bundle {
		return "zip"
	}
	if len(s.TargetExts) > 0 {
		return opts.Get("target_format", s.OutputExt)
	}
	return s.OutputExt
}

// AcceptsInput reports whether ext is a permitted upload extension.
func (s Spec) AcceptsInput(ext string) bool {
	for _, e := range s.InputExts {
		if e == ext {
			return true
		}
	}
	return false
}

// AcceptsTarget reports whether target is a permitted target_format.
func (s Spec) AcceptsTarget(target string) bool {
	if len(s.TargetExts) == 0 {
		return true
	}
	for _, e := range s.TargetExts {
		if e == target {
			return true
		}
	}
	return false
}
