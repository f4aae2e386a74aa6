// Package capability probes the external tools and remote services the
// converters depend on. Probes run once at startup; the resulting report is
// read-only for the life of the process.
package capability

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strings"
	"time"
)

const probeTimeout = 3 * time.Second

// Probe describes one external collaborator to check at startup.
type Probe struct {
	// Name is the capability identifier converters reference.
	Name string
	// Command is the binary to locate and run. Empty for remote capabilities.
	Command string
	// VersionArg is passed to the binary to elicit a version banner.
	VersionArg string
	// Remote capabilities are available iff Key is non-empty.
	Remote bool
	Key    string
}

// Status reports the availability of one capability.
type Status struct {
	Name        string
	Available   bool
	VersionHint string
	Detail      string
}

// Registry holds the frozen probe results.
type Registry struct {
	statuses map[string]Status
}

// Detect runs every probe and freezes the results. Binary probes resolve the
// command on PATH and run it with its version flag under a short timeout;
// remote probes only check that a key is configured.
func Detect(probes []Probe) *Registry {
	statuses := make(map[string]Status, len(probes))
	for _, p := range probes {
		statuses[p.Name] = runProbe(p)
	}
	return &Registry{statuses: statuses}
}

func runProbe(p Probe) Status {
	st := Status{Name: p.Name}
	if p.Remote {
		if strings.TrimSpace(p.Key) == "" {
			st.Detail = "api key not configured"
			return st
		}
		st.Available = true
		return st
	}

	cmd := strings.TrimSpace(p.Command)
	if cmd == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		st.Detail = "binary not found"
		return st
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var out bytes.Buffer
	run := exec.CommandContext(ctx, path, p.VersionArg)
	run.Stdout = &out
	run.Stderr = &out
	if err := run.Run(); err != nil && out.Len() == 0 {
		// Some tools exit nonzero on version flags but still print a banner;
		// only a silent failure counts as unavailable.
		st.Detail = "version probe failed"
		return st
	}

	st.Available = true
	st.VersionHint = firstLine(out.Bytes())
	return st
}

func firstLine(b []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(b))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// Available reports whether the named capability probed successfully.
// Unknown names are unavailable.
func (r *Registry) Available(name string) bool {
	if r == nil {
		return false
	}
	return r.statuses[name].Available
}

// Missing returns the subset of names that are not available, in input order.
func (r *Registry) Missing(names []string) []string {
	var missing []string
	for _, n := range names {
		if !r.Available(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Report returns all statuses sorted by name, for the health endpoint and
// startup logging.
func (r *Registry) Report() []Status {
	if r == nil {
		return nil
	}
	out := make([]Status, 0, len(r.statuses))
	for _, st := range r.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
