package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

// commandContext is swappable for tests.
var commandContext = exec.CommandContext

// Runner executes external tools under a hard timeout with stdout and stderr
// fully drained. Timeout expiry kills the process.
type Runner struct {
	logger infra.Logger
}

// NewRunner builds a Runner logging through logger.
func NewRunner(logger infra.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes name with args and waits for completion. The combined output
// is returned for metadata extraction; failures are mapped to the error
// taxonomy and the raw output stays out of client-visible errors.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := commandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug().
		Str("tool", name).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("external tool finished")

	if err != nil {
		return out.Bytes(), r.classify(ctx, name, err, out.Bytes())
	}
	return out.Bytes(), nil
}

// RunScan executes name with args, feeding each stdout line to onLine while
// the process runs. Stderr is drained into the returned output buffer. Used
// for tools that stream progress, such as ffmpeg with -progress pipe:1.
func (r *Runner) RunScan(ctx context.Context, timeout time.Duration, onLine func(string), name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := commandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.WrapError(domain.ErrConverterFailed, "tool could not be started", err)
	}
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return nil, r.classify(ctx, name, err, nil)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}

	if err := cmd.Wait(); err != nil {
		return errBuf.Bytes(), r.classify(ctx, name, err, errBuf.Bytes())
	}
	return errBuf.Bytes(), nil
}

func (r *Runner) classify(ctx context.Context, name string, err error, output []byte) error {
	tail := outputTail(output)
	if tail != "" {
		r.logger.Warn().Str("tool", name).Str("output", tail).Msg("external tool failed")
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.WrapError(domain.ErrTimeout, "conversion timed out", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.WrapError(domain.ErrTimeout, "conversion cancelled during shutdown", err)
	case looksExhausted(output):
		return domain.WrapError(domain.ErrResourceExhausted, "insufficient resources to convert", err)
	case isNotFound(err):
		return domain.WrapError(domain.ErrDependencyMissing, "conversion tool unavailable", err)
	default:
		return domain.WrapError(domain.ErrConverterFailed, "conversion tool failed", err)
	}
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}

func looksExhausted(output []byte) bool {
	s := strings.ToLower(string(output))
	return strings.Contains(s, "no space left") ||
		strings.Contains(s, "cannot allocate memory") ||
		strings.Contains(s, "out of memory")
}

func outputTail(output []byte) string {
	const max = 512
	s := strings.TrimSpace(string(output))
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

// VerifyOutput confirms the tool actually produced a non-empty artifact at
// path. External tools are fallible collaborators: a zero exit code does not
// guarantee an output file. Removes any empty leftover.
func VerifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return domain.WrapError(domain.ErrConverterFailed, "conversion produced no output", err)
	}
	if info.Size() == 0 {
		os.Remove(path)
		return domain.NewError(domain.ErrConverterFailed, "conversion produced an empty file")
	}
	return nil
}

// DiscardOutput removes a partial artifact after a failed conversion.
func DiscardOutput(path string) {
	if path != "" {
		os.Remove(path)
	}
}
