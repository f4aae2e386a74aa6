// Package dispatch turns validated conversion requests into tracked work:
// it gates size and rate budgets, stages uploads, picks inline or background
// execution, drives the converter, and owns the cleanup policy.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rafey804/flipfilex-sub000/internal/capability"
	"github.com/rafey804/flipfilex-sub000/internal/convert"
	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
	"github.com/rafey804/flipfilex-sub000/internal/jobs"
	"github.com/rafey804/flipfilex-sub000/internal/middleware"
	"github.com/rafey804/flipfilex-sub000/internal/ratelimit"
	"github.com/rafey804/flipfilex-sub000/internal/storage"
	"github.com/rafey804/flipfilex-sub000/pkg/zip"
)

// Upload is one file part of a submission. The reader streams the part body;
// Size is the declared part size from the multipart header.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// Submission is a parsed conversion request.
type Submission struct {
	Kind    domain.Kind
	Client  string
	Files   []Upload
	Options convert.Options
}

// InlineResult is returned when the conversion completed within the request.
type InlineResult struct {
	DownloadRef string
	Filename    string
	Metadata    map[string]any
}

// Outcome reports how a submission was handled: either a background job id
// or a finished inline result.
type Outcome struct {
	JobID  string
	Inline *InlineResult
}

// Dispatcher routes submissions to converters and tracks their lifecycle.
type Dispatcher struct {
	store   *storage.FileStore
	jobs    *jobs.Registry
	pool    *jobs.Pool
	limiter *ratelimit.Limiter
	caps    *capability.Registry
	table   map[domain.Kind]convert.Spec
	logger  infra.Logger
}

// New wires the dispatcher with its collaborators.
func New(
	store *storage.FileStore,
	registry *jobs.Registry,
	pool *jobs.Pool,
	limiter *ratelimit.Limiter,
	caps *capability.Registry,
	table map[domain.Kind]convert.Spec,
	logger infra.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:   store,
		jobs:    registry,
		pool:    pool,
		limiter: limiter,
		caps:    caps,
		table:   table,
		logger:  logger,
	}
}

// Spec looks up the registry entry for a kind.
func (d *Dispatcher) Spec(kind domain.Kind) (convert.Spec, bool) {
	spec, ok := d.table[kind]
	return spec, ok
}

// Table exposes the full kind registry for the health and listing endpoints.
func (d *Dispatcher) Table() map[domain.Kind]convert.Spec {
	return d.table
}

// Submit runs the dispatch pipeline for one request. Validation failures
// return before any byte reaches the storage area.
func (d *Dispatcher) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	spec, ok := d.table[sub.Kind]
	if !ok {
		return Outcome{}, domain.NewError(domain.ErrUnknownKind, fmt.Sprintf("unknown conversion kind %q", sub.Kind))
	}

	if err := validateShape(spec, sub); err != nil {
		return Outcome{}, err
	}

	if missing := d.caps.Missing(spec.RequiredCapabilities); len(missing) > 0 {
		return Outcome{}, domain.NewError(domain.ErrDependencyMissing,
			fmt.Sprintf("required tool unavailable: %s", strings.Join(missing, ", ")))
	}

	if ok, retry := d.limiter.Allow(sub.Client, spec.Class); !ok {
		return Outcome{}, domain.NewError(domain.ErrRateLimited,
			fmt.Sprintf("rate limit exceeded, retry in %ds", int(retry.Seconds())+1))
	}

	budget := spec.Category.MaxBytes()
	for _, f := range sub.Files {
		if f.Size > budget {
			return Outcome{}, domain.NewError(domain.ErrPayloadTooLarge,
				fmt.Sprintf("file exceeds the %d MB limit for this conversion", budget>>20))
		}
	}

	inputRefs, err := d.stageInputs(spec, sub, budget)
	if err != nil {
		return Outcome{}, err
	}

	outName := d.outputName(spec, sub)

	if spec.Mode == convert.Inline {
		// A client disconnect must not abort the tool mid-write; the
		// artifact stays and the expiry sweep reaps it.
		res, err := d.run(context.WithoutCancel(ctx), spec, inputRefs, outName, sub.Options, nil)
		d.removeAll(inputRefs)
		if err != nil {
			middleware.ConversionsTotal.WithLabelValues(string(spec.Kind), "failed").Inc()
			return Outcome{}, err
		}
		middleware.ConversionsTotal.WithLabelValues(string(spec.Kind), "completed").Inc()
		return Outcome{Inline: &InlineResult{
			DownloadRef: outName,
			Filename:    storage.DisplayName(outName),
			Metadata:    res.Metadata,
		}}, nil
	}

	jobID := d.jobs.Create(spec.Kind, inputRefs)
	middleware.ActiveJobs.Inc()

	accepted := d.pool.Submit(jobs.Task{
		JobID: jobID,
		Run: func(ctx context.Context) {
			d.runJob(ctx, jobID, spec, inputRefs, outName, sub.Options)
		},
	})
	if !accepted {
		d.jobs.Fail(jobID, domain.ErrResourceExhausted, "conversion queue is full")
		middleware.ActiveJobs.Dec()
		d.removeAll(inputRefs)
		return Outcome{}, domain.NewError(domain.ErrResourceExhausted, "conversion queue is full, try again later")
	}

	return Outcome{JobID: jobID}, nil
}

// validateShape enforces file counts, extensions, and target formats before
// any heavy work.
func validateShape(spec convert.Spec, sub Submission) error {
	switch {
	case !spec.RequiresFile && len(sub.Files) > 0:
		return domain.NewError(domain.ErrInvalidRequest, "this conversion does not accept file uploads")
	case spec.RequiresFile && len(sub.Files) == 0:
		return domain.NewError(domain.ErrInvalidRequest, "a file upload is required")
	case spec.MultiInput && len(sub.Files) < 2:
		return domain.NewError(domain.ErrInvalidRequest, "at least two files are required")
	case !spec.MultiInput && len(sub.Files) > 1:
		return domain.NewError(domain.ErrInvalidRequest, "exactly one file is expected")
	}

	for _, f := range sub.Files {
		ext := extOf(f.Filename)
		if !spec.AcceptsInput(ext) {
			return domain.NewError(domain.ErrUnsupportedFormat, fmt.Sprintf("unsupported input format %q", ext))
		}
	}

	if target := sub.Options.Get("target_format", ""); target != "" && !spec.AcceptsTarget(strings.ToLower(target)) {
		return domain.NewError(domain.ErrUnsupportedFormat, fmt.Sprintf("unsupported target format %q", target))
	}
	return nil
}

// stageInputs streams every upload into the storage area, enforcing the
// byte budget on the wire and checking the staged size against the declared
// one.
func (d *Dispatcher) stageInputs(spec convert.Spec, sub Submission, budget int64) ([]string, error) {
	var staged []string
	for _, f := range sub.Files {
		name := storage.NewName(extOf(f.Filename), f.Filename)
		size, err := d.store.Stage(name, io.LimitReader(f.Reader, budget+1))
		if err != nil {
			d.removeAll(staged)
			return nil, domain.WrapError(domain.ErrConverterFailed, "upload could not be stored", err)
		}
		staged = append(staged, name)
		if size > budget {
			d.removeAll(staged)
			return nil, domain.NewError(domain.ErrPayloadTooLarge,
				fmt.Sprintf("file exceeds the %d MB limit for this conversion", budget>>20))
		}
		if f.Size > 0 && size != f.Size {
			d.removeAll(staged)
			return nil, domain.NewError(domain.ErrInvalidRequest, "upload size does not match the declared size")
		}
		middleware.StagedBytes.Add(float64(size))
	}
	return staged, nil
}

// outputName picks the artifact name for the submission, carrying the
// original filename as a display hint.
func (d *Dispatcher) outputName(spec convert.Spec, sub Submission) string {
	ext := spec.ResolveOutputExt(sub.Options)
	hint := string(spec.Kind)
	if len(sub.Files) > 0 {
		hint = sub.Files[0].Filename
		if ext == "" {
			// Kinds without a fixed output keep the input extension.
			ext = extOf(sub.Files[0].Filename)
		}
	}
	return storage.NewName(ext, hint)
}

// runJob drives one background job from queued to terminal state and applies
// the cleanup policy.
func (d *Dispatcher) runJob(ctx context.Context, jobID string, spec convert.Spec, inputRefs []string, outName string, opts convert.Options) {
	defer middleware.ActiveJobs.Dec()
	defer d.removeAll(inputRefs)

	d.jobs.Advance(jobID, domain.JobProcessing, 10, "converting")

	progress := func(pct int, msg string) {
		d.jobs.Advance(jobID, domain.JobProcessing, pct, msg)
	}
	res, err := d.run(ctx, spec, inputRefs, outName, opts, progress)
	if err != nil {
		d.logger.Error().Err(err).Str("job_id", jobID).Str("kind", string(spec.Kind)).Msg("conversion failed")
		d.jobs.Fail(jobID, domain.KindOf(err), domain.DetailOf(err))
		middleware.ConversionsTotal.WithLabelValues(string(spec.Kind), "failed").Inc()
		d.removeOutput(outName)
		return
	}
	d.jobs.Complete(jobID, outName, res.Metadata)
	middleware.ConversionsTotal.WithLabelValues(string(spec.Kind), "completed").Inc()
	d.logger.Info().Str("job_id", jobID).Str("kind", string(spec.Kind)).Msg("conversion completed")
}

// run resolves paths, invokes the converter, and archives bundle output.
func (d *Dispatcher) run(ctx context.Context, spec convert.Spec, inputRefs []string, outName string, opts convert.Options, progress func(int, string)) (convert.Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	inputPaths := make([]string, 0, len(inputRefs))
	for _, ref := range inputRefs {
		full, err := d.store.Resolve(ref)
		if err != nil {
			return convert.Result{}, err
		}
		inputPaths = append(inputPaths, full)
	}
	outputPath, err := d.store.Resolve(outName)
	if err != nil {
		return convert.Result{}, err
	}

	req := convert.Request{
		InputPaths: inputPaths,
		OutputPath: outputPath,
		Options:    opts,
		Progress:   progress,
	}

	if !spec.Bundle {
		return spec.Converter.Convert(ctx, req)
	}

	bundleName, bundlePath, err := d.store.MakeBundleDir()
	if err != nil {
		return convert.Result{}, domain.WrapError(domain.ErrConverterFailed, "workspace could not be prepared", err)
	}
	defer d.removeAll([]string{bundleName})

	req.BundleDir = bundlePath
	res, err := spec.Converter.Convert(ctx, req)
	if err != nil {
		return convert.Result{}, err
	}
	if err := zip.ArchiveDir(bundlePath, outputPath); err != nil {
		return convert.Result{}, domain.WrapError(domain.ErrConverterFailed, "artifacts could not be archived", err)
	}
	if err := convert.VerifyOutput(outputPath); err != nil {
		return convert.Result{}, err
	}
	return res, nil
}

func (d *Dispatcher) removeAll(refs []string) {
	for _, ref := range refs {
		if err := d.store.Remove(ref); err != nil {
			d.logger.Warn().Err(err).Str("entry", ref).Msg("cleanup failed")
		}
	}
}

func (d *Dispatcher) removeOutput(outName string) {
	if err := d.store.Remove(outName); err != nil {
		d.logger.Warn().Err(err).Str("entry", outName).Msg("output cleanup failed")
	}
}

func extOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
