package convert

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// VideoConverter transcodes between container/codec formats with ffmpeg.
type VideoConverter struct {
	FFmpeg  string
	FFprobe string
	Runner  *Runner
}

func (c *VideoConverter) Convert(ctx context.Context, req Request) (Result, error) {
	input := req.InputPaths[0]
	target := strings.ToLower(req.Options.Get("target_format", "mp4"))

	args := []string{
		"-y", "-i", input,
		"-progress", "pipe:1", "-nostats", "-v", "warning",
	}
	switch req.Options.Get("quality", "medium") {
	case "low":
		args = append(args, "-crf", "30", "-preset", "fast")
	case "high":
		args = append(args, "-crf", "19", "-preset", "slow")
	default:
		args = append(args, "-crf", "23", "-preset", "medium")
	}
	switch target {
	case "webm":
		args = append(args, "-c:v", "libvpx-vp9", "-c:a", "libopus")
	case "avi":
		args = append(args, "-c:v", "libxvid", "-q:v", "4")
	case "mov":
		args = append(args, "-c:v", "libx264", "-tag:v", "avc1", "-c:a", "aac")
	default: // mp4, mkv, and friends
		args = append(args, "-c:v", "libx264", "-c:a", "aac", "-movflags", "+faststart")
	}
	args = append(args, req.OutputPath)

	durationUs := probeDurationUs(ctx, c.Runner, c.FFprobe, input)
	if _, err := c.Runner.RunScan(ctx, MediaTimeout, ffmpegProgressSink(durationUs, req.Progress), c.FFmpeg, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: sizeMetadata(input, req.OutputPath)}, nil
}

// AudioConverter transcodes audio with ffmpeg.
type AudioConverter struct {
	FFmpeg  string
	FFprobe string
	Runner  *Runner
}

func (c *AudioConverter) Convert(ctx context.Context, req Request) (Result, error) {
	input := req.InputPaths[0]
	target := strings.ToLower(req.Options.Get("target_format", "mp3"))

	args := []string{
		"-y", "-i", input, "-vn",
		"-progress", "pipe:1", "-nostats", "-v", "warning",
	}
	switch target {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-b:a", req.Options.Get("bitrate", "192k"))
	case "ogg", "oga":
		args = append(args, "-c:a", "libvorbis")
	case "opus":
		args = append(args, "-c:a", "libopus")
	case "aac", "m4a":
		args = append(args, "-c:a", "aac", "-b:a", req.Options.Get("bitrate", "192k"))
	case "flac":
		args = append(args, "-c:a", "flac")
	case "wav":
		args = append(args, "-c:a", "pcm_s16le")
	}
	args = append(args, req.OutputPath)

	durationUs := probeDurationUs(ctx, c.Runner, c.FFprobe, input)
	if _, err := c.Runner.RunScan(ctx, MediaTimeout, ffmpegProgressSink(durationUs, req.Progress), c.FFmpeg, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: sizeMetadata(input, req.OutputPath)}, nil
}

// ImageConverter rewrites raster images between formats with ffmpeg.
type ImageConverter struct {
	FFmpeg string
	Runner *Runner
}

func (c *ImageConverter) Convert(ctx context.Context, req Request) (Result, error) {
	input := req.InputPaths[0]
	args := []string{"-y", "-i", input, "-v", "warning"}
	if q := req.Options.Get("quality", ""); q != "" {
		args = append(args, "-q:v", q)
	}
	args = append(args, req.OutputPath)

	if _, err := c.Runner.Run(ctx, ImageTimeout, c.FFmpeg, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: sizeMetadata(input, req.OutputPath)}, nil
}

// ImageCompressor re-encodes an image at reduced quality, keeping its format.
type ImageCompressor struct {
	FFmpeg string
	Runner *Runner
}

func (c *ImageCompressor) Convert(ctx context.Context, req Request) (Result, error) {
	input := req.InputPaths[0]
	quality := req.Options.Get("quality", "75")
	if _, err := strconv.Atoi(quality); err != nil {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "quality must be an integer")
	}

	args := []string{"-y", "-i", input, "-v", "warning", "-qscale:v", scaleQuality(quality), req.OutputPath}
	if _, err := c.Runner.Run(ctx, ImageTimeout, c.FFmpeg, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: sizeMetadata(input, req.OutputPath)}, nil
}

// scaleQuality maps a 0-100 quality knob onto ffmpeg's 2-31 qscale range,
// where lower means better.
func scaleQuality(quality string) string {
	q, _ := strconv.Atoi(quality)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return strconv.Itoa(2 + (100-q)*29/100)
}

// probeDurationUs asks ffprobe for the input duration in microseconds.
// Returns 0 when unknown; progress then stays at the coarse milestones.
func probeDurationUs(ctx context.Context, runner *Runner, ffprobe, input string) int64 {
	out, err := runner.Run(ctx, ImageTimeout, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	)
	if err != nil {
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return int64(secs * 1e6)
}

// ffmpegProgressSink parses the key=value stream from -progress pipe:1 and
// forwards percentages. Values are clamped below 100 so completion is only
// reported once the output file is verified.
func ffmpegProgressSink(durationUs int64, progress func(int, string)) func(string) {
	if progress == nil {
		return nil
	}
	return func(line string) {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			return
		}
		switch key {
		case "out_time_us", "out_time_ms":
			if durationUs <= 0 {
				return
			}
			t, err := strconv.ParseInt(value, 10, 64)
			if err != nil || t < 0 {
				return
			}
			pct := int(float64(t) / float64(durationUs) * 100)
			if pct < 10 {
				pct = 10
			}
			if pct > 99 {
				pct = 99
			}
			progress(pct, "converting")
		case "progress":
			if value == "end" {
				progress(99, "finalizing")
			}
		}
	}
}

func sizeMetadata(inputPath, outputPath string) map[string]any {
	meta := make(map[string]any, 2)
	if info, err := os.Stat(inputPath); err == nil {
		meta["input_bytes"] = info.Size()
	}
	if info, err := os.Stat(outputPath); err == nil {
		meta["output_bytes"] = info.Size()
	}
	return meta
}
