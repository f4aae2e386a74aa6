package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// QRGenerate renders text into a QR code PNG with qrencode.
type QRGenerate struct {
	Qrencode string
	Runner   *Runner
}

func (c *QRGenerate) Convert(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Options.Get("text", ""))
	if text == "" {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "text is required")
	}
	if len(text) > 4000 {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "text exceeds 4000 characters")
	}

	size := req.Options.Get("size", "8")
	args := []string{"-o", req.OutputPath, "-s", size, "-m", "2", text}
	if _, err := c.Runner.Run(ctx, ImageTimeout, c.Qrencode, args...); err != nil {
		DiscardOutput(req.OutputPath)
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"characters": len(text)}}, nil
}

// TextToSpeech synthesizes speech through a remote TTS API and stores the
// audio stream as the output artifact.
type TextToSpeech struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type ttsRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

func (c *TextToSpeech) Convert(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Options.Get("text", ""))
	if text == "" {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "text is required")
	}
	if len(text) > 4000 {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "text exceeds 4000 characters")
	}

	payload := ttsRequest{
		Model: "tts-1",
		Voice: req.Options.Get("voice", "alloy"),
		Input: text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "speech request could not be encoded", err)
	}

	ctx, cancel := context.WithTimeout(ctx, MediaTimeout)
	defer cancel()

	url := strings.TrimRight(c.BaseURL, "/") + "/audio/speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "speech request could not be built", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, domain.WrapError(domain.ErrTimeout, "speech synthesis timed out", err)
		}
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "speech service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "speech service rejected the request",
			fmt.Errorf("tts: status %d: %s", resp.StatusCode, snippet))
	}

	if err := writeAtomic(req.OutputPath, resp.Body); err != nil {
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"characters": len(text), "voice": payload.Voice}}, nil
}

func writeAtomic(path string, r io.Reader) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return domain.WrapError(domain.ErrConverterFailed, "speech output could not be stored", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return domain.WrapError(domain.ErrConverterFailed, "speech output could not be stored", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return domain.WrapError(domain.ErrConverterFailed, "speech output could not be stored", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return domain.WrapError(domain.ErrConverterFailed, "speech output could not be stored", err)
	}
	return nil
}
