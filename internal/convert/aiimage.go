package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// AIImageGenerate produces an image from a text prompt through a remote
// image-generation API.
type AIImageGenerate struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type imageGenRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type imageGenResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (c *AIImageGenerate) Convert(ctx context.Context, req Request) (Result, error) {
	prompt := strings.TrimSpace(req.Options.Get("prompt", ""))
	if prompt == "" {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "prompt is required")
	}
	if len(prompt) > 2000 {
		return Result{}, domain.NewError(domain.ErrInvalidRequest, "prompt exceeds 2000 characters")
	}

	size := req.Options.Get("size", "1024x1024")
	payload := imageGenRequest{Model: "gpt-image-1", Prompt: prompt, Size: size, N: 1}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "image request could not be encoded", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DocumentTimeout)
	defer cancel()

	url := strings.TrimRight(c.BaseURL, "/") + "/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "image request could not be built", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, domain.WrapError(domain.ErrTimeout, "image generation timed out", err)
		}
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "image service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "image service rejected the request",
			fmt.Errorf("image api: status %d: %s", resp.StatusCode, snippet))
	}

	var decoded imageGenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "image service returned malformed data", err)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].B64JSON == "" {
		return Result{}, domain.NewError(domain.ErrConverterFailed, "image service returned no image")
	}
	raw, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return Result{}, domain.WrapError(domain.ErrConverterFailed, "image service returned malformed data", err)
	}

	if err := writeAtomic(req.OutputPath, bytes.NewReader(raw)); err != nil {
		return Result{}, err
	}
	if err := VerifyOutput(req.OutputPath); err != nil {
		return Result{}, err
	}
	return Result{Metadata: map[string]any{"size": size}}, nil
}
