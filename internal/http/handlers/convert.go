package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rafey804/flipfilex-sub000/internal/convert"
	"github.com/rafey804/flipfilex-sub000/internal/dispatch"
	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/middleware"
)

// multipartMemory is the in-memory threshold for multipart parsing; larger
// parts spill to temporary files which the staging step then streams.
const multipartMemory = 32 << 20

type inlineResponse struct {
	Message     string         `json:"message"`
	DownloadURL string         `json:"download_url"`
	Filename    string         `json:"filename"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type startedResponse struct {
	Message     string `json:"message"`
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	ProgressURL string `json:"progress_url"`
}

// Convert handles POST /convert/{kind}. File kinds submit multipart bodies;
// text-only kinds submit JSON.
func (a *App) Convert(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(chi.URLParam(r, "kind"))

	sub := dispatch.Submission{
		Kind:   kind,
		Client: middleware.ClientIP(r),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		files, opts, cleanup, err := parseMultipart(r)
		if err != nil {
			a.detail(w, http.StatusBadRequest, "request body could not be parsed")
			return
		}
		defer cleanup()
		sub.Files = files
		sub.Options = opts
	} else {
		opts, err := parseJSONOptions(r)
		if err != nil {
			a.detail(w, http.StatusBadRequest, "request body could not be parsed")
			return
		}
		sub.Options = opts
	}

	out, err := a.Dispatcher.Submit(r.Context(), sub)
	if err != nil {
		a.fail(w, err)
		return
	}

	if out.Inline != nil {
		a.json(w, http.StatusOK, inlineResponse{
			Message:     "conversion completed",
			DownloadURL: "/download/" + out.Inline.DownloadRef,
			Filename:    out.Inline.Filename,
			Metadata:    out.Inline.Metadata,
		})
		return
	}
	a.json(w, http.StatusOK, startedResponse{
		Message:     "conversion started",
		JobID:       out.JobID,
		Status:      "started",
		ProgressURL: fmt.Sprintf("/convert/%s/progress/%s", kind, out.JobID),
	})
}

// parseMultipart collects every file part plus the scalar form fields. The
// returned cleanup closes the opened parts and drops any spill files.
func parseMultipart(r *http.Request) ([]dispatch.Upload, convert.Options, func(), error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, nil, err
	}

	var (
		uploads []dispatch.Upload
		opened  []multipart.File
	)
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	// Both "file" and "files" are accepted; merge kinds use the latter.
	for _, field := range []string{"file", "files"} {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				cleanup()
				return nil, nil, nil, err
			}
			opened = append(opened, f)
			uploads = append(uploads, dispatch.Upload{
				Filename: fh.Filename,
				Size:     fh.Size,
				Reader:   f,
			})
		}
	}

	opts := make(convert.Options, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			opts[key] = values[0]
		}
	}
	return uploads, opts, cleanup, nil
}

// parseJSONOptions decodes a flat JSON object of scalar options for kinds
// that take no file upload.
func parseJSONOptions(r *http.Request) (convert.Options, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	opts := make(convert.Options, len(raw))
	for key, v := range raw {
		switch t := v.(type) {
		case string:
			opts[key] = t
		case float64:
			opts[key] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			opts[key] = strconv.FormatBool(t)
		}
	}
	return opts, nil
}
