package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

type progressResponse struct {
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Progress handles GET /convert/{kind}/progress/{job_id}. Records are kept
// until the expiry sweep, so late pollers still see terminal outcomes.
func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, ok := a.Jobs.Get(jobID)
	if !ok {
		a.detail(w, http.StatusNotFound, "job not found")
		return
	}

	resp := progressResponse{
		Status:   string(job.State),
		Progress: job.Progress,
		Message:  job.Message,
	}
	if job.State == domain.JobCompleted {
		resp.DownloadURL = "/download/" + job.DownloadRef
	}
	if job.State == domain.JobFailed {
		resp.Error = string(job.ErrorKind)
	}
	a.json(w, http.StatusOK, resp)
}
