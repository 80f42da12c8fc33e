package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"email-lookup-service/internal/domain"
	"email-lookup-service/internal/domain/model"
)

// The expected JSON request body for submitting a batch.
type submitRequest struct {
	Kind        string            `json:"kind"`
	SourceLabel string            `json:"source_label,omitempty"`
	Items       []model.ItemInput `json:"items"`
}

// jobSummary is the list/poll representation: progress without the item
// payload, which can be large.
type jobSummary struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	TotalItems     int        `json:"total_items"`
	ProcessedCount int        `json:"processed_count"`
	SuccessCount   int        `json:"success_count"`
	FailCount      int        `json:"fail_count"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SourceLabel    string     `json:"source_label,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func summarize(j *model.Job) jobSummary {
	return jobSummary{
		ID:             j.ID,
		Kind:           string(j.Kind),
		Status:         string(j.Status),
		TotalItems:     len(j.Items),
		ProcessedCount: j.ProcessedCount,
		SuccessCount:   j.SuccessCount,
		FailCount:      j.FailCount,
		ErrorMessage:   j.ErrorMessage,
		SourceLabel:    j.SourceLabel,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		CompletedAt:    j.CompletedAt,
	}
}

type jobDetail struct {
	jobSummary
	Items []model.Item `json:"items"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 without the internal detail.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrUnknownJobKind),
		errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInsufficientCredits):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
	default:
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (s *Server) submitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		job, err := s.submitUC.Submit(ctx, ownerFromContext(ctx), model.JobKind(req.Kind), req.Items, req.SourceLabel)
		if err != nil {
			writeDomainError(w, err, "Failed to submit job")
			return
		}

		writeJSON(w, http.StatusCreated, summarize(job))
	}
}

func (s *Server) listHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50 // Default page size
		}

		jobs, err := s.jobUC.List(ctx, ownerFromContext(ctx), limit)
		if err != nil {
			http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
			return
		}

		summaries := make([]jobSummary, 0, len(jobs))
		for _, j := range jobs {
			summaries = append(summaries, summarize(j))
		}

		response := struct {
			Data  []jobSummary `json:"data"`
			Limit int          `json:"limit"`
		}{
			Data:  summaries,
			Limit: limit,
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *Server) getHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		job, err := s.jobUC.Get(ctx, ownerFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err, "Failed to get job")
			return
		}

		writeJSON(w, http.StatusOK, jobDetail{jobSummary: summarize(job), Items: job.Items})
	}
}

func (s *Server) stopHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		job, err := s.jobUC.Stop(ctx, ownerFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err, "Failed to stop job")
			return
		}

		writeJSON(w, http.StatusOK, summarize(job))
	}
}
