package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slidecast/slidecast/internal/models"
)

// ExportStore is the subset of the database the handlers need.
type ExportStore interface {
	CreateExport(ctx context.Context, export *models.Export) error
	GetExport(ctx context.Context, id uuid.UUID) (*models.Export, error)
	ListExports(ctx context.Context, status string, limit, offset int) ([]models.Export, error)
	CountExports(ctx context.Context, status string) (int, error)
}

// ExportQueue hands accepted exports off to the worker pool.
type ExportQueue interface {
	EnqueueExport(ctx context.Context, exportID uuid.UUID, templateURL string) error
}

type Handler struct {
	db    ExportStore
	queue ExportQueue
}

func NewHandler(store ExportStore, q ExportQueue) *Handler {
	return &Handler{
		db:    store,
		queue: q,
	}
}

// CreateExport handles POST /v1/exports.
// Validates the payload, snapshots the slideshow into an export row with
// status=processing, enqueues the render job, and returns 202 immediately —
// the client polls GET /v1/exports/{id} until the status is terminal.
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if req.Data.Images == nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	aspect := req.Data.Aspect
	if aspect == "" {
		aspect = models.AspectVertical
	}
	if !models.ValidAspect(aspect) {
		respondError(w, http.StatusBadRequest, "Invalid aspect. Allowed: 1:1, 4:5, 3:4, 9:16")
		return
	}

	// Snapshot the slideshow state plus initial orchestration fields
	data := req.Data
	data.Aspect = aspect
	data.Status = models.ExportStatusProcessing
	data.Progress = &models.Progress{Completed: 0, Total: len(data.Images)}
	data.Video = nil
	data.Error = nil

	payload, err := data.ToJSONB()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to encode export data")
		return
	}

	export := &models.Export{
		ID:               uuid.New(),
		Title:            req.Title,
		Prompt:           req.Data.Prompt,
		Aspect:           aspect,
		NumSlides:        req.NumSlides,
		TotalDurationSec: req.TotalDurationSec,
		ThumbnailURL:     req.ThumbnailURL,
		Data:             payload,
	}

	if err := h.db.CreateExport(r.Context(), export); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create export")
		return
	}

	templateURL := ""
	if req.TemplateURL != nil {
		templateURL = *req.TemplateURL
	}

	if err := h.queue.EnqueueExport(r.Context(), export.ID, templateURL); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue export")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateExportResponse{
		ExportID: export.ID,
	})
}

// GetExport handles GET /v1/exports/{id} — the status poll endpoint.
// A pure read: polling twice with no pipeline activity returns the same payload.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	exportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid export ID")
		return
	}

	export, err := h.db.GetExport(r.Context(), exportID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Export not found")
		return
	}

	respondJSON(w, http.StatusOK, export)
}

// ListExports handles GET /v1/exports
// Query params:
//   - status: filter by orchestration status (processing, completed, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.ExportStatus(statusFilter) {
		case models.ExportStatusProcessing, models.ExportStatusCompleted, models.ExportStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: processing, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountExports(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count exports")
		return
	}

	exports, err := h.db.ListExports(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list exports")
		return
	}

	// Lightweight summaries — orchestration fields pulled out of the payload,
	// slide arrays omitted
	summaries := make([]models.ExportSummary, 0, len(exports))
	for _, export := range exports {
		summary := models.ExportSummary{
			ID:               export.ID,
			Title:            export.Title,
			Aspect:           export.Aspect,
			NumSlides:        export.NumSlides,
			TotalDurationSec: export.TotalDurationSec,
			ThumbnailURL:     export.ThumbnailURL,
			Status:           models.ExportStatusProcessing,
			CreatedAt:        export.CreatedAt,
		}

		if data, err := models.ExportDataFromJSONB(export.Data); err == nil {
			if data.Status != "" {
				summary.Status = data.Status
			}
			summary.Progress = data.Progress
			summary.Video = data.Video
		}

		summaries = append(summaries, summary)
	}

	respondJSON(w, http.StatusOK, models.ListExportsResponse{
		Exports: summaries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// GetExportDownload handles GET /v1/exports/{id}/download.
// Redirects to the published video once the export has completed.
func (h *Handler) GetExportDownload(w http.ResponseWriter, r *http.Request) {
	exportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid export ID")
		return
	}

	export, err := h.db.GetExport(r.Context(), exportID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Export not found")
		return
	}

	data, err := models.ExportDataFromJSONB(export.Data)
	if err != nil || data.Status != models.ExportStatusCompleted || data.Video == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	// A degraded export holds a file:// reference, which can't be redirected to
	if !strings.HasPrefix(*data.Video, "http") {
		respondError(w, http.StatusNotFound, "Video was not published to storage")
		return
	}

	http.Redirect(w, r, *data.Video, http.StatusTemporaryRedirect)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
