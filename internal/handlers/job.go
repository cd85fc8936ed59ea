package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"viralforge/internal/jobs"
	"viralforge/internal/models"
	"viralforge/internal/storage"
)

// JobHandler serves the job API.
type JobHandler struct {
	repo *storage.JobRepository
	hub  *jobs.Hub
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(repo *storage.JobRepository, hub *jobs.Hub) *JobHandler {
	return &JobHandler{repo: repo, hub: hub}
}

type submitRequest struct {
	InputReference string `json:"input_reference"`
	OwnerID        string `json:"owner_id"`
	Niche          string `json:"niche"`
	Style          string `json:"style"`
	Platform       string `json:"platform"`
	QualityTier    string `json:"quality_tier"`
}

// Submit accepts a new job and enqueues it.
func (h *JobHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.InputReference) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "input_reference is required"})
	}

	job := &models.VideoJob{
		OwnerID:        req.OwnerID,
		InputReference: req.InputReference,
		Niche:          req.Niche,
		Style:          req.Style,
		Platform:       req.Platform,
		QualityTier:    req.QualityTier,
	}
	if err := h.repo.Create(ctx, job); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	h.hub.Publish(jobs.Event{
		JobID:    job.ID,
		Status:   models.StatusQueued,
		Progress: 0,
	})

	return c.JSON(http.StatusCreated, job)
}

// List returns recent jobs, optionally filtered by status.
func (h *JobHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	status := c.QueryParam("status")

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		list []models.VideoJob
		err  error
	)
	if status != "" {
		list, err = h.repo.ListByStatus(ctx, models.JobStatus(status), limit)
	} else {
		list, err = h.repo.ListRecent(ctx, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, list)
}

// Get returns one job.
func (h *JobHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	job, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	return c.JSON(http.StatusOK, job)
}

// Stats returns job counts by status.
func (h *JobHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	counts, err := h.repo.CountByStatus(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, counts)
}

// Abort requests cancellation of a running job. The request takes effect
// at the next stage boundary; a queued job aborts immediately on claim.
func (h *JobHandler) Abort(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	job, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	if job.Status.Terminal() {
		return c.JSON(http.StatusConflict, map[string]string{"error": "job already " + string(job.Status)})
	}

	if err := h.repo.RequestAbort(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "abort requested"})
}

// Events returns progress events after the given sequence number. Clients
// poll with their last seen seq; delivery is at-least-once, so a client
// may see an event twice and must dedupe on seq.
func (h *JobHandler) Events(c echo.Context) error {
	var since int64
	if s := c.QueryParam("since"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid since parameter"})
		}
		since = parsed
	}

	events := h.hub.Since(since)
	if events == nil {
		events = []jobs.Event{}
	}
	return c.JSON(http.StatusOK, events)
}
