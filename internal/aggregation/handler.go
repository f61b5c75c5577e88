package aggregation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aevon-lab/resampler/internal/core/aggregation"
	httperr "github.com/aevon-lab/resampler/internal/core/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes aggregation runs over HTTP.
type Handler struct {
	ctx     context.Context
	service *Service
	setups  aggregation.SetupRepository
	runs    RunStore
}

// NewHandler creates a handler; runs it triggers are bound to ctx, not to the request.
func NewHandler(ctx context.Context, service *Service, setups aggregation.SetupRepository, runs RunStore) *Handler {
	return &Handler{ctx: ctx, service: service, setups: setups, runs: runs}
}

// RegisterRoutes registers the aggregation run routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/aggregations/runs", h.HandleStartRun)
	r.GET("/v1/aggregations/runs", h.HandleListRuns)
}

type startRunRequest struct {
	Setup string `json:"setup" binding:"required"`
	Begin string `json:"begin" binding:"required"`
	End   string `json:"end" binding:"required"`
	Force bool   `json:"force"`
}

// HandleStartRun handles POST /v1/aggregations/runs.
// The run executes in the background; the response carries its id.
func (h *Handler) HandleStartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid run request",
			Details:   err.Error(),
		})
		return
	}

	setup, err := h.setups.Get(req.Setup)
	if err != nil {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Setup not found",
			Details:   err.Error(),
		})
		return
	}

	begin, beginErr := time.Parse(time.DateOnly, req.Begin)
	end, endErr := time.Parse(time.DateOnly, req.End)
	if err := errors.Join(beginErr, endErr); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Dates must be formatted as YYYY-MM-DD",
			Details:   err.Error(),
		})
		return
	}
	setup.Begin = begin
	setup.End = end
	setup.Force = setup.Force || req.Force

	if err := setup.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidSetupError,
			Message:   "Invalid run range",
			Details:   err.Error(),
		})
		return
	}

	runID := uuid.NewString()
	go func() {
		if _, err := h.service.RunWithID(h.ctx, runID, setup); err != nil {
			slog.Error("[Aggregation] Triggered run failed", "run_id", runID, "setup", setup.Name, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

// HandleListRuns handles GET /v1/aggregations/runs?setup=&limit=
func (h *Handler) HandleListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequestError,
				Message:   "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), c.Query("setup"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list runs",
			Details:   err.Error(),
		})
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

type runResponse struct {
	ID         string     `json:"id"`
	Setup      string     `json:"setup"`
	Begin      string     `json:"begin"`
	End        string     `json:"end"`
	Force      bool       `json:"force"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Committed  int        `json:"committed"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
}

func toRunResponse(run Run) runResponse {
	resp := runResponse{
		ID:        run.ID,
		Setup:     run.SetupName,
		Begin:     run.Begin.Format(time.DateOnly),
		End:       run.End.Format(time.DateOnly),
		Force:     run.Force,
		Status:    run.Status,
		StartedAt: run.StartedAt,
		Committed: run.Committed,
		Skipped:   run.Skipped,
		Failed:    run.Failed,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}
