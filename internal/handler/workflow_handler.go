package handler

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"greenlens/internal/domain"
	"greenlens/internal/export"
	"greenlens/internal/service"
)

const defaultHeartbeat = 15 * time.Second

// WorkflowHandler exposes the upload workflow, its findings and exports.
type WorkflowHandler struct {
	workflow  service.WorkflowService
	syncer    service.SyncService
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(workflow service.WorkflowService, syncer service.SyncService, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflow:  workflow,
		syncer:    syncer,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// State handles GET /api/v1/workflow
// @Summary Get workflow state
// @Description Returns the current phase, ticket, progress, result and error
// @Tags workflow
// @Produce json
// @Success 200 {object} Response{data=domain.WorkflowState}
// @Router /workflow [get]
func (h *WorkflowHandler) State(c *gin.Context) {
	RespondOK(c, h.workflow.State())
}

// Events handles GET /api/v1/workflow/events
// @Summary Stream workflow state
// @Description Server-sent events carrying a state snapshot after every transition
// @Tags workflow
// @Produce text/event-stream
// @Router /workflow/events [get]
func (h *WorkflowHandler) Events(c *gin.Context) {
	// capacity 1: a slow client only ever misses intermediate snapshots
	latest := make(chan domain.WorkflowState, 1)
	cancel := h.workflow.Observe(func(s domain.WorkflowState) {
		select {
		case latest <- s:
		default:
			select {
			case <-latest:
			default:
			}
			latest <- s
		}
	})
	defer cancel()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case s := <-latest:
			c.SSEvent("state", s)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Upload handles POST /api/v1/workflow/uploads
// @Summary Upload a sustainability report
// @Description Validates the PDF, uploads it to the analysis backend and opens its progress stream
// @Tags workflow
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF report (max 50MB)"
// @Success 201 {object} Response{data=domain.WorkflowState} "Upload accepted; analysis in progress"
// @Failure 400 {object} ErrorResponseBody "Missing file or rejected by validation"
// @Failure 502 {object} ErrorResponseBody "Backend rejected or failed the upload"
// @Router /workflow/uploads [post]
func (h *WorkflowHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	candidate := domain.CandidateFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}

	if err := h.workflow.StartUpload(c.Request.Context(), candidate); err != nil {
		h.handleError(c, err)
		return
	}
	RespondCreated(c, h.workflow.State())
}

// Reset handles POST /api/v1/workflow/reset
// @Summary Acknowledge error / start over
// @Tags workflow
// @Produce json
// @Success 200 {object} Response{data=domain.WorkflowState}
// @Router /workflow/reset [post]
func (h *WorkflowHandler) Reset(c *gin.Context) {
	h.workflow.Reset()
	RespondOK(c, h.workflow.State())
}

// Highlights handles GET /api/v1/workflow/highlights
// @Summary Evidence highlight strings
// @Description Every initiative's evidence with line breaks and their surrounding whitespace removed
// @Tags workflow
// @Produce json
// @Success 200 {object} Response{data=HighlightsResponse}
// @Failure 409 {object} ErrorResponseBody "No analysis result yet"
// @Router /workflow/highlights [get]
func (h *WorkflowHandler) Highlights(c *gin.Context) {
	result := h.workflow.State().Result
	if result == nil {
		h.handleError(c, domain.ErrNoResult)
		return
	}
	RespondOK(c, HighlightsResponse{Highlights: h.syncer.HighlightSet(result)})
}

// Jump handles POST /api/v1/initiatives/:index/jump
// @Summary Navigate the viewer to an initiative
// @Description Converts the initiative's page label to a page index and asks the attached viewer to show it
// @Tags initiatives
// @Produce json
// @Param index path int true "0-based initiative index"
// @Success 200 {object} Response{data=JumpResponse}
// @Failure 400 {object} ErrorResponseBody "Invalid index"
// @Failure 404 {object} ErrorResponseBody "Initiative not found"
// @Failure 409 {object} ErrorResponseBody "No analysis result yet"
// @Failure 422 {object} ErrorResponseBody "Page label is not a number"
// @Failure 503 {object} ErrorResponseBody "No viewer attached"
// @Router /initiatives/{index}/jump [post]
func (h *WorkflowHandler) Jump(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INDEX", "index must be an integer")
		return
	}

	result := h.workflow.State().Result
	if result == nil {
		h.handleError(c, domain.ErrNoResult)
		return
	}
	initiative, err := result.Initiative(index)
	if err != nil {
		h.handleError(c, err)
		return
	}

	pageIndex, err := h.syncer.JumpTo(c.Request.Context(), initiative)
	if err != nil {
		h.handleError(c, err)
		return
	}

	RespondOK(c, JumpResponse{Index: index, PageIndex: pageIndex, Initiative: initiative})
}

// Export handles GET /api/v1/export
// @Summary Export findings
// @Tags initiatives
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponseBody "Unsupported format"
// @Failure 409 {object} ErrorResponseBody "No analysis result yet"
// @Router /export [get]
func (h *WorkflowHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
		return
	}

	result := h.workflow.State().Result
	if result == nil {
		h.handleError(c, domain.ErrNoResult)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, result); err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="greenlens-initiatives.%s"`, format))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *WorkflowHandler) handleError(c *gin.Context, err error) {
	HandleError(c, h.logger, err)
}
