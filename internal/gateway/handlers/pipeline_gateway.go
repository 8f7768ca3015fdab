package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sous-system/internal/database/analytics"
	"sous-system/internal/database/models"
	etl "sous-system/internal/services/etl/handler"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Pipeline is the ETL surface the HTTP layer needs.
type Pipeline interface {
	SyncData(ctx context.Context) (*etl.SyncResult, error)
	ComputeVariance(ctx context.Context) (*etl.VarianceReport, error)
	ListPipelineLogs(ctx context.Context, limit int) ([]models.PipelineLog, error)
}

type PipelineHTTPHandler struct {
	pipeline Pipeline
}

func NewPipelineHTTPHandler(pipeline Pipeline) *PipelineHTTPHandler {
	return &PipelineHTTPHandler{
		pipeline: pipeline,
	}
}

// Ingest runs one sync and responds with {status, new_transactions}.
func (h *PipelineHTTPHandler) Ingest(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result, err := h.pipeline.SyncData(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, result)
}

// PipelineStatus lists the most recent sync outcomes, newest first.
func (h *PipelineHTTPHandler) PipelineStatus(c *gin.Context) {
	limit := etl.DefaultPipelineLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			c.JSON(http.StatusBadRequest, errorResponse("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	logs, err := h.pipeline.ListPipelineLogs(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to read pipeline logs"))
		return
	}

	c.JSON(http.StatusOK, logs)
}

func (h *PipelineHTTPHandler) Variance(c *gin.Context) {
	report, ok := h.computeVariance(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Variance report computed", report, gin.H{
		"lines":    len(report.Lines),
		"unmapped": len(report.UnmappedItems),
	}))
}

func (h *PipelineHTTPHandler) VarianceExport(c *gin.Context) {
	report, ok := h.computeVariance(c)
	if !ok {
		return
	}

	f, err := etl.ExportVarianceXLSX(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to build variance workbook"))
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="variance.xlsx"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if _, err := f.WriteTo(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func (h *PipelineHTTPHandler) computeVariance(c *gin.Context) (*etl.VarianceReport, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	report, err := h.pipeline.ComputeVariance(ctx)
	if errors.Is(err, analytics.ErrNoSnapshot) {
		c.JSON(http.StatusServiceUnavailable, errorResponse("No analytics data yet. Run an ingest first."))
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to compute variance"))
		return nil, false
	}
	return report, true
}
