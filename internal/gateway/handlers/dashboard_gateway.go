package handlers

import (
	"context"
	"net/http"
	"time"

	dashboard "sous-system/internal/services/dashboard/handler"

	"github.com/gin-gonic/gin"
)

type Dashboard interface {
	Summarize(ctx context.Context) (*dashboard.Summary, error)
	ListInventory(ctx context.Context) ([]dashboard.InventoryView, error)
}

type DashboardHTTPHandler struct {
	dashboard Dashboard
}

func NewDashboardHTTPHandler(d Dashboard) *DashboardHTTPHandler {
	return &DashboardHTTPHandler{
		dashboard: d,
	}
}

func (h *DashboardHTTPHandler) Summary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	summary, err := h.dashboard.Summarize(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to build dashboard summary"))
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *DashboardHTTPHandler) Inventory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	items, err := h.dashboard.ListInventory(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to list inventory"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Inventory retrieved", items, gin.H{
		"total": len(items),
	}))
}
