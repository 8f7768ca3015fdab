package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sous-system/internal/database/analytics"
	"sous-system/internal/database/models"
	dashboard "sous-system/internal/services/dashboard/handler"
	etl "sous-system/internal/services/etl/handler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakePipeline struct {
	syncResult *etl.SyncResult
	syncErr    error
	report     *etl.VarianceReport
	varErr     error
	logs       []models.PipelineLog
	lastLimit  int
}

func (f *fakePipeline) SyncData(ctx context.Context) (*etl.SyncResult, error) {
	return f.syncResult, f.syncErr
}

func (f *fakePipeline) ComputeVariance(ctx context.Context) (*etl.VarianceReport, error) {
	return f.report, f.varErr
}

func (f *fakePipeline) ListPipelineLogs(ctx context.Context, limit int) ([]models.PipelineLog, error) {
	f.lastLimit = limit
	return f.logs, nil
}

type fakeDashboard struct {
	summary *dashboard.Summary
	err     error
}

func (f *fakeDashboard) Summarize(ctx context.Context) (*dashboard.Summary, error) {
	return f.summary, f.err
}

func (f *fakeDashboard) ListInventory(ctx context.Context) ([]dashboard.InventoryView, error) {
	return []dashboard.InventoryView{{
		InventoryItem: models.InventoryItem{ID: 1, Name: "Beans", Unit: "lb", CurrentStock: 8, ParLevel: 20},
		Status:        dashboard.StockStatusCritical,
	}}, nil
}

type fakeAgent struct {
	answer string
	err    error
}

func (f *fakeAgent) Chat(ctx context.Context, message string) (string, error) {
	return f.answer, f.err
}

func newRouter(p Pipeline, d Dashboard, a Agent) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ph := NewPipelineHTTPHandler(p)
	dh := NewDashboardHTTPHandler(d)
	ah := NewAgentHTTPHandler(a)

	api := r.Group("/api")
	api.POST("/ingest", ph.Ingest)
	api.GET("/monitor/pipeline", ph.PipelineStatus)
	api.GET("/variance", ph.Variance)
	api.GET("/variance/export", ph.VarianceExport)
	api.GET("/dashboard/summary", dh.Summary)
	api.GET("/inventory", dh.Inventory)
	api.POST("/agent/chat", ah.Chat)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngest(t *testing.T) {
	p := &fakePipeline{syncResult: &etl.SyncResult{Status: "success", NewTransactions: 20}}
	r := newRouter(p, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodPost, "/api/ingest", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","new_transactions":20}`, w.Body.String())
}

func TestIngest_Failure(t *testing.T) {
	p := &fakePipeline{syncErr: errors.New("analytics sync failed: disk full")}
	r := newRouter(p, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodPost, "/api/ingest", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "disk full")
}

func TestPipelineStatus(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	p := &fakePipeline{logs: []models.PipelineLog{
		{ID: 2, Timestamp: at, Status: models.PipelineStatusFailed, Details: "boom"},
		{ID: 1, Timestamp: at.Add(-time.Minute), Status: models.PipelineStatusSuccess, Details: "Synced 20 new transactions."},
	}}
	r := newRouter(p, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodGet, "/api/monitor/pipeline", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, etl.DefaultPipelineLogLimit, p.lastLimit)

	var logs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 2)
	assert.Equal(t, "FAILED", logs[0]["status"])
	assert.Equal(t, "2026-10-19T09:00:00Z", logs[0]["timestamp"])
	assert.Contains(t, logs[1], "details")

	w = serve(r, http.MethodGet, "/api/monitor/pipeline?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardSummary(t *testing.T) {
	d := &fakeDashboard{summary: &dashboard.Summary{LowStockItemCount: 2}}
	r := newRouter(&fakePipeline{}, d, &fakeAgent{})

	w := serve(r, http.MethodGet, "/api/dashboard/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_sales":0,"total_transactions":0,"low_stock_item_count":2,"top_selling_item":null}`, w.Body.String())
}

func TestInventory(t *testing.T) {
	r := newRouter(&fakePipeline{}, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodGet, "/api/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"critical"`)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestChat(t *testing.T) {
	r := newRouter(&fakePipeline{}, &fakeDashboard{}, &fakeAgent{answer: "Beef is low."})

	w := serve(r, http.MethodPost, "/api/agent/chat", `{"message":"what is low?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"Beef is low."}`, w.Body.String())
}

func TestChat_FailureStillAnswers(t *testing.T) {
	r := newRouter(&fakePipeline{}, &fakeDashboard{}, &fakeAgent{err: errors.New("no api key")})

	w := serve(r, http.MethodPost, "/api/agent/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "I'm having trouble connecting to my brain right now. Error: no api key", resp.Response)
}

func TestChat_MissingMessage(t *testing.T) {
	r := newRouter(&fakePipeline{}, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodPost, "/api/agent/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVariance_NoSnapshot(t *testing.T) {
	p := &fakePipeline{varErr: analytics.ErrNoSnapshot}
	r := newRouter(p, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodGet, "/api/variance", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVarianceExport(t *testing.T) {
	p := &fakePipeline{report: &etl.VarianceReport{
		Lines: []etl.VarianceLine{
			{InventoryItemName: "Beef Patty", SalesItemID: "burger", TotalSold: 4, TheoreticalUsage: 1, Unit: "lb"},
		},
		UnmappedItems: []string{},
	}}
	r := newRouter(p, &fakeDashboard{}, &fakeAgent{})

	w := serve(r, http.MethodGet, "/api/variance/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(etl.VarianceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Beef Patty", rows[1][0])
}
