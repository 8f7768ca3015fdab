package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sous-system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c *gin.Context) { c.Status(http.StatusOK) }

func hit(r *gin.Engine, path, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksAfterQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limit, err := RateLimit(NewLimiterStore("test"), "chat", "2-M")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/chat", limit, okHandler)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = hit(r, "/chat", "10.0.0.1:1234")
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests, slow down"}`, last.Body.String())
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(r, "/chat", "10.0.0.2:1234").Code, "other clients keep their own quota")
}

func TestRateLimit_SharedStoreKeepsRoutesApart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewLimiterStore("test")
	chatLimit, err := RateLimit(store, "chat", "1-M")
	require.NoError(t, err)
	exportLimit, err := RateLimit(store, "export", "1-M")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/chat", chatLimit, okHandler)
	r.POST("/export", exportLimit, okHandler)

	const addr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusOK, hit(r, "/chat", addr).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/chat", addr).Code)
	assert.Equal(t, http.StatusOK, hit(r, "/export", addr).Code, "chat quota must not spend the export quota")
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/export", addr).Code)
}

func TestRateLimit_InvalidFormat(t *testing.T) {
	_, err := RateLimit(NewLimiterStore("test"), "chat", "ten per minute")
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test-secret"

	r := gin.New()
	r.POST("/ingest", JWTAuth(secret), okHandler)

	token, _, err := utils.GenerateToken([]byte(secret), "ops", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestJWTAuth_DisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/ingest", JWTAuth(""), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
