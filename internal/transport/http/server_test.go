package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/repository"
	"github.com/xiaot623/gogo/imagechat/internal/service"
	"github.com/xiaot623/gogo/imagechat/internal/session"
	"github.com/xiaot623/gogo/imagechat/internal/transport/ws"
)

func TestNewServerRoutes(t *testing.T) {
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Default()
	policy, err := media.NewPolicy(context.Background(), media.DefaultUploadPolicy, cfg.MaxUploadBytes, cfg.MaxImagePixels)
	require.NoError(t, err)
	svc := service.New(session.NewManager(db, llm.NewFactory(llm.ModeMock, "", time.Second)), policy, cfg)

	e := NewServer(cfg, svc, ws.NewHub(), "test")

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodPost, "/v1/sessions", http.StatusCreated},
		{http.MethodGet, "/v1/sessions/sess_missing", http.StatusNotFound},
		{http.MethodPost, "/v1/sessions/sess_missing/speech", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.target)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, rec.Body.String(), `"connections":0`)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, log.DEBUG, logLevel("DEBUG"))
	assert.Equal(t, log.WARN, logLevel("warn"))
	assert.Equal(t, log.INFO, logLevel("bogus"))
}

func TestBodyLimit(t *testing.T) {
	assert.Equal(t, "20544K", bodyLimit(20<<20))
}
