// Package v1 provides the REST and SSE handlers for image chat sessions.
package v1

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/service"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// ConnectionCounter reports the number of open event channel connections.
type ConnectionCounter interface {
	ConnectionCount() int
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	conns   ConnectionCounter
	version string
}

// NewHandler creates a new handler. conns may be nil when no event channel is served.
func NewHandler(service *service.Service, conns ConnectionCounter, version string) *Handler {
	return &Handler{
		service: service,
		conns:   conns,
		version: version,
	}
}

// RegisterRoutes registers the session API with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)
	e.PUT("/v1/sessions/:session_id/api_key", h.SetAPIKey)
	e.POST("/v1/sessions/:session_id/reset", h.Reset)

	// Active image
	e.POST("/v1/sessions/:session_id/image", h.UploadImage)
	e.GET("/v1/sessions/:session_id/image", h.GetImage)
	e.DELETE("/v1/sessions/:session_id/image", h.DeleteImage)

	// Transcript
	e.GET("/v1/sessions/:session_id/messages", h.GetMessages)
	e.POST("/v1/sessions/:session_id/messages", h.SendMessage)
	e.POST("/v1/sessions/:session_id/speech", h.Synthesize)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status":   "healthy",
		"version":  h.version,
		"sessions": h.service.SessionCount(),
	}
	if h.conns != nil {
		status["connections"] = h.conns.ConnectionCount()
	}
	return c.JSON(http.StatusOK, status)
}

// lookup resolves the :session_id path parameter.
func (h *Handler) lookup(c echo.Context) (*session.Session, error) {
	return h.service.GetSession(c.Param("session_id"))
}

// ErrorCode maps an error to its HTTP status and stable error code.
func ErrorCode(err error) (int, string) {
	code := domain.ErrorCode(err)
	switch code {
	case "api_key_required":
		return http.StatusPreconditionFailed, code
	case "unsupported_media":
		return http.StatusUnsupportedMediaType, code
	case "empty_transcript", "session_busy":
		return http.StatusConflict, code
	case "session_not_found":
		return http.StatusNotFound, code
	case "empty_prompt":
		return http.StatusBadRequest, code
	case "upstream_error":
		return http.StatusBadGateway, code
	default:
		return http.StatusInternalServerError, code
	}
}

func writeError(c echo.Context, err error) error {
	status, code := ErrorCode(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}
