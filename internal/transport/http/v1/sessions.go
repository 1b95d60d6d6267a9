package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKeyRequest is the request to set a session's API key.
type APIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// CreateSession starts a new session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	sess, err := h.service.CreateSession(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	snapshot, err := sess.Snapshot(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, snapshot)
}

// GetSession returns the session state used to render the page.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	snapshot, err := sess.Snapshot(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// DeleteSession ends a session and discards its transcript.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.EndSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetAPIKey stores the credential for the session.
// PUT /v1/sessions/:session_id/api_key
func (h *Handler) SetAPIKey(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	var req APIKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.APIKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "api_key is required"})
	}

	h.service.SetAPIKey(sess, req.APIKey)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":          true,
		"has_api_key": sess.HasAPIKey(),
	})
}

// Reset clears the transcript.
// POST /v1/sessions/:session_id/reset
func (h *Handler) Reset(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.service.Reset(c.Request().Context(), sess); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
