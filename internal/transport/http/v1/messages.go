package v1

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SendMessageRequest is the request to run a chat turn.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// StreamEvent is one SSE payload of a chat turn.
type StreamEvent struct {
	Type         string `json:"type"` // delta, done or error
	Fragment     string `json:"fragment,omitempty"`
	Text         string `json:"text,omitempty"`
	FinalMessage string `json:"final_message,omitempty"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
}

// GetMessages returns the transcript in append order.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	turns, err := sess.Transcript(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": turns,
	})
}

// SendMessage runs a chat turn and streams the answer as server-sent events.
// POST /v1/sessions/:session_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	// The stream opens on the first fragment, so failures before it are
	// reported as plain JSON with their status code.
	streaming := false
	send := func(ev StreamEvent) error {
		if !streaming {
			c.Response().Header().Set("Content-Type", "text/event-stream")
			c.Response().Header().Set("Cache-Control", "no-cache")
			c.Response().Header().Set("Connection", "keep-alive")
			c.Response().WriteHeader(http.StatusOK)
			streaming = true
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.service.SendMessage(c.Request().Context(), sess, req.Text, func(fragment, partial string) error {
		return send(StreamEvent{Type: "delta", Fragment: fragment, Text: partial})
	})
	if err != nil {
		if !streaming {
			return writeError(c, err)
		}
		_, code := ErrorCode(err)
		if sendErr := send(StreamEvent{Type: "error", Code: code, Message: err.Error()}); sendErr != nil {
			log.Printf("WARN: failed to write stream error for session %s: %v", sess.ID(), sendErr)
		}
	} else if err := send(StreamEvent{Type: "done", FinalMessage: result.Answer}); err != nil {
		log.Printf("WARN: failed to write stream completion for session %s: %v", sess.ID(), err)
		return nil
	}

	fmt.Fprintf(c.Response().Writer, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}
