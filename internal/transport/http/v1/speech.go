package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SpeechResponse carries the synthesized audio and its autoplay markup.
type SpeechResponse struct {
	Text  string `json:"text"`
	Audio string `json:"audio"` // data URI
	HTML  string `json:"html"`
}

// Synthesize reads the latest assistant message aloud.
// POST /v1/sessions/:session_id/speech
func (h *Handler) Synthesize(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	speech, err := h.service.SynthesizeSpeech(c.Request().Context(), sess)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SpeechResponse{
		Text:  speech.Text,
		Audio: speech.DataURI(),
		HTML:  speech.HTML(),
	})
}
