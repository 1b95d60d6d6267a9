package v1

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// UploadImage replaces the active image with the multipart "file" field.
// POST /v1/sessions/:session_id/image
func (h *Handler) UploadImage(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to open upload"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
	}

	img, err := h.service.UploadImage(c.Request().Context(), sess, fh.Filename, data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, img)
}

// GetImage returns the active image as PNG.
// GET /v1/sessions/:session_id/image
func (h *Handler) GetImage(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	img := sess.ActiveImage()
	if img == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active image"})
	}
	return c.Blob(http.StatusOK, "image/png", img.PNG)
}

// DeleteImage clears the active image.
// DELETE /v1/sessions/:session_id/image
func (h *Handler) DeleteImage(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return writeError(c, err)
	}

	h.service.ClearImage(sess)
	return c.NoContent(http.StatusNoContent)
}
