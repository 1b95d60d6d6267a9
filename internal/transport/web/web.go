// Package web serves the embedded chat page.
package web

import (
	"embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed static/index.html
var static embed.FS

// Handler serves the page.
type Handler struct {
	page []byte
}

// NewHandler loads the embedded page.
func NewHandler() *Handler {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return &Handler{page: page}
}

// RegisterRoutes registers the page route.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
}

// Index renders the chat page. All state is fetched by the page itself.
func (h *Handler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, h.page)
}
