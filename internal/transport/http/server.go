// Package http assembles the HTTP server for the image chat UI.
package http

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/service"
	v1 "github.com/xiaot623/gogo/imagechat/internal/transport/http/v1"
	"github.com/xiaot623/gogo/imagechat/internal/transport/web"
	"github.com/xiaot623/gogo/imagechat/internal/transport/ws"
)

// NewServer creates and configures the HTTP server. It serves the page, the
// session API and the WebSocket event channel.
func NewServer(cfg *config.Config, svc *service.Service, hub *ws.Hub, version string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit(cfg.MaxUploadBytes)))

	// Handlers
	v1.NewHandler(svc, hub, version).RegisterRoutes(e)
	ws.NewServer(cfg, hub, svc).RegisterRoutes(e)
	web.NewHandler().RegisterRoutes(e)

	return e
}

func logLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// bodyLimit leaves headroom above the upload cap for multipart framing so
// oversize files reach the upload policy instead of a bare 413.
func bodyLimit(maxUpload int64) string {
	return strconv.FormatInt(maxUpload/1024+64, 10) + "K"
}
