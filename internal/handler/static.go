package handler

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"devfront/internal/config"
)

// StaticHandler serves files from the configured content directory.
type StaticHandler struct {
	serve echo.HandlerFunc
}

// NewStaticHandler creates a StaticHandler rooted at cfg.Static.Root.
// Directories resolve to the index file; with SPA fallback enabled, unknown
// paths serve the index file instead of 404.
func NewStaticHandler(cfg *config.Config) *StaticHandler {
	files := echomw.StaticWithConfig(echomw.StaticConfig{
		Root:   cfg.Static.Root,
		Index:  cfg.Static.Index,
		HTML5:  cfg.Static.SPA,
		Browse: cfg.Static.Browse,
	})
	return &StaticHandler{
		serve: files(func(echo.Context) error { return echo.ErrNotFound }),
	}
}

// Serve writes the file matching the request path, or returns 404.
func (h *StaticHandler) Serve(c echo.Context) error {
	return h.serve(c)
}
