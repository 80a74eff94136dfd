package handler

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"devfront/internal/client"
	"devfront/internal/config"
	"devfront/internal/middleware"
	"devfront/internal/service"
)

// testConfig returns a config pointing at origin and serving root.
func testConfig(origin, root string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			Origin:          origin,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		API:    config.APIConfig{Prefix: "/api"},
		Static: config.StaticConfig{Root: root, Index: "index.html"},
	}
}

func newTestProxyHandler(cfg *config.Config) *ProxyHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := client.NewUpstreamClient(cfg, logger, nil)
	return NewProxyHandler(service.NewRelayService(uc, cfg, logger), cfg, logger)
}

// newTestServer wires the full route table the way the binary does.
func newTestServer(cfg *config.Config) *echo.Echo {
	d := NewDispatcher(cfg, newTestProxyHandler(cfg), NewStaticHandler(cfg))

	e := echo.New()
	e.Use(middleware.ResponseHeaders())
	RegisterRoutes(e, d, NewHealthHandler(cfg, "test"))
	return e
}

// writeSite creates a content directory with the given files.
func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}
