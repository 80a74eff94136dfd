package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"devfront/internal/config"
)

// Dispatcher routes every request either to the proxy or to the static
// responder based on the API prefix.
type Dispatcher struct {
	prefix string
	proxy  *ProxyHandler
	static *StaticHandler
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg *config.Config, proxy *ProxyHandler, static *StaticHandler) *Dispatcher {
	return &Dispatcher{
		prefix: cfg.API.Prefix,
		proxy:  proxy,
		static: static,
	}
}

// Dispatch handles a request:
//
//	{prefix}/... OPTIONS                   -> 204 CORS preflight
//	{prefix}/... GET|POST|PUT|PATCH|DELETE -> upstream relay
//	anything else, GET                     -> static file
//	everything else                        -> 405
func (d *Dispatcher) Dispatch(c echo.Context) error {
	req := c.Request()

	if d.isAPI(req.URL.Path) {
		switch req.Method {
		case http.MethodOptions:
			return d.proxy.Preflight(c)
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			return d.proxy.Handle(c)
		}
		c.Response().Header().Set(echo.HeaderAllow, corsAllowMethods)
		return echo.ErrMethodNotAllowed
	}

	if req.Method == http.MethodGet {
		return d.static.Serve(c)
	}
	c.Response().Header().Set(echo.HeaderAllow, http.MethodGet)
	return echo.ErrMethodNotAllowed
}

func (d *Dispatcher) isAPI(path string) bool {
	return strings.HasPrefix(path, d.prefix+"/")
}
