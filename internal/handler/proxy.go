package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"devfront/internal/config"
	"devfront/internal/header"
	"devfront/internal/model"
	"devfront/internal/service"
)

// CORS values returned for preflight requests under the API prefix.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsAllowHeaders = "Authorization,Content-Type"
)

const upstreamUnavailable = "Upstream unavailable"

// ProxyHandler relays API requests to the upstream and answers CORS preflights.
type ProxyHandler struct {
	service *service.RelayService
	prefix  string
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.RelayService, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		prefix:  cfg.API.Prefix,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle buffers the request body, forwards the request upstream and writes
// the upstream status, filtered headers and body back to the caller.
//
// The upstream call does not observe client cancellation; it runs until it
// completes or the client timeout fires.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		// BodyLimit surfaces oversized bodies as an *echo.HTTPError.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "read request body").SetInternal(err)
	}
	if len(body) == 0 {
		body = nil
	}

	pr := &model.ProxyRequest{
		Method: req.Method,
		URI:    h.upstreamURI(req),
		Header: header.FromHTTP(req.Header),
		Body:   body,
	}

	resp, err := h.service.Forward(context.WithoutCancel(req.Context()), pr)
	if err != nil {
		return h.mapError(c, err)
	}

	res := c.Response()
	resp.Header.CopyTo(res.Header())
	if !resp.Header.Has(echo.HeaderContentType) {
		// A nil entry keeps net/http from sniffing a type the upstream never sent.
		res.Header()[echo.HeaderContentType] = nil
	}
	res.Header().Del(echo.HeaderContentLength)
	if len(resp.Body) > 0 {
		res.Header().Set(echo.HeaderContentLength, strconv.Itoa(len(resp.Body)))
	}
	res.WriteHeader(resp.StatusCode)

	if len(resp.Body) == 0 {
		return nil
	}
	if _, err := res.Write(resp.Body); err != nil {
		h.logger.Error("writing response body",
			"err", err,
			"path", req.URL.Path,
		)
	}
	return nil
}

// Preflight answers an OPTIONS request under the API prefix without
// contacting the upstream.
func (h *ProxyHandler) Preflight(c echo.Context) error {
	hdr := c.Response().Header()
	hdr.Set(echo.HeaderAccessControlAllowOrigin, corsAllowOrigin)
	hdr.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
	hdr.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
	return c.NoContent(http.StatusNoContent)
}

// upstreamURI returns the request target with the API prefix removed. The
// raw request URI is preferred so escaping and the query reach the upstream
// exactly as received.
func (h *ProxyHandler) upstreamURI(req *http.Request) string {
	uri := req.RequestURI
	if !strings.HasPrefix(uri, h.prefix+"/") {
		u := *req.URL
		u.RawPath = ""
		uri = u.RequestURI()
	}
	return strings.TrimPrefix(uri, h.prefix)
}

// mapError turns a relay failure into the 502 JSON body callers expect.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	details := err.Error()
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		details = "upstream request timed out: " + details
	}

	return c.JSON(http.StatusBadGateway, model.UpstreamError{
		Error:   upstreamUnavailable,
		Details: details,
	})
}
