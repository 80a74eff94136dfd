// Package service implements the relay between callers and the upstream API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"devfront/internal/client"
	"devfront/internal/config"
	"devfront/internal/header"
	"devfront/internal/model"
)

// ErrUpstreamUnavailable wraps every failure to obtain an upstream response.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// RelayService forwards prefix-stripped requests to the configured origin.
type RelayService struct {
	client *client.UpstreamClient
	origin string
	logger *slog.Logger
}

// NewRelayService creates a RelayService. cfg.Upstream.Origin must already be
// validated and normalised by config.Load.
func NewRelayService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *RelayService {
	return &RelayService{
		client: c,
		origin: cfg.Upstream.Origin,
		logger: logger.With("component", "relay_service"),
	}
}

// Forward sends pr upstream once and returns the buffered response with the
// response denylist applied. Upstream error statuses are returned as regular
// responses.
func (s *RelayService) Forward(ctx context.Context, pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target := s.upstreamURL(pr.URI)
	out := header.Filter(pr.Header, header.RequestDenylist)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"uri", pr.URI,
		"body_bytes", len(pr.Body),
	)

	resp, err := s.client.Do(ctx, pr.Method, target, out, pr.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	resp.Header = header.Filter(resp.Header, header.ResponseDenylist)
	return resp, nil
}

// upstreamURL concatenates the origin and the stripped request URI.
func (s *RelayService) upstreamURL(uri string) string {
	return s.origin + uri
}
