// Package client provides the HTTP client used to reach the upstream API.
package client

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"devfront/internal/config"
	"devfront/internal/header"
	"devfront/internal/metrics"
	"devfront/internal/model"
)

// defaultMaxBody caps buffered upstream bodies when no limit is configured.
const defaultMaxBody = 100 << 20

// ErrBodyTooLarge is returned when an upstream body, raw or decoded, exceeds
// the configured limit.
var ErrBodyTooLarge = errors.New("upstream body exceeds limit")

// UpstreamClient sends requests to the upstream API and buffers the replies.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxBody    int64
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and a
// fixed per-request timeout. The metrics parameter is optional; pass nil to
// disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	maxBody := cfg.Upstream.BodyMaxBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
		maxBody: maxBody,
	}
}

// Do sends a single request upstream and reads the complete response.
//
// A nil body is sent as no body. An upstream error status is a normal
// response; only transport failures (refused connection, DNS, timeout,
// truncated body) are returned as errors.
func (c *UpstreamClient) Do(ctx context.Context, method, url string, h header.List, body []byte) (*model.ProxyResponse, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	h.CopyTo(req.Header)

	c.logger.Debug("upstream request",
		"method", req.Method,
		"url", req.URL.Redacted(),
	)

	label := metrics.NormalizeMethod(method)
	start := time.Now()
	resp, err := c.send(req)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamFailures.WithLabelValues(label).Inc()
		}
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()
	}
	return resp, nil
}

func (c *UpstreamClient) send(req *http.Request) (*model.ProxyResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := readLimited(resp.Body, c.maxBody)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	if enc := resp.Header.Get("Content-Encoding"); enc != "" && len(payload) > 0 {
		decoded, err := decode(enc, payload, c.maxBody)
		switch {
		case errors.Is(err, ErrBodyTooLarge):
			return nil, fmt.Errorf("decode upstream body: %w", err)
		case err != nil:
			c.logger.Warn("relaying encoded upstream body as received",
				"encoding", enc,
				"err", err,
			)
		default:
			payload = decoded
		}
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     header.FromHTTP(resp.Header),
		Body:       payload,
	}, nil
}

// readLimited reads r to EOF, failing with ErrBodyTooLarge past limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", ErrBodyTooLarge, limit)
	}
	return b, nil
}

// decode reverses a gzip or deflate Content-Encoding. The relayed response
// never carries Content-Encoding, so the body must leave here in plain form.
// The decoded size is bounded by limit.
func decode(encoding string, payload []byte, limit int64) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "identity":
		return payload, nil
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(payload))
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		r, err = zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(payload)), nil
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s reader: %w", encoding, err)
	}
	defer func() { _ = r.Close() }()

	out, err := readLimited(r, limit)
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", encoding, err)
	}
	return out, nil
}
