package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"devfront/internal/client"
	"devfront/internal/config"
	"devfront/internal/header"
	"devfront/internal/model"
)

func newTestRelay(origin string) *RelayService {
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			Origin:          origin,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRelayService(client.NewUpstreamClient(cfg, logger, nil), cfg, logger)
}

func TestUpstreamURL(t *testing.T) {
	s := &RelayService{origin: "http://localhost:9000"}

	tests := []struct {
		uri  string
		want string
	}{
		{"/users/5", "http://localhost:9000/users/5"},
		{"/search?q=a%20b&page=2", "http://localhost:9000/search?q=a%20b&page=2"},
		{"/", "http://localhost:9000/"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := s.upstreamURL(tt.uri); got != tt.want {
				t.Errorf("upstreamURL(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestForward_MethodsAndPath(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var gotMethod, gotURI string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotURI = r.RequestURI
				w.WriteHeader(http.StatusOK)
			}))
			defer upstream.Close()

			s := newTestRelay(upstream.URL)
			_, err := s.Forward(context.Background(), &model.ProxyRequest{
				Method: method,
				URI:    "/users/5?expand=profile",
			})
			if err != nil {
				t.Fatalf("Forward() error = %v", err)
			}
			if gotMethod != method {
				t.Errorf("upstream method = %q, want %q", gotMethod, method)
			}
			if gotURI != "/users/5?expand=profile" {
				t.Errorf("upstream URI = %q, want %q", gotURI, "/users/5?expand=profile")
			}
		})
	}
}

func TestForward_RequestHeaderDenylist(t *testing.T) {
	var got http.Header
	var gotHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotHost = r.Host
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	s := newTestRelay(upstream.URL)
	_, err := s.Forward(context.Background(), &model.ProxyRequest{
		Method: http.MethodPost,
		URI:    "/jobs",
		Header: header.List{
			{Name: "Host", Value: "localhost:4200"},
			{Name: "Origin", Value: "http://localhost:4200"},
			{Name: "Referer", Value: "http://localhost:4200/upload"},
			{Name: "Connection", Value: "keep-alive"},
			{Name: "Content-Length", Value: "9999"},
			{Name: "Authorization", Value: "Bearer token"},
			{Name: "Content-Type", Value: "application/json"},
		},
		Body: []byte(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	for _, name := range []string{"Origin", "Referer"} {
		if v := got.Get(name); v != "" {
			t.Errorf("%s forwarded as %q, want absent", name, v)
		}
	}
	if strings.Contains(gotHost, "4200") {
		t.Errorf("Host = %q, inbound host leaked upstream", gotHost)
	}
	if v := got.Get("Content-Length"); v != "" && v != "7" {
		t.Errorf("Content-Length = %q, want regenerated length 7", v)
	}
	if v := got.Get("Authorization"); v != "Bearer token" {
		t.Errorf("Authorization = %q, want %q", v, "Bearer token")
	}
	if v := got.Get("Content-Type"); v != "application/json" {
		t.Errorf("Content-Type = %q, want %q", v, "application/json")
	}
}

func TestForward_ResponseHeaderDenylist(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Connection", "close")
		w.Header().Set("Content-Encoding", "identity")
		w.Header().Set("X-Upstream", "yes")
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))
	defer upstream.Close()

	s := newTestRelay(upstream.URL)
	resp, err := s.Forward(context.Background(), &model.ProxyRequest{Method: http.MethodPost, URI: "/items"})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	for _, name := range []string{"Connection", "Content-Encoding", "Transfer-Encoding"} {
		if resp.Header.Has(name) {
			t.Errorf("%s relayed, want stripped", name)
		}
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Error("X-Upstream should be relayed")
	}
	if diff := cmp.Diff([]string{"a=1", "b=2"}, resp.Header.Values("Set-Cookie")); diff != "" {
		t.Errorf("Set-Cookie mismatch (-want +got):\n%s", diff)
	}
	if resp.StatusCode != http.StatusCreated || string(resp.Body) != "created" {
		t.Errorf("resp = %d %q, want 201 %q", resp.StatusCode, resp.Body, "created")
	}
}

func TestForward_Unreachable(t *testing.T) {
	s := newTestRelay("http://127.0.0.1:1")

	_, err := s.Forward(context.Background(), &model.ProxyRequest{Method: http.MethodGet, URI: "/users"})
	if err == nil {
		t.Fatal("Forward() expected error, got nil")
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestForward_Idempotent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[1,2,3]}`))
	}))
	defer upstream.Close()

	s := newTestRelay(upstream.URL)
	pr := &model.ProxyRequest{Method: http.MethodGet, URI: "/items"}

	first, err := s.Forward(context.Background(), pr)
	if err != nil {
		t.Fatalf("Forward() #1 error = %v", err)
	}
	second, err := s.Forward(context.Background(), pr)
	if err != nil {
		t.Fatalf("Forward() #2 error = %v", err)
	}

	if first.StatusCode != second.StatusCode {
		t.Errorf("status differs: %d vs %d", first.StatusCode, second.StatusCode)
	}
	if diff := cmp.Diff(first.Body, second.Body); diff != "" {
		t.Errorf("body differs (-first +second):\n%s", diff)
	}
}
