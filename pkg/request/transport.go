package request

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"explainergo/pkg/tracker"
	"explainergo/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("explainergo/%s", version.Version)

// Transport is an http.RoundTripper that logs every outbound call to the
// requests log and counts the outcome per provider. SDK clients (genai,
// openai-go) receive it through their HTTP client option.
type Transport struct {
	Base    http.RoundTripper
	Logger  *slog.Logger
	Tracker *tracker.Tracker
}

// NewHTTPClient returns an http.Client using a Transport.
func NewHTTPClient(timeout time.Duration, logger *slog.Logger, t *tracker.Tracker) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Base: http.DefaultTransport, Logger: logger, Tracker: t},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	provider := normalizeProvider(req.URL.Host)
	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)

	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err != nil {
		logger.Warn("Request failed", "provider", provider, "method", req.Method, "path", req.URL.Path, "duration", elapsed, "error", err)
		t.track(provider, false)
		return nil, err
	}

	logger.Info("Request", "provider", provider, "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", elapsed)
	t.track(provider, resp.StatusCode < 400)
	return resp, nil
}

func (t *Transport) track(provider string, ok bool) {
	if t.Tracker == nil {
		return
	}
	if ok {
		t.Tracker.TrackAPISuccess(provider)
	} else {
		t.Tracker.TrackAPIFailure(provider)
	}
}

// normalizeProvider groups hosts into provider names for logs and stats.
func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	switch {
	case strings.HasSuffix(host, "googleapis.com"):
		return "gemini-http"
	case strings.HasSuffix(host, "openai.com"):
		return "openai-http"
	case strings.HasSuffix(host, "speech.platform.bing.com"):
		return "edge-tts-http"
	}
	return host
}
