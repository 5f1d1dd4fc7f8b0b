package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"explainergo/pkg/tracker"
)

func TestTransport_LogsAndTracks(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	tr := tracker.New()
	client := NewHTTPClient(5*time.Second, slog.New(slog.NewTextHandler(&buf, nil)), tr)

	resp, err := client.Get(srv.URL + "/ok")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if !strings.HasPrefix(gotUA, "explainergo/") {
		t.Errorf("User-Agent = %q", gotUA)
	}

	resp, err = client.Get(srv.URL + "/fail")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	stats := tr.Snapshot()["127.0.0.1"]
	if stats.APISuccess != 1 || stats.APIFailures != 1 {
		t.Errorf("stats = %+v, want 1 success and 1 failure", stats)
	}
	if !strings.Contains(buf.String(), "status=429") {
		t.Errorf("request log missing status: %s", buf.String())
	}
}

func TestNormalizeProvider(t *testing.T) {
	for host, want := range map[string]string{
		"generativelanguage.googleapis.com": "gemini-http",
		"API.OpenAI.com:443":                "openai-http",
		"speech.platform.bing.com":          "edge-tts-http",
		"localhost:1234":                    "localhost",
		"[::1]:8080":                        "[::1]",
		"[::1]":                             "[::1]",
	} {
		if got := normalizeProvider(host); got != want {
			t.Errorf("normalizeProvider(%q) = %q, want %q", host, got, want)
		}
	}
}
