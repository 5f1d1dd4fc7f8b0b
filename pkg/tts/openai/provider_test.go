package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explainergo/pkg/tracker"
	"explainergo/pkg/tts"
)

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider("", "", "", nil, nil)
	assert.Error(t, err)
}

func TestSynthesize(t *testing.T) {
	audio := strings.Repeat("x", 1500)
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte(audio))
	}))
	defer srv.Close()

	tr := tracker.New()
	p, err := NewProvider("sk-test", srv.URL, "", tr, nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "scene_01.mp3")
	format, err := p.Synthesize(context.Background(), "Hello there", "", out)
	require.NoError(t, err)
	assert.Equal(t, "mp3", format)
	assert.Contains(t, body, `"model":"tts-1"`)
	assert.Contains(t, body, `"voice":"alloy"`)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, audio, string(data))
	assert.Equal(t, int64(1), tr.Snapshot()[providerName].APISuccess)
}

func TestSynthesize_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit","code":"rate_limit"}}`))
	}))
	defer srv.Close()

	p, err := NewProvider("sk-test", srv.URL, "tts-1", nil, nil, option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "Hello", "alloy", filepath.Join(t.TempDir(), "a.mp3"))
	require.Error(t, err)
	assert.True(t, tts.IsRateLimited(err), "got %v", err)
}

func TestVoices(t *testing.T) {
	p, err := NewProvider("sk-test", "", "", nil, nil)
	require.NoError(t, err)
	voices, err := p.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alloy", voices[0].ID)
	assert.Equal(t, "Alloy", voices[0].Name)
}
