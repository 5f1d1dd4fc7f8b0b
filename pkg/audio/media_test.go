package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSilenceAndDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
	}{
		{"short", 250 * time.Millisecond},
		{"two seconds", 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "audio", "silence.wav")
			require.NoError(t, WriteSilence(path, tt.d))

			got, err := GetDuration(path)
			require.NoError(t, err)
			assert.InDelta(t, tt.d.Seconds(), got.Seconds(), 0.001)

			secs, err := Seconds(path)
			require.NoError(t, err)
			assert.InDelta(t, tt.d.Seconds(), secs, 0.001)
		})
	}
}

func TestDecodeMedia_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := GetDuration(filepath.Join(dir, "missing.mp3"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.mp3")
	require.NoError(t, os.WriteFile(junk, []byte("not audio"), 0o644))
	_, err = GetDuration(junk)
	assert.Error(t, err)
}
