// Package audio inspects and produces narration audio files.
package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultSampleRate is used for generated audio.
const DefaultSampleRate beep.SampleRate = 24000

// DecodeMedia opens an MP3 or WAV file. MP3 is tried first unless the file
// extension says WAV. The caller closes the returned streamer.
func DecodeMedia(path string) (beep.StreamSeekCloser, beep.Format, error) {
	decoders := []func(*os.File) (beep.StreamSeekCloser, beep.Format, error){decodeMP3, decodeWAV}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		decoders = []func(*os.File) (beep.StreamSeekCloser, beep.Format, error){decodeWAV, decodeMP3}
	}

	var lastErr error
	for _, dec := range decoders {
		f, err := os.Open(path)
		if err != nil {
			return nil, beep.Format{}, err
		}
		streamer, format, err := dec(f)
		if err == nil {
			return streamer, format, nil
		}
		f.Close()
		lastErr = err
	}
	slog.Error("Failed to decode audio file", "path", path, "error", lastErr)
	return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, lastErr)
}

func decodeMP3(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }
func decodeWAV(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }

// GetDuration returns the duration of the audio file at the given path.
// It opens the file, decodes it, and calculates the duration based on its sample length.
func GetDuration(path string) (time.Duration, error) {
	streamer, format, err := DecodeMedia(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// Seconds is GetDuration in seconds.
func Seconds(path string) (float64, error) {
	d, err := GetDuration(path)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

// WriteSilence writes a mono 16-bit WAV of the given length. Scenes without
// narration get one so every clip has an audio track.
func WriteSilence(path string, d time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	format := beep.Format{SampleRate: DefaultSampleRate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(format.SampleRate.N(d)), format); err != nil {
		return fmt.Errorf("failed to encode silence: %w", err)
	}
	return nil
}
