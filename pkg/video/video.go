// Package video assembles keyframes and narration into clips with ffmpeg.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Encoder drives an ffmpeg binary.
type Encoder struct {
	Binary string
	Codec  string

	run runFunc
}

// NewEncoder returns an encoder for the given ffmpeg binary ("ffmpeg" when
// empty).
func NewEncoder(binary string) *Encoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{Binary: binary, Codec: "libx264", run: runCombined}
}

func (e *Encoder) exec(ctx context.Context, op string, args []string) error {
	start := time.Now()
	out, err := e.run(ctx, e.Binary, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg %s error: %v, output: %s", op, err, tail(string(out), 2000))
	}
	slog.Debug("ffmpeg done", "op", op, "output", args[len(args)-1], "duration", time.Since(start))
	return nil
}

// Available reports whether the ffmpeg binary can be executed.
func (e *Encoder) Available(ctx context.Context) error {
	if _, err := e.run(ctx, e.Binary, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not available (%s): %w", e.Binary, err)
	}
	return nil
}

// EncodeKeyframes turns a concat list of still frames into a video clip.
func (e *Encoder) EncodeKeyframes(ctx context.Context, concatList, out string, fps int) error {
	return e.exec(ctx, "keyframes", KeyframeArgs(concatList, out, fps, e.Codec))
}

// Mux combines a clip with its narration. A clip shorter than the audio is
// looped and trimmed to the audio; a longer one keeps its length and the audio
// is padded with silence.
func (e *Encoder) Mux(ctx context.Context, videoPath, audioPath, out string, videoSeconds, audioSeconds float64) error {
	return e.exec(ctx, "mux", MuxArgs(videoPath, audioPath, out, videoSeconds < audioSeconds))
}

// Concatenate joins clips with identical encoding parameters.
func (e *Encoder) Concatenate(ctx context.Context, clips []string, out, tmpDir string) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}
	listPath := filepath.Join(tmpDir, "inputs.txt")
	var sb strings.Builder
	for _, p := range clips {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return e.exec(ctx, "concat", ConcatArgs(listPath, out))
}

// KeyframeArgs builds the arguments for EncodeKeyframes.
func KeyframeArgs(concatList, out string, fps int, codec string) []string {
	if fps <= 0 {
		fps = 30
	}
	if codec == "" {
		codec = "libx264"
	}
	return []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", concatList,
		"-vf", fmt.Sprintf("fps=%d,format=yuv420p", fps),
		"-c:v", codec,
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", fps),
		out,
	}
}

// MuxArgs builds the arguments for Mux.
func MuxArgs(videoPath, audioPath, out string, loop bool) []string {
	args := []string{"-y"}
	if loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", videoPath, "-i", audioPath, "-map", "0:v", "-map", "1:a")
	if loop {
		args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p")
	} else {
		args = append(args, "-c:v", "copy", "-af", "apad")
	}
	args = append(args, "-c:a", "aac", "-shortest", out)
	return args
}

// ConcatArgs builds the arguments for Concatenate.
func ConcatArgs(listPath, out string) []string {
	return []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
