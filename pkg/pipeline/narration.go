package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"explainergo/pkg/audio"
	"explainergo/pkg/model"
	"explainergo/pkg/tts"
)

// narrationStage synthesizes one audio track per scene. Scenes run
// concurrently up to Options.Concurrency; rate-limited and server-side
// failures back off and retry through the shared provider backoff.
func (p *Pipeline) narrationStage(ctx context.Context, r *runState) error {
	bp, err := r.loadBlueprint()
	if err != nil {
		return err
	}
	// The script is optional here; it only backfills empty narration.
	script, _ := r.loadScript()

	var (
		mu     sync.Mutex
		tracks = make([]SceneAudio, 0, len(bp.SceneBlueprints))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, sc := range bp.SceneBlueprints {
		text := narrationText(sc, script)
		g.Go(func() error {
			a, err := p.narrate(gctx, r.paths.audio, sc, text)
			if err != nil {
				return fmt.Errorf("scene %d: %w", sc.SceneNumber, err)
			}
			mu.Lock()
			tracks = append(tracks, a)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Scene < tracks[j].Scene })
	r.audio = tracks
	return writeJSON(r.paths.narration, tracks)
}

func narrationText(sc model.SceneBlueprint, script *model.Script) string {
	text := strings.TrimSpace(sc.NarrationText)
	if text == "" && script != nil {
		if ss := script.Scene(sc.SceneNumber); ss != nil {
			text = strings.TrimSpace(ss.Narration)
		}
	}
	return text
}

func (p *Pipeline) narrate(ctx context.Context, dir string, sc model.SceneBlueprint, text string) (SceneAudio, error) {
	base := filepath.Join(dir, fmt.Sprintf("scene_%02d", sc.SceneNumber))
	a := SceneAudio{Scene: sc.SceneNumber}

	if text == "" || p.deps.TTS == nil {
		a.Path = base + ".wav"
		a.Silent = true
		a.Seconds = sc.Duration
		slog.Warn("Scene has no narration, writing silence", "scene", sc.SceneNumber, "seconds", sc.Duration)
		if err := audio.WriteSilence(a.Path, time.Duration(sc.Duration*float64(time.Second))); err != nil {
			return a, err
		}
		return a, nil
	}

	var format string
	err := p.deps.Backoff.Do(ctx, p.opts.TTSName, p.opts.TTSAttempts, tts.Retryable, func(ctx context.Context) error {
		f, err := p.deps.TTS.Synthesize(ctx, text, p.opts.Voice, base)
		format = f
		return err
	})
	if err != nil {
		return a, err
	}

	a.Path = base + "." + format
	if err := tts.VerifyAudioFile(a.Path); err != nil {
		return a, err
	}
	secs, err := audio.Seconds(a.Path)
	if err != nil {
		return a, fmt.Errorf("failed to measure narration: %w", err)
	}
	a.Seconds = secs
	slog.Debug("Narration synthesized", "scene", sc.SceneNumber, "seconds", secs, "format", format)
	return a, nil
}
