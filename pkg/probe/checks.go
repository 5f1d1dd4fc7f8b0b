package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HealthChecker is anything that can verify its own backend, such as an LLM
// provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Available reports whether an external tool can be run.
type Available interface {
	Available(ctx context.Context) error
}

// LLM checks that the generation backend answers.
func LLM(name string, hc HealthChecker) Probe {
	return Probe{
		Name:     "LLM " + name,
		Critical: true,
		Timeout:  15 * time.Second,
		Check: func(ctx context.Context) error {
			if hc == nil {
				return errors.New("no provider configured")
			}
			return hc.HealthCheck(ctx)
		},
	}
}

// Encoder checks the video encoder binary. It is critical only when the run
// needs encoded video.
func Encoder(a Available, critical bool) Probe {
	return Probe{
		Name:     "Video encoder",
		Critical: critical,
		Check: func(ctx context.Context) error {
			if a == nil {
				return errors.New("no encoder configured")
			}
			return a.Available(ctx)
		},
	}
}

// Voice checks that the narration voice is offered. A run cannot narrate
// without it.
func Voice(check func(ctx context.Context) error) Probe {
	return Probe{
		Name:     "TTS voice",
		Critical: true,
		Check: func(ctx context.Context) error {
			if check == nil {
				return errors.New("no TTS provider configured")
			}
			return check(ctx)
		},
	}
}

// WritableDir checks that dir exists or can be created, and accepts files.
func WritableDir(name, dir string) Probe {
	return Probe{
		Name:     name,
		Critical: true,
		Check: func(context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return fmt.Errorf("%s is not writable: %w", dir, err)
			}
			path := f.Name()
			f.Close()
			return os.Remove(path)
		},
	}
}

// FileExists checks for a file the run depends on, such as a font.
func FileExists(name, path string, critical bool) Probe {
	return Probe{
		Name:     name,
		Critical: critical,
		Check: func(context.Context) error {
			if path == "" {
				return errors.New("no path configured")
			}
			info, err := os.Stat(filepath.Clean(path))
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			return nil
		},
	}
}
