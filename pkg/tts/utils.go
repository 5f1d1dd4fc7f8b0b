package tts

import (
	"fmt"
	"os"
	"regexp"
)

var speakerLabelRegex = regexp.MustCompile(`(?m)^[A-Za-z]+(\s*\([^)]+\))?:\s*`)

// StripSpeakerLabels removes speaker labels like "Narrator:" or "Host (calm):" from scripts.
func StripSpeakerLabels(script string) string {
	return speakerLabelRegex.ReplaceAllString(script, "")
}

// VerifyAudioFile checks that a synthesized file exists and is not suspiciously small.
func VerifyAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file missing: %w", err)
	}
	if info.Size() < MinAudioSize {
		return fmt.Errorf("audio file too small (%d bytes): %s", info.Size(), path)
	}
	return nil
}
