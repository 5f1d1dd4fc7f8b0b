// Package openai synthesizes narration through the OpenAI speech endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"explainergo/pkg/tracker"
	"explainergo/pkg/tts"
)

const providerName = "openai-tts"

// Provider implements tts.Provider using OpenAI text-to-speech.
type Provider struct {
	client  openai.Client
	model   string
	tracker *tracker.Tracker
	log     *tts.PromptLog
}

// NewProvider creates a provider. baseURL may be empty; extra options are
// appended to the client's defaults.
func NewProvider(apiKey, baseURL, model string, t *tracker.Tracker, log *tts.PromptLog, extra ...option.RequestOption) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: API key is required")
	}
	if model == "" {
		model = openai.SpeechModelTTS1
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &Provider{
		client:  openai.NewClient(opts...),
		model:   model,
		tracker: t,
		log:     log,
	}, nil
}

// Synthesize writes an MP3 of text spoken by voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if voice == "" {
		voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	text = tts.StripSpeakerLabels(text)

	fullPath := outputPath
	if !strings.HasSuffix(strings.ToLower(fullPath), ".mp3") {
		fullPath += ".mp3"
	}

	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          p.model,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		p.fail(text, err)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			code := apiErr.StatusCode
			if code == 429 || code == 401 || code == 403 || code >= 500 {
				fe := tts.NewFatalError(code, fmt.Sprintf("openai tts: %v", err))
				if apiErr.Response != nil {
					fe.RetryAfter = tts.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
				}
				return "", fe
			}
		}
		return "", fmt.Errorf("openai tts: %w", err)
	}
	defer resp.Body.Close()

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		p.fail(text, err)
		return "", fmt.Errorf("failed to write audio: %w", err)
	}

	if p.tracker != nil {
		p.tracker.TrackAPISuccess(providerName)
	}
	p.log.Log("OPENAI", text, resp.StatusCode, nil)
	return "mp3", nil
}

func (p *Provider) fail(text string, err error) {
	if p.tracker != nil {
		p.tracker.TrackAPIFailure(providerName)
	}
	p.log.Log("OPENAI", text, 0, err)
}

// Voices returns the built-in OpenAI voices.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	ids := []openai.AudioSpeechNewParamsVoice{
		openai.AudioSpeechNewParamsVoiceAlloy,
		openai.AudioSpeechNewParamsVoiceAsh,
		openai.AudioSpeechNewParamsVoiceCoral,
		openai.AudioSpeechNewParamsVoiceEcho,
		openai.AudioSpeechNewParamsVoiceSage,
	}
	out := make([]tts.Voice, 0, len(ids))
	for _, id := range ids {
		out = append(out, tts.Voice{ID: string(id), Name: strings.ToUpper(string(id[:1])) + string(id[1:]), Language: "multi", IsNeural: true})
	}
	return out, nil
}
