package edgetts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"explainergo/pkg/tracker"
	"explainergo/pkg/tts"
)

const providerName = "edge-tts"

// Options holds the endpoint parameters of the Edge read-aloud service.
// Empty fields fall back to the EDGE_TTS_* environment variables.
type Options struct {
	BaseURL            string
	Origin             string
	UserAgent          string
	TrustedClientToken string
	SecMSGecVersion    string
	OutputFormat       string
	// Rate is an SSML prosody rate such as "+10%". Empty keeps the voice's
	// default pace.
	Rate string
}

func (o Options) withEnv() Options {
	fill := func(v *string, env string) {
		if *v == "" {
			*v = os.Getenv(env)
		}
	}
	fill(&o.BaseURL, "EDGE_TTS_BASE_URL")
	fill(&o.Origin, "EDGE_TTS_ORIGIN")
	fill(&o.UserAgent, "EDGE_TTS_USER_AGENT")
	fill(&o.TrustedClientToken, "EDGE_TTS_TRUSTED_CLIENT_TOKEN")
	fill(&o.SecMSGecVersion, "EDGE_TTS_SEC_MS_GEC_VERSION")
	if o.OutputFormat == "" {
		o.OutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	}
	return o
}

func (o Options) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"base_url":             o.BaseURL,
		"origin":               o.Origin,
		"user_agent":           o.UserAgent,
		"trusted_client_token": o.TrustedClientToken,
		"sec_ms_gec_version":   o.SecMSGecVersion,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("edge-tts not configured, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Provider implements tts.Provider for Microsoft Edge TTS.
type Provider struct {
	opts    Options
	tracker *tracker.Tracker
	log     *tts.PromptLog
	now     func() time.Time
}

// NewProvider creates a new Edge TTS provider.
func NewProvider(opts Options, t *tracker.Tracker, log *tts.PromptLog) *Provider {
	return &Provider{opts: opts.withEnv(), tracker: t, log: log, now: time.Now}
}

// Synthesize streams text through the Edge read-aloud service into
// outputPath with an .mp3 extension. The file only appears once the service
// has signalled the end of the turn.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if voice == "" {
		return "", errors.New("voice ID is required")
	}
	if err := p.opts.validate(); err != nil {
		return "", err
	}

	ssml := buildSSML(voice, p.opts.Rate, tts.StripSpeakerLabels(text))
	dest := outputPath
	if !strings.HasSuffix(strings.ToLower(dest), ".mp3") {
		dest += ".mp3"
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.track(false)
		return "", err
	}
	defer conn.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".edgetts-*.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := p.exchange(ctx, conn, ssml, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = errors.New("edge-tts returned no audio")
	}
	if err != nil {
		p.track(false)
		p.log.Log(providerName, ssml, 0, err)
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move audio into place: %w", err)
	}

	p.track(true)
	p.log.Log(providerName, ssml, 200, nil)
	return "mp3", nil
}

func (p *Provider) track(ok bool) {
	if p.tracker == nil {
		return
	}
	if ok {
		p.tracker.TrackAPISuccess(providerName)
	} else {
		p.tracker.TrackAPIFailure(providerName)
	}
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Origin", p.opts.Origin)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("User-Agent", p.opts.UserAgent)
	header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	header.Set("Accept-Language", "en-US,en;q=0.9")

	muid := strings.ReplaceAll(uuid.New().String(), "-", "")
	header.Set("Cookie", fmt.Sprintf("muid=%s", muid))

	url := fmt.Sprintf("%s?TrustedClientToken=%s&Sec-MS-GEC=%s&Sec-MS-GEC-Version=%s",
		p.opts.BaseURL, p.opts.TrustedClientToken, p.generateSecMSGec(), p.opts.SecMSGecVersion)

	var dialErr error
	for i := 0; i < 3; i++ {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err == nil {
			return conn, nil
		}
		dialErr = err
		if resp != nil {
			slog.Warn("EdgeTTS: handshake failure", "status", resp.Status, "status_code", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				fe := tts.NewFatalError(resp.StatusCode, fmt.Sprintf("edge-tts handshake: %s", resp.Status))
				fe.RetryAfter = tts.ParseRetryAfter(resp.Header.Get("Retry-After"), p.now())
				return nil, fe
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("websocket dial failed after retries: %w", dialErr)
}

// generateSecMSGec derives the Sec-MS-GEC token: Windows file-time ticks
// rounded down to five minutes, concatenated with the client token, hashed.
func (p *Provider) generateSecMSGec() string {
	nowSec := float64(p.now().Unix())

	ticks := nowSec + 11644473600
	ticks -= float64(int64(ticks) % 300)
	ticks *= 1e7

	strToHash := fmt.Sprintf("%.0f%s", ticks, p.opts.TrustedClientToken)

	hash := sha256.Sum256([]byte(strToHash))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

// Voices returns English narration voices.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "en-US-GuyNeural", Name: "Guy", Language: "en-US", IsNeural: true},
		{ID: "en-US-JennyNeural", Name: "Jenny", Language: "en-US", IsNeural: true},
		{ID: "en-US-AriaNeural", Name: "Aria", Language: "en-US", IsNeural: true},
		{ID: "en-US-AvaMultilingualNeural", Name: "Ava (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "en-GB-SoniaNeural", Name: "Sonia (UK)", Language: "en-GB", IsNeural: true},
	}, nil
}
