package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Video    VideoConfig    `yaml:"video"`
	Output   OutputConfig   `yaml:"output"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Request  RequestConfig  `yaml:"request"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	History  HistoryConfig  `yaml:"history"`
}

// ProviderConfig describes one LLM backend.
type ProviderConfig struct {
	Type     string            `yaml:"type"` // "gemini", "openai"
	Key      string            `yaml:"key"`
	Model    string            `yaml:"model"`
	BaseURL  string            `yaml:"base_url,omitempty"`
	Profiles map[string]string `yaml:"profiles"` // Map of intent -> model
}

// LLMConfig holds settings for the Large Language Model providers.
type LLMConfig struct {
	Providers         map[string]ProviderConfig `yaml:"providers"`
	Fallback          []string                  `yaml:"fallback"` // Order in which providers are tried
	ScriptTemperature float32                   `yaml:"script_temperature"`
	MaxTokens         int                       `yaml:"max_tokens"`
	MaxAttempts       int                       `yaml:"max_attempts"`
	AttemptTimeout    Duration                  `yaml:"attempt_timeout"`
	Cache             bool                      `yaml:"cache"`
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	VoiceID string `yaml:"voice"`
	// Rate is an SSML prosody rate, e.g. "+10%" or "-5%". Empty is the
	// voice's natural pace.
	Rate string `yaml:"rate"`
}

// OpenAITTSConfig holds settings for the OpenAI speech endpoint.
type OpenAITTSConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
	VoiceID string `yaml:"voice"`
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine  string          `yaml:"engine"`
	EdgeTTS EdgeTTSConfig   `yaml:"edge_tts"`
	OpenAI  OpenAITTSConfig `yaml:"openai"`
}

// VideoConfig holds rendering and encoding settings.
type VideoConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	Style      string `yaml:"style"`
	StylesFile string `yaml:"styles_file"`
	FontPath   string `yaml:"font_path"`
	FFmpeg     string `yaml:"ffmpeg"`
	Surface    string `yaml:"surface"` // "raster", "manifest"
}

// OutputConfig holds where run artifacts go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// PipelineConfig holds stage settings.
type PipelineConfig struct {
	NarrationConcurrency int    `yaml:"narration_concurrency"`
	PromptsDir           string `yaml:"prompts_dir"`
}

// RequestConfig holds outbound call settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path     string   `yaml:"path"`
	CacheTTL Duration `yaml:"cache_ttl"` // Age after which cached LLM responses are pruned
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	LLM      LogSettings `yaml:"llm"`
	TTS      LogSettings `yaml:"tts"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// HistoryConfig toggles the prompt history logs.
type HistoryConfig struct {
	LLM bool `yaml:"llm"`
	TTS bool `yaml:"tts"`
}

// Engines, surfaces and provider types accepted in the config file.
var (
	TTSEngines    = []string{"edge-tts", "openai"}
	Surfaces      = []string{"raster", "manifest"}
	ProviderTypes = []string{"gemini", "openai"}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Providers: map[string]ProviderConfig{
				"gemini": {
					Type:  "gemini",
					Model: "gemini-2.5-flash",
					Profiles: map[string]string{
						"script":    "gemini-2.5-flash",
						"blueprint": "gemini-2.5-flash",
					},
				},
				"openai": {
					Type:  "openai",
					Model: "gpt-4o-mini",
					Profiles: map[string]string{
						"script":    "gpt-4o-mini",
						"blueprint": "gpt-4o-mini",
					},
				},
			},
			Fallback:          []string{"gemini", "openai"},
			ScriptTemperature: 0.7,
			MaxTokens:         4000,
			MaxAttempts:       3,
			AttemptTimeout:    Duration(120 * time.Second),
			Cache:             true,
		},
		TTS: TTSConfig{
			Engine: "edge-tts",
			EdgeTTS: EdgeTTSConfig{
				VoiceID: "en-US-GuyNeural",
			},
			OpenAI: OpenAITTSConfig{
				Model:   "tts-1",
				VoiceID: "alloy",
			},
		},
		Video: VideoConfig{
			Width:   1920,
			Height:  1080,
			FPS:     30,
			Style:   "classic",
			FFmpeg:  "ffmpeg",
			Surface: "raster",
		},
		Output: OutputConfig{
			Dir: "./output",
		},
		Pipeline: PipelineConfig{
			NarrationConcurrency: 4,
			PromptsDir:           "./configs/prompts",
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(300 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		DB: DBConfig{
			Path:     "./data/explainer.db",
			CacheTTL: Duration(30 * Day),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/explainer.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			LLM: LogSettings{
				Path:  "./logs/llm.log",
				Level: "INFO",
			},
			TTS: LogSettings{
				Path:  "./logs/tts.log",
				Level: "INFO",
			},
		},
		History: HistoryConfig{
			LLM: true,
			TTS: true,
		},
	}
}

// LoadEnv reads .env files into the process environment. Missing files are
// not an error.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Warn("Failed to load env file", "path", p, "error", err)
			}
			continue
		}
		slog.Debug("Loaded env file", "path", p)
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Secrets fall back to the environment but are never written back.
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	fill := func(v *string, env string) {
		if *v == "" {
			*v = os.Getenv(env)
		}
	}
	for name, p := range c.LLM.Providers {
		switch p.Type {
		case "gemini":
			fill(&p.Key, "GEMINI_API_KEY")
		case "openai":
			fill(&p.Key, "OPENAI_API_KEY")
			fill(&p.BaseURL, "OPENAI_BASE_URL")
			if m := os.Getenv("OPENAI_MODEL"); m != "" {
				p.Model = m
				profiles := make(map[string]string, len(p.Profiles))
				for k := range p.Profiles {
					profiles[k] = m
				}
				p.Profiles = profiles
			}
		}
		c.LLM.Providers[name] = p
	}
	fill(&c.TTS.OpenAI.Key, "OPENAI_API_KEY")
	fill(&c.TTS.OpenAI.BaseURL, "OPENAI_BASE_URL")
}

// Validate checks enum values and ranges.
func (c *Config) Validate() error {
	var errs []error
	if !contains(TTSEngines, c.TTS.Engine) {
		errs = append(errs, fmt.Errorf("tts.engine %q must be one of %s", c.TTS.Engine, strings.Join(TTSEngines, ", ")))
	}
	if !contains(Surfaces, c.Video.Surface) {
		errs = append(errs, fmt.Errorf("video.surface %q must be one of %s", c.Video.Surface, strings.Join(Surfaces, ", ")))
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.FPS <= 0 {
		errs = append(errs, fmt.Errorf("video width/height/fps must be positive, got %dx%d@%d", c.Video.Width, c.Video.Height, c.Video.FPS))
	}
	if c.LLM.ScriptTemperature < 0 || c.LLM.ScriptTemperature > 2 {
		errs = append(errs, fmt.Errorf("llm.script_temperature %.2f out of range [0, 2]", c.LLM.ScriptTemperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive"))
	}
	if c.LLM.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_attempts must be positive"))
	}
	if c.Pipeline.NarrationConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.narration_concurrency must be positive"))
	}
	for name, p := range c.LLM.Providers {
		if !contains(ProviderTypes, p.Type) {
			errs = append(errs, fmt.Errorf("llm.providers.%s.type %q must be one of %s", name, p.Type, strings.Join(ProviderTypes, ", ")))
		}
	}
	for _, name := range c.LLM.Fallback {
		if _, ok := c.LLM.Providers[name]; !ok {
			errs = append(errs, fmt.Errorf("llm.fallback references unknown provider %q", name))
		}
	}
	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Explainer Configuration
# -----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# API keys may be left empty and supplied via GEMINI_API_KEY / OPENAI_API_KEY.

`)
	data = append(header, data...)

	// Inject comments for enum fields.
	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: "+strings.Join(TTSEngines, ", ")+"\n${1}engine:"))

	reSurface := regexp.MustCompile(`(?m)^(\s+)surface:`)
	data = reSurface.ReplaceAll(data, []byte("${1}# Options: "+strings.Join(Surfaces, ", ")+"\n${1}surface:"))

	reStyle := regexp.MustCompile(`(?m)^(\s+)style:`)
	data = reStyle.ReplaceAll(data, []byte("${1}# Presets: classic, enhanced, best, perfect, ultimate (or a name from styles_file)\n${1}style:"))

	reType := regexp.MustCompile(`(?m)^(\s+)type:`)
	data = reType.ReplaceAll(data, []byte("${1}# Options: "+strings.Join(ProviderTypes, ", ")+"\n${1}type:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
