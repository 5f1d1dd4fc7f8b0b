package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/openai/openai-go/option"

	"explainergo/pkg/config"
	"explainergo/pkg/db"
	"explainergo/pkg/db/maintenance"
	"explainergo/pkg/generator"
	"explainergo/pkg/llm"
	"explainergo/pkg/llm/cached"
	"explainergo/pkg/llm/failover"
	"explainergo/pkg/llm/gemini"
	"explainergo/pkg/llm/openai"
	"explainergo/pkg/llm/prompts"
	"explainergo/pkg/logging"
	"explainergo/pkg/model"
	"explainergo/pkg/pipeline"
	"explainergo/pkg/probe"
	"explainergo/pkg/request"
	"explainergo/pkg/scene"
	"explainergo/pkg/store"
	"explainergo/pkg/tracker"
	"explainergo/pkg/tts"
	"explainergo/pkg/tts/edgetts"
	ttsopenai "explainergo/pkg/tts/openai"
	"explainergo/pkg/version"
	"explainergo/pkg/video"
)

const defaultConfigPath = "configs/explainer.yaml"

type cliOptions struct {
	configPath string
	topic      string
	style      string
	surface    string
	resume     string
	from       string
	list       bool
	noCache    bool
	clearCache bool
}

func main() {
	var o cliOptions
	initConfig := flag.Bool("init-config", false, "Generate default config file and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.StringVar(&o.configPath, "config", defaultConfigPath, "Path to the config file")
	flag.StringVar(&o.topic, "topic", "", "Topic to explain (or pass it as arguments)")
	flag.StringVar(&o.style, "style", "", "Visual style preset or styles_file entry")
	flag.StringVar(&o.surface, "surface", "", "Render surface: raster or manifest")
	flag.StringVar(&o.resume, "resume", "", "Run id to resume, or \"last\"")
	flag.StringVar(&o.from, "from", "", "Stage to resume from: script, blueprint, narration, render, assemble")
	flag.BoolVar(&o.list, "list", false, "List recent runs and exit")
	flag.BoolVar(&o.noCache, "no-cache", false, "Bypass the LLM response cache")
	flag.BoolVar(&o.clearCache, "clear-cache", false, "Delete cached LLM responses and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("explainergo", version.String())
		return
	}
	if *initConfig {
		if err := config.GenerateDefault(o.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", o.configPath)
		return
	}
	if o.topic == "" && flag.NArg() > 0 {
		o.topic = strings.Join(flag.Args(), " ")
	}

	config.LoadEnv(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		if recent := logging.Warnings.Recent(); len(recent) > 0 {
			fmt.Fprintln(os.Stderr, "Recent warnings:")
			for _, l := range recent {
				fmt.Fprintln(os.Stderr, "  "+l)
			}
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, o cliOptions, out io.Writer) error {
	if !o.list && !o.clearCache && o.topic == "" && o.resume == "" {
		return errors.New("nothing to do: pass -topic, -resume, -list or -clear-cache")
	}
	var from model.Stage
	if o.from != "" {
		if o.resume == "" {
			return errors.New("-from requires -resume")
		}
		st, err := model.ParseStage(o.from)
		if err != nil {
			return err
		}
		from = st
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.surface != "" {
		cfg.Video.Surface = o.surface
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	cleanupLogs, err := logging.Init(&cfg.Log, &cfg.History)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Explainer started", "version", version.String(), "config", o.configPath)

	dbConn, st, err := initDB(cfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	maintenance.Run(ctx, st, cfg.DB.CacheTTL.Std())

	if o.clearCache {
		n, err := st.DeleteCache(ctx, cached.KeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintf(out, "Removed %d cached LLM responses.\n", n)
		return nil
	}
	if o.list {
		return listRuns(ctx, st, out)
	}

	tr := tracker.New()
	defer func() { fmt.Fprintln(out, tr.Summary()) }()

	httpClient := request.NewHTTPClient(cfg.Request.Timeout.Std(), logging.RequestLogger, tr)

	llmProv, err := initLLM(ctx, cfg, httpClient, tr, st, o.noCache)
	if err != nil {
		return err
	}
	promptMgr, err := prompts.NewManager(cfg.Pipeline.PromptsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize prompt manager: %w", err)
	}
	slog.Debug("Prompt templates loaded", "dir", cfg.Pipeline.PromptsDir, "styles", promptMgr.Styles())
	ttsProv, ttsName, voice, err := initTTS(cfg, httpClient, tr)
	if err != nil {
		return err
	}
	styles, err := initStyles(cfg)
	if err != nil {
		return err
	}
	encoder := video.NewEncoder(cfg.Video.FFmpeg)

	probes := []probe.Probe{
		probe.LLM(strings.Join(cfg.LLM.Fallback, ","), llmProv),
		probe.Encoder(encoder, cfg.Video.Surface == pipeline.SurfaceRaster),
		probe.WritableDir("Output dir", cfg.Output.Dir),
		probe.Voice(func(ctx context.Context) error { return tts.CheckVoice(ctx, ttsProv, voice) }),
	}
	if cfg.Video.FontPath != "" {
		probes = append(probes, probe.FileExists("Font", cfg.Video.FontPath, false))
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	genOpts := generator.OptionsFrom(cfg.LLM)
	p, err := pipeline.New(pipeline.Options{
		OutputDir:   cfg.Output.Dir,
		Style:       cfg.Video.Style,
		Surface:     cfg.Video.Surface,
		Width:       cfg.Video.Width,
		Height:      cfg.Video.Height,
		FPS:         cfg.Video.FPS,
		FontPath:    cfg.Video.FontPath,
		Voice:       voice,
		TTSName:     ttsName,
		Concurrency: cfg.Pipeline.NarrationConcurrency,
		TTSAttempts: cfg.Request.Retries,
	}, pipeline.Deps{
		Runs:      st,
		State:     st,
		Script:    generator.NewScriptGenerator(llmProv, promptMgr, genOpts),
		Blueprint: generator.NewBlueprintGenerator(llmProv, promptMgr, genOpts),
		TTS:       ttsProv,
		Backoff:   request.NewProviderBackoff(cfg.Request.Backoff.BaseDelay.Std(), cfg.Request.Backoff.MaxDelay.Std()),
		Encoder:   encoder,
		Styles:    styles,
	})
	if err != nil {
		return err
	}

	var r *model.Run
	if o.resume != "" {
		r, err = p.Resume(ctx, o.resume, from, o.style)
	} else {
		r, err = p.Start(ctx, o.topic, o.style)
	}
	if r != nil {
		fmt.Fprintf(out, "Run %s: %s (stage %s)\n", r.ID, r.Status, r.Stage)
		if r.Output != "" {
			fmt.Fprintln(out, "Output:", r.Output)
		}
	}
	return err
}

func initDB(cfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initLLM builds the fallback chain from the configured providers. Providers
// without credentials are skipped.
func initLLM(ctx context.Context, cfg *config.Config, httpClient *http.Client, tr *tracker.Tracker, st *store.SQLiteStore, noCache bool) (llm.Provider, error) {
	var (
		chain []llm.Provider
		names []string
	)
	for _, name := range cfg.LLM.Fallback {
		pc := cfg.LLM.Providers[name]
		var (
			prov llm.Provider
			err  error
		)
		switch pc.Type {
		case "gemini":
			if pc.Key == "" {
				slog.Warn("LLM provider skipped: no API key", "provider", name)
				continue
			}
			prov, err = gemini.NewClient(ctx, pc, httpClient, tr)
		case "openai":
			if pc.Key == "" && pc.BaseURL == "" {
				slog.Warn("LLM provider skipped: no API key or base URL", "provider", name)
				continue
			}
			prov, err = openai.NewClient(pc, httpClient, tr)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM provider %s: %w", name, err)
		}
		chain = append(chain, prov)
		names = append(names, name)
	}
	if len(chain) == 0 {
		return nil, errors.New("no LLM provider configured (set GEMINI_API_KEY or OPENAI_API_KEY)")
	}

	logPath := ""
	if cfg.History.LLM {
		logPath = cfg.Log.LLM.Path
	}
	prov, err := failover.New(chain, names, logPath)
	if err != nil {
		return nil, err
	}
	slog.Info("LLM providers ready", "chain", names)

	if noCache || !cfg.LLM.Cache {
		slog.Info("LLM response cache disabled")
		return prov, nil
	}
	return cached.New(prov, st, tr), nil
}

func initTTS(cfg *config.Config, httpClient *http.Client, tr *tracker.Tracker) (prov tts.Provider, name, voice string, err error) {
	var log *tts.PromptLog
	if cfg.History.TTS {
		log = tts.NewPromptLog(cfg.Log.TTS.Path)
	}

	switch cfg.TTS.Engine {
	case "openai":
		o := cfg.TTS.OpenAI
		p, err := ttsopenai.NewProvider(o.Key, o.BaseURL, o.Model, tr, log, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to initialize TTS provider: %w", err)
		}
		return p, "openai-tts", o.VoiceID, nil
	default:
		return edgetts.NewProvider(edgetts.Options{Rate: cfg.TTS.EdgeTTS.Rate}, tr, log), "edge-tts", cfg.TTS.EdgeTTS.VoiceID, nil
	}
}

func initStyles(cfg *config.Config) (scene.Styles, error) {
	if cfg.Video.StylesFile == "" {
		return nil, nil
	}
	styles, err := scene.LoadStyles(cfg.Video.StylesFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded styles", "path", cfg.Video.StylesFile, "count", len(styles))
	return styles, nil
}

func listRuns(ctx context.Context, st store.RunStore, out io.Writer) error {
	runs, err := st.ListRuns(ctx, 20)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTAGE\tSTYLE\tUPDATED\tTOPIC")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Stage, r.Style, r.UpdatedAt.Local().Format(time.DateTime), r.Topic)
	}
	return w.Flush()
}
