package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/llm"
	"github.com/ryosukesatoh/arxiv-digest/internal/publisher"
	"github.com/ryosukesatoh/arxiv-digest/internal/relevance"
	"github.com/ryosukesatoh/arxiv-digest/internal/runner"
	"github.com/ryosukesatoh/arxiv-digest/internal/translator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env", ".env", "path to a .env file loaded before the config")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	logLevel := flag.String("log-level", "", "log level, overrides log.level from the config")
	flag.Parse()

	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := godotenv.Load(*envFile); err != nil {
		bootLog.Debug().Err(err).Str("path", *envFile).Msg(".env file not loaded, using process environment only")
	}

	cfg, err := loadConfig(*configPath, flagPassed("config"))
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger, err := newLogger(os.Stderr, cfg.Log.Format, level)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to set up logging")
	}

	r, err := buildRunner(cfg, logger, os.Stdout)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Single-run mode: run the pipeline once and exit
	if *once {
		if err := runJob(ctx, r, logger, "once"); err != nil {
			cancel()
			os.Exit(1)
		}
		return
	}

	if cfg.ShouldRunOnStart() {
		runJob(ctx, r, logger, "startup")
	}

	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger{logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)
	if _, err := c.AddFunc(cfg.Schedule, func() {
		runJob(ctx, r, logger, "schedule")
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("failed to set up cron schedule")
	}
	c.Start()
	logger.Info().
		Str("schedule", cfg.Schedule).
		Str("timezone", cfg.Location().String()).
		Msg("daily digest scheduled")

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("running job did not finish in time")
	}
	logger.Info().Msg("shutdown complete")
}

// loadConfig reads path. A missing file is only an error when the path was
// given explicitly.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if explicit {
		return config.Load(path)
	}
	return config.LoadOptional(path)
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

func newLogger(w io.Writer, format, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// buildRunner wires the pipeline from the configuration. out receives the
// stdout publisher's output.
func buildRunner(cfg *config.Config, logger zerolog.Logger, out io.Writer) (*runner.Runner, error) {
	f, err := fetcher.New(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fetcher.Type == "rss" && (len(cfg.Keywords) > 0 || cfg.Fetcher.DateRange) {
		logger.Warn().Msg("rss fetcher ignores keywords and date_range")
	}

	pub, err := publisher.New(cfg, out)
	if err != nil {
		return nil, err
	}

	var completer llm.Completer
	if cfg.HasCredentials() {
		completer = llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	} else {
		logger.Warn().Msg("no language model API key configured: abstracts are not translated")
		if cfg.TargetField != "" {
			logger.Warn().Str("target_field", cfg.TargetField).Msg("target field set without API key: every paper will be filtered out")
		}
	}
	if cfg.Publisher.Type == "wechat" && cfg.Publisher.WeChat.Key == "" {
		logger.Warn().Msg("wechat webhook key not set: messages will be skipped")
	}

	return runner.New(runner.Options{
		Query: fetcher.Query{
			Categories: cfg.Categories,
			Keywords:   cfg.Keywords,
			MaxResults: cfg.MaxResults,
			DateRange:  cfg.Fetcher.DateRange,
		},
		Window:     cfg.Window,
		Fetcher:    f,
		Classifier: relevance.New(cfg.TargetField, completer, logger),
		Translator: translator.New(cfg.LLM.TargetLanguage, completer, logger),
		Publisher:  pub,
		Logger:     logger,
	}), nil
}

// runJob runs the pipeline once and logs the outcome. Failures never stop the
// scheduler.
func runJob(ctx context.Context, r *runner.Runner, logger zerolog.Logger, trigger string) error {
	logger.Info().Str("trigger", trigger).Msg("running digest")
	report, err := r.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Str("run_id", report.RunID).Msg("run interrupted")
		} else {
			logger.Error().Err(err).Str("run_id", report.RunID).Msg("run failed")
		}
		return err
	}
	return nil
}

// cronLogger routes robfig/cron's messages into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
