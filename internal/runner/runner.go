package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/arxiv-digest/internal/fallback"
	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/publisher"
)

// Classifier decides whether an abstract is in scope.
type Classifier interface {
	Classify(ctx context.Context, abstract string) fallback.Result[bool]
}

// Translator rewrites an abstract into the reader's language.
type Translator interface {
	Translate(ctx context.Context, text string) fallback.Result[string]
}

// Options wires the pipeline steps together. A nil Now defaults to time.Now.
type Options struct {
	Query      fetcher.Query
	Window     time.Duration
	Fetcher    fetcher.Fetcher
	Classifier Classifier
	Translator Translator
	Publisher  publisher.Publisher
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Report counts what happened during one run.
type Report struct {
	RunID              string
	Cutoff             time.Time
	Fetched            int
	FilteredOut        int
	ClassifyFallbacks  int
	Translated         int
	TranslateFallbacks int
	Delivered          int
	DeliveryFailures   int
	DeliveriesSkipped  int
}

// Runner orchestrates the fetch -> filter -> translate -> publish pipeline.
type Runner struct {
	query      fetcher.Query
	window     time.Duration
	fetcher    fetcher.Fetcher
	classifier Classifier
	translator Translator
	publisher  publisher.Publisher
	log        zerolog.Logger
	now        func() time.Time
}

func New(opts Options) *Runner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		query:      opts.Query,
		window:     opts.Window,
		fetcher:    opts.Fetcher,
		classifier: opts.Classifier,
		translator: opts.Translator,
		publisher:  opts.Publisher,
		log:        opts.Logger,
		now:        now,
	}
}

// Run executes the full pipeline once. Only a failed fetch or a cancelled
// context is returned as an error; per-paper failures are logged and counted.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	now := r.now()
	report := Report{
		RunID:  uuid.NewString(),
		Cutoff: now.Add(-r.window),
	}
	log := r.log.With().Str("run_id", report.RunID).Logger()

	q := r.query
	q.Until = now

	log.Info().
		Strs("categories", q.Categories).
		Int("max_results", q.MaxResults).
		Time("cutoff", report.Cutoff).
		Msg("starting pipeline")

	papers, err := r.fetcher.Fetch(ctx, q, report.Cutoff)
	if err != nil {
		return report, fmt.Errorf("runner: fetch failed: %w", err)
	}
	report.Fetched = len(papers)
	log.Info().Int("papers", len(papers)).Msg("fetched papers")

	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("runner: interrupted: %w", err)
		}
		r.process(ctx, log.With().Str("link", p.Link).Logger(), p, &report)
	}

	log.Info().
		Int("fetched", report.Fetched).
		Int("filtered_out", report.FilteredOut).
		Int("translated", report.Translated).
		Int("translate_fallbacks", report.TranslateFallbacks).
		Int("delivered", report.Delivered).
		Int("delivery_failures", report.DeliveryFailures).
		Int("deliveries_skipped", report.DeliveriesSkipped).
		Msg("pipeline completed")

	return report, nil
}

func (r *Runner) process(ctx context.Context, log zerolog.Logger, p fetcher.Paper, report *Report) {
	relevant := r.classifier.Classify(ctx, p.Summary)
	if relevant.FellBack() {
		report.ClassifyFallbacks++
	}
	if !relevant.Value {
		report.FilteredOut++
		log.Debug().Str("title", p.Title).Msg("paper filtered out")
		return
	}

	translated := r.translator.Translate(ctx, p.Summary)
	if translated.FellBack() {
		report.TranslateFallbacks++
	} else {
		report.Translated++
	}

	message := publisher.FormatPaper(p, translated.Value)
	if err := r.publisher.Publish(ctx, message); err != nil {
		if errors.Is(err, publisher.ErrNotConfigured) {
			report.DeliveriesSkipped++
			log.Warn().Err(err).Msg("delivery skipped")
			return
		}
		report.DeliveryFailures++
		log.Error().Err(err).Str("title", p.Title).Msg("failed to deliver message")
		return
	}
	report.Delivered++
	log.Debug().Str("title", p.Title).Msg("message delivered")
}
