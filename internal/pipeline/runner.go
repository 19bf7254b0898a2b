// Package pipeline glues the conversion stages together: revision store
// in, aggregator, sequencer, emitter out. One Runner serves exactly one
// conversion run; it owns a freshly constructed symbol table, aggregator
// and sequencer, so independent runs can never share state.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/retroforge/retroforge/internal/aggregate"
	"github.com/retroforge/retroforge/internal/model"
	"github.com/retroforge/retroforge/internal/observability"
	"github.com/retroforge/retroforge/internal/sequence"
	"github.com/retroforge/retroforge/internal/symbols"
)

// tracerName is the default OTel tracer name for the pipeline package.
const tracerName = "retroforge"

// Options configures a single conversion run.
type Options struct {
	// Window bounds the grouping timestamp gap. Zero selects the
	// aggregator default.
	Window time.Duration

	// Tiebreak selects the same-timestamp ordering policy.
	Tiebreak string

	// Emitter receives the finalized commit stream.
	Emitter sequence.Emitter

	// Logger receives structured progress and rejection reports.
	// When nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics receives pipeline counters. Optional.
	Metrics *observability.PipelineMetrics

	// Tracer is the OTel tracer for the run span.
	// When nil, falls back to otel.Tracer("retroforge").
	Tracer trace.Tracer

	// BatchSize overrides the record streamer batch size. Zero selects
	// the streamer default.
	BatchSize int
}

// Runner executes one conversion run.
type Runner struct {
	opts Options

	table      *symbols.Table
	aggregator *aggregate.Aggregator
	sequencer  *sequence.Sequencer
	logger     *slog.Logger
}

// NewRunner creates a runner with independent, freshly initialized
// aggregation state. Nothing is carried over from any previous run.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	table := symbols.NewTable()

	return &Runner{
		opts:       opts,
		table:      table,
		aggregator: aggregate.NewAggregator(table, aggregate.Config{Window: opts.Window}),
		sequencer:  sequence.NewSequencer(table, opts.Emitter, sequence.Config{Tiebreak: opts.Tiebreak}),
		logger:     logger,
	}
}

// tracer returns the configured tracer, falling back to the global provider.
func (r *Runner) tracer() trace.Tracer {
	if r.opts.Tracer != nil {
		return r.opts.Tracer
	}

	return otel.Tracer(tracerName)
}

// Run converts the store's records into an emitted commit sequence and
// returns the conversion report. A consistency violation aborts the run
// with the violation as the returned error; out-of-order records are
// rejected, reported, and skipped.
func (r *Runner) Run(ctx context.Context, store *model.Store) (*Report, error) {
	ctx, span := r.tracer().Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.Int("records", store.Len())))
	defer span.End()

	// The cancel releases the streamer goroutine when a fatal violation
	// stops consumption mid-stream.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()
	report := &Report{RecordsIn: store.Len()}

	streamer := NewRecordStreamer()
	if r.opts.BatchSize > 0 {
		streamer.BatchSize = r.opts.BatchSize
	}

	for batch := range streamer.Stream(ctx, store.Ordered()) {
		err := r.consumeBatch(ctx, batch, report)
		if err != nil {
			return report, err
		}
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return report, ctxErr
	}

	flushErr := r.finish(ctx, report)
	if flushErr != nil {
		return report, flushErr
	}

	report.CommitsEmitted = r.sequencer.Emitted()
	report.SymbolCommits = r.sequencer.SymbolCommits()
	report.Symbols = r.table.Names()
	report.Elapsed = time.Since(started)

	if r.opts.Metrics != nil {
		r.opts.Metrics.CommitsEmitted.Add(float64(report.CommitsEmitted))
		r.opts.Metrics.SymbolCommits.Add(float64(report.SymbolCommits))
	}

	r.logger.InfoContext(ctx, "conversion complete",
		"records", report.RecordsIn,
		"rejected", report.RecordsRejected,
		"commits", report.CommitsEmitted,
		"symbol_commits", report.SymbolCommits,
		"elapsed", report.Elapsed,
	)

	return report, nil
}

// consumeBatch feeds one record batch to the aggregator and drains the
// sequencer afterwards, mirroring the original tool's sort-and-flush of
// its ready queue after every changeset.
func (r *Runner) consumeBatch(ctx context.Context, batch RecordBatch, report *Report) error {
	for _, rec := range batch.Records {
		sealed, err := r.aggregator.Append(rec)

		var outOfOrder *model.OutOfOrderError
		if errors.As(err, &outOfOrder) {
			report.RecordsRejected++
			r.countRejected()
			r.logger.WarnContext(ctx, "rejected out-of-order record",
				"file", outOfOrder.File,
				"revision", outOfOrder.Revision,
				"branch", outOfOrder.Branch,
			)

			continue
		}

		if err != nil {
			return err
		}

		r.countConsumed()
		r.enqueue(sealed, report)
	}

	return r.sequencer.Drain(ctx)
}

// finish seals the remaining open candidates and flushes the sequencer.
func (r *Runner) finish(ctx context.Context, report *Report) error {
	sealed, err := r.aggregator.Flush()
	if err != nil {
		return err
	}

	r.enqueue(sealed, report)

	return r.sequencer.Flush(ctx)
}

// enqueue hands sealed candidates to the sequencer.
func (r *Runner) enqueue(sealed []*aggregate.Candidate, report *Report) {
	for _, cand := range sealed {
		r.sequencer.Enqueue(cand)
		report.CandidatesSealed++

		if r.opts.Metrics != nil {
			r.opts.Metrics.CandidatesSealed.Inc()
		}
	}
}

func (r *Runner) countConsumed() {
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordsConsumed.Inc()
	}
}

func (r *Runner) countRejected() {
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordsRejected.Inc()
	}
}
