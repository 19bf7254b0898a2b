// Package commands implements the retroforge CLI subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/retroforge/retroforge/internal/config"
	"github.com/retroforge/retroforge/internal/emit"
	"github.com/retroforge/retroforge/internal/load"
	"github.com/retroforge/retroforge/internal/model"
	"github.com/retroforge/retroforge/internal/observability"
	"github.com/retroforge/retroforge/internal/pipeline"
	"github.com/retroforge/retroforge/internal/sequence"
)

// ErrNoInput indicates the convert command was run without an input stream.
var ErrNoInput = errors.New("no input stream. Use --input <path> or --input - for stdin")

// metricsReadTimeout bounds header reads on the metrics endpoint.
const metricsReadTimeout = 5 * time.Second

// ConvertCommand holds the configuration for the convert command.
type ConvertCommand struct {
	input      string
	journal    string
	compress   bool
	reportPath string
	window     string
	tiebreak   string
	configPath string
}

// NewConvertCommand creates and configures the convert command.
func NewConvertCommand() *cobra.Command {
	cc := &ConvertCommand{}

	cobraCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a parsed revision stream into an ordered commit journal",
		Long: `Convert reads an externally-parsed revision stream (JSON Lines, one
per-file revision per line), groups revisions into atomic commits, orders
them with symbol-creation commits ahead of their branches, and writes the
finalized sequence to the commit journal.`,
		RunE: cc.run,
	}

	cobraCmd.Flags().StringVarP(&cc.input, "input", "i", "", "Revision stream path ('-' for stdin)")
	cobraCmd.Flags().StringVarP(&cc.journal, "journal", "j", "", "Commit journal output path (empty = dry run)")
	cobraCmd.Flags().BoolVar(&cc.compress, "compress", false, "LZ4-compress the commit journal")
	cobraCmd.Flags().StringVar(&cc.reportPath, "report", "", "Write a YAML conversion report to this path")
	cobraCmd.Flags().StringVar(&cc.window, "window", "", "Grouping window (e.g. '5m'; empty = config/default)")
	cobraCmd.Flags().StringVar(&cc.tiebreak, "tiebreak", "", "Same-timestamp ordering policy (branch-lexical, arrival)")
	cobraCmd.Flags().StringVarP(&cc.configPath, "config", "c", "", "Config file path (default: .retroforge.yaml)")

	return cobraCmd
}

// run executes one conversion.
func (cc *ConvertCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := cc.loadConfig()
	if err != nil {
		return err
	}

	if cc.input == "" {
		return ErrNoInput
	}

	store, rejections, err := cc.readInput()
	if err != nil {
		return err
	}

	logger := slog.Default()
	for _, rej := range rejections {
		logger.Warn("rejected input line", "line", rej.Line, "reason", rej.Reason)
	}

	emitter, closeJournal, err := cc.buildEmitter(cfg)
	if err != nil {
		return err
	}

	metrics := cc.startTelemetry(cfg, logger)

	runner := pipeline.NewRunner(pipeline.Options{
		Window:   cfg.WindowDuration(),
		Tiebreak: cfg.Grouping.Tiebreak,
		Emitter:  emitter,
		Logger:   logger,
		Metrics:  metrics,
	})

	report, runErr := runner.Run(cmd.Context(), store)

	closeErr := closeJournal()
	if runErr != nil {
		printFatal(runErr)

		return runErr
	}

	if closeErr != nil {
		return closeErr
	}

	writeErr := cc.writeReport(cfg, report)
	if writeErr != nil {
		return writeErr
	}

	if !quietOutput(cmd) {
		renderSummary(os.Stdout, report)
	}

	return nil
}

// loadConfig loads the config file and applies flag overrides.
func (cc *ConvertCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cc.configPath)
	if err != nil {
		return nil, err
	}

	if cc.window != "" {
		cfg.Grouping.Window = cc.window
	}

	if cc.tiebreak != "" {
		cfg.Grouping.Tiebreak = cc.tiebreak
	}

	if cc.journal != "" {
		cfg.Output.Journal = cc.journal
		cfg.Output.Compress = cc.compress
	}

	if cc.reportPath != "" {
		cfg.Output.Report = cc.reportPath
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// readInput opens and parses the revision stream.
func (cc *ConvertCommand) readInput() (*model.Store, []load.Rejection, error) {
	var reader io.Reader = os.Stdin

	if cc.input != "-" {
		f, err := os.Open(cc.input)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		reader = f
	}

	return load.ReadRecords(reader)
}

// buildEmitter constructs the commit emitter chain and returns a close
// function for the journal, if one was opened.
func (cc *ConvertCommand) buildEmitter(cfg *config.Config) (sequence.Emitter, func() error, error) {
	if cfg.Output.Journal == "" {
		return emit.Discard{}, func() error { return nil }, nil
	}

	f, err := os.Create(cfg.Output.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("create journal: %w", err)
	}

	journal := emit.NewJournal(f, cfg.Output.Compress)

	return journal, journal.Close, nil
}

// startTelemetry starts the metrics endpoint when enabled and returns
// the pipeline counters to update.
func (cc *ConvertCommand) startTelemetry(cfg *config.Config, logger *slog.Logger) *observability.PipelineMetrics {
	if !cfg.Telemetry.Enabled {
		return nil
	}

	registry, handler, err := observability.PrometheusHandler()
	if err != nil {
		logger.Warn("metrics endpoint disabled", "error", err)

		return nil
	}

	metrics := observability.NewPipelineMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              cfg.Telemetry.Listen,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("metrics endpoint stopped", "error", serveErr)
		}
	}()

	return metrics
}

// writeReport writes the YAML conversion report when configured.
func (cc *ConvertCommand) writeReport(cfg *config.Config, report *pipeline.Report) error {
	if cfg.Output.Report == "" {
		return nil
	}

	f, err := os.Create(cfg.Output.Report)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	return report.WriteYAML(f)
}

// printFatal prints a highlighted diagnostic for fatal consistency
// violations, including the offending branch, sequence position, and
// constituent count the core surfaced.
func printFatal(err error) {
	var violation *model.ConsistencyError
	if errors.As(err, &violation) {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr,
			"fatal: consistency violation on branch %q (sequence %d, %d members)\n",
			violation.Branch, violation.Seq, violation.Members)

		return
	}

	color.New(color.FgRed).Fprintf(os.Stderr, "fatal: %v\n", err)
}

// renderSummary prints the post-conversion summary table.
func renderSummary(w io.Writer, report *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Records in", humanize.Comma(int64(report.RecordsIn))},
		{"Records rejected", humanize.Comma(int64(report.RecordsRejected))},
		{"Candidates sealed", humanize.Comma(int64(report.CandidatesSealed))},
		{"Commits emitted", humanize.Comma(int64(report.CommitsEmitted))},
		{"Symbol commits", humanize.Comma(int64(report.SymbolCommits))},
		{"Elapsed", report.Elapsed.Round(time.Millisecond).String()},
	})
	t.Render()
}

// quietOutput reports whether the --quiet persistent flag is set.
func quietOutput(cmd *cobra.Command) bool {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")

	return err == nil && quiet
}
