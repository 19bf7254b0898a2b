// Package observability provides metrics and scrape-endpoint plumbing
// for the conversion pipeline.
package observability

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics holds the counters the conversion pipeline updates as
// it runs.
type PipelineMetrics struct {
	RecordsConsumed  prometheus.Counter
	RecordsRejected  prometheus.Counter
	CandidatesSealed prometheus.Counter
	CommitsEmitted   prometheus.Counter
	SymbolCommits    prometheus.Counter
}

// NewPipelineMetrics creates and registers the pipeline counters. Pass
// nil to skip registration (tests, dry runs).
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		RecordsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retroforge_records_consumed_total",
			Help: "Revision records consumed by the aggregator.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retroforge_records_rejected_total",
			Help: "Revision records rejected as out-of-order input.",
		}),
		CandidatesSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retroforge_candidates_sealed_total",
			Help: "Commit candidates sealed by the aggregator.",
		}),
		CommitsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retroforge_commits_emitted_total",
			Help: "Finalized commits handed to the emitter.",
		}),
		SymbolCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retroforge_symbol_commits_total",
			Help: "Symbol-creation commits emitted.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RecordsConsumed,
			m.RecordsRejected,
			m.CandidatesSealed,
			m.CommitsEmitted,
			m.SymbolCommits,
		)
	}

	return m
}
