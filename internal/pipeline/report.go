package pipeline

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Report summarizes one conversion run for audit purposes.
type Report struct {
	RecordsIn        int           `yaml:"records_in"`
	RecordsRejected  int           `yaml:"records_rejected"`
	CandidatesSealed int           `yaml:"candidates_sealed"`
	CommitsEmitted   int           `yaml:"commits_emitted"`
	SymbolCommits    int           `yaml:"symbol_commits"`
	Symbols          []string      `yaml:"symbols,omitempty"`
	Elapsed          time.Duration `yaml:"elapsed"`
}

// WriteYAML marshals the report to w.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)

	err := enc.Encode(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return enc.Close()
}
