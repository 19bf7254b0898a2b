package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds for the aggregation/sequencing core.
var (
	// ErrEmptyNonSymbolCommit indicates a sealed commit candidate has zero
	// constituent revisions but was not flagged symbol-only. Fatal: the
	// aggregator's bookkeeping diverged from the symbol table.
	ErrEmptyNonSymbolCommit = errors.New("sealed candidate has no revisions and is not symbol-only")

	// ErrSymbolNotYetCreated indicates a commit references a branch/tag
	// whose creation commit has not been emitted. Fatal: the replay order
	// is broken and continuing could corrupt target history.
	ErrSymbolNotYetCreated = errors.New("commit references a symbol whose creation commit was not emitted")

	// ErrOutOfOrderRevision indicates a revision record's timestamp
	// precedes the last-seen timestamp on its branch. Non-fatal: the
	// record is rejected and the run continues.
	ErrOutOfOrderRevision = errors.New("revision timestamp precedes last-seen timestamp on its branch")
)

// ConsistencyError is a fatal internal-consistency violation in the
// aggregator or sequencer. It carries the offending candidate's branch,
// the attempted sequence position (0 when no position was assigned yet),
// and the constituent count, so callers can log a precise diagnostic.
type ConsistencyError struct {
	Kind    error
	Branch  string
	Seq     int
	Members int
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation on branch %q at sequence %d (%d members): %v",
		e.Branch, e.Seq, e.Members, e.Kind)
}

// Unwrap exposes the sentinel kind for errors.Is matching.
func (e *ConsistencyError) Unwrap() error { return e.Kind }

// OutOfOrderError reports a rejected revision record whose timestamp
// moved backwards on its branch. It is a data-quality issue, not a
// core-logic defect, and never aborts the run.
type OutOfOrderError struct {
	File     string
	Revision string
	Branch   string
	Time     time.Time
	LastSeen time.Time
}

// Error implements the error interface.
func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order revision %s of %q on branch %q: %s precedes %s",
		e.Revision, e.File, e.Branch,
		e.Time.Format(time.RFC3339), e.LastSeen.Format(time.RFC3339))
}

// Unwrap exposes the sentinel kind for errors.Is matching.
func (e *OutOfOrderError) Unwrap() error { return ErrOutOfOrderRevision }
