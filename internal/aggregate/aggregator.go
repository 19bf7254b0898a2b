// Package aggregate groups a time-ordered stream of per-file revision
// records into commit candidates: provisional multi-file commits that
// plausibly originate from one author action.
package aggregate

import (
	"sort"
	"time"

	"github.com/retroforge/retroforge/internal/model"
	"github.com/retroforge/retroforge/internal/symbols"
)

// DefaultWindow is the default grouping window: the maximum gap between
// a candidate's latest member and a joining record. The exact bound is a
// policy knob, not a constant of the algorithm; tune it against real
// conversion fixtures.
const DefaultWindow = 5 * time.Minute

// Config holds aggregator policy.
type Config struct {
	// Window bounds the timestamp gap for grouping. Zero selects
	// DefaultWindow.
	Window time.Duration
}

// Aggregator consumes revision records in non-decreasing global
// timestamp order and produces sealed commit candidates. Records on
// different branches are never merged into one candidate. One Aggregator
// serves exactly one conversion run.
type Aggregator struct {
	window time.Duration
	table  *symbols.Table

	// open holds the currently-open candidate per branch.
	open map[string]*Candidate

	// lastSeen tracks the newest timestamp admitted per branch, for
	// out-of-order rejection.
	lastSeen map[string]time.Time
}

// NewAggregator creates an aggregator bound to a run's symbol table.
func NewAggregator(table *symbols.Table, cfg Config) *Aggregator {
	window := cfg.Window
	if window == 0 {
		window = DefaultWindow
	}

	return &Aggregator{
		window:   window,
		table:    table,
		open:     make(map[string]*Candidate),
		lastSeen: make(map[string]time.Time),
	}
}

// Append consumes one record and returns the candidates sealed by it, in
// emission-safe order: expired candidates first, then symbol-creation
// candidates for symbols the record defines, then the candidate sealed
// by a grouping boundary on the record's branch.
//
// A record whose timestamp precedes the branch's last-seen timestamp is
// rejected with a [model.OutOfOrderError]; the aggregator state is
// unchanged and the caller may continue. Any other error is a fatal
// consistency violation.
func (a *Aggregator) Append(rec *model.RevisionRecord) ([]*Candidate, error) {
	if last, ok := a.lastSeen[rec.Branch]; ok && rec.Time.Before(last) {
		return nil, &model.OutOfOrderError{
			File:     rec.File,
			Revision: rec.Revision,
			Branch:   rec.Branch,
			Time:     rec.Time,
			LastSeen: last,
		}
	}

	a.lastSeen[rec.Branch] = rec.Time

	sealed, err := a.expire(rec.Time)
	if err != nil {
		return sealed, err
	}

	// Schedule a creation candidate for every symbol this record defines
	// that the table has not seen yet. Symbol names are visited in
	// lexical order so results are platform-stable.
	newSyms := append([]string(nil), rec.NewSymbols...)
	sort.Strings(newSyms)

	for _, sym := range newSyms {
		if a.table.Observe(sym) {
			sealed = append(sealed, NewSymbolCandidate(sym, rec.Revision, rec.Time))
		}
	}

	// Definition-only records attach symbols to an already-recorded
	// revision; they carry no content change and never join a candidate.
	if rec.DefinitionOnly {
		return sealed, nil
	}

	cand, ok := a.open[rec.Branch]
	if ok && cand.Accepts(rec, a.window) {
		addErr := cand.Add(rec)

		return sealed, addErr
	}

	if ok {
		sealErr := cand.Seal()
		if sealErr != nil {
			return sealed, sealErr
		}

		sealed = append(sealed, cand)
	}

	a.open[rec.Branch] = NewCandidate(rec)

	return sealed, nil
}

// Flush seals every remaining open candidate, in lexical branch order,
// and resets the aggregator's per-branch state. Call once after the last
// record.
func (a *Aggregator) Flush() ([]*Candidate, error) {
	branches := make([]string, 0, len(a.open))
	for branch := range a.open {
		branches = append(branches, branch)
	}

	sort.Strings(branches)

	sealed := make([]*Candidate, 0, len(branches))

	for _, branch := range branches {
		cand := a.open[branch]

		err := cand.Seal()
		if err != nil {
			return sealed, err
		}

		sealed = append(sealed, cand)
		delete(a.open, branch)
	}

	return sealed, nil
}

// expire seals open candidates that can no longer accept members: once
// the global clock reaches now, any candidate whose latest member is
// older than now minus the window is final, because input arrives in
// non-decreasing timestamp order. Expired branches are visited in
// lexical order for determinism.
func (a *Aggregator) expire(now time.Time) ([]*Candidate, error) {
	var expired []string

	for branch, cand := range a.open {
		if now.After(cand.Latest().Add(a.window)) {
			expired = append(expired, branch)
		}
	}

	sort.Strings(expired)

	var sealed []*Candidate

	for _, branch := range expired {
		cand := a.open[branch]

		err := cand.Seal()
		if err != nil {
			return sealed, err
		}

		sealed = append(sealed, cand)
		delete(a.open, branch)
	}

	return sealed, nil
}
