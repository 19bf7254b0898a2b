// Package sequence orders sealed commit candidates into the final
// emission sequence: gapless commit numbers from 1, symbol-creation
// commits strictly before any commit on their branch.
package sequence

import (
	"context"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/retroforge/retroforge/internal/aggregate"
	"github.com/retroforge/retroforge/internal/model"
	"github.com/retroforge/retroforge/internal/symbols"
)

// Tiebreak policies for candidates that are ready at the same
// representative timestamp.
const (
	// TiebreakBranchLexical orders ties by branch name, symbol-creation
	// candidates first. Deterministic and stable across platforms.
	TiebreakBranchLexical = "branch-lexical"

	// TiebreakArrival orders ties by the order candidates were enqueued.
	TiebreakArrival = "arrival"
)

// Emitter receives finalized commits in sequence order. Implementations
// write them to the target system; the sequencer retains nothing beyond
// audit counters.
type Emitter interface {
	Emit(ctx context.Context, commit *model.Commit) error
}

// Config holds sequencer policy.
type Config struct {
	// Tiebreak selects the ordering policy for equal timestamps.
	// Empty selects TiebreakBranchLexical.
	Tiebreak string
}

// Sequencer assigns monotonically increasing sequence numbers to sealed
// candidates and enforces the symbol-dependency order: a branch commit
// may only be emitted once its symbol's creation commit has been. One
// Sequencer serves exactly one conversion run.
type Sequencer struct {
	table   *symbols.Table
	emitter Emitter

	ready   *treemap.Map
	next    int
	arrival int

	emitted       int
	symbolCommits int
}

// readyKey orders the ready queue: representative timestamp first, then
// the configured tiebreak.
type readyKey struct {
	when       int64 // UnixNano
	symbolOnly bool
	branch     string
	arrival    int
}

// NewSequencer creates a sequencer bound to a run's symbol table and an
// emitter. Sequence numbers start at 1.
func NewSequencer(table *symbols.Table, emitter Emitter, cfg Config) *Sequencer {
	tiebreak := cfg.Tiebreak
	if tiebreak == "" {
		tiebreak = TiebreakBranchLexical
	}

	return &Sequencer{
		table:   table,
		emitter: emitter,
		ready:   treemap.NewWith(comparator(tiebreak)),
		next:    1,
	}
}

// comparator builds the ready-queue ordering for a tiebreak policy.
func comparator(tiebreak string) func(a, b interface{}) int {
	return func(a, b interface{}) int {
		ka, kb := a.(readyKey), b.(readyKey)

		switch {
		case ka.when < kb.when:
			return -1
		case ka.when > kb.when:
			return 1
		}

		if tiebreak == TiebreakBranchLexical {
			// Symbol creations sort ahead of same-instant commits so a
			// branch is always established before its first commit.
			if ka.symbolOnly != kb.symbolOnly {
				if ka.symbolOnly {
					return -1
				}

				return 1
			}

			switch {
			case ka.branch < kb.branch:
				return -1
			case ka.branch > kb.branch:
				return 1
			}
		}

		return ka.arrival - kb.arrival
	}
}

// Enqueue adds a sealed candidate to the ready queue.
func (s *Sequencer) Enqueue(cand *aggregate.Candidate) {
	key := readyKey{
		when:       cand.Latest().UnixNano(),
		symbolOnly: cand.SymbolOnly(),
		branch:     cand.Branch(),
		arrival:    s.arrival,
	}
	s.arrival++

	s.ready.Put(key, cand)
}

// Drain emits every queued candidate in ready order. Emission either
// succeeds for all queued candidates or stops at the first fatal
// violation; a fatal error leaves the remaining queue untouched and the
// run must be abandoned.
func (s *Sequencer) Drain(ctx context.Context) error {
	for !s.ready.Empty() {
		key, value := s.ready.Min()

		err := s.emit(ctx, value.(*aggregate.Candidate))
		if err != nil {
			return err
		}

		s.ready.Remove(key)
	}

	return nil
}

// Flush drains any remaining candidates. Call once after the last
// candidate has been enqueued.
func (s *Sequencer) Flush(ctx context.Context) error {
	return s.Drain(ctx)
}

// Emitted reports the number of commits handed to the emitter.
func (s *Sequencer) Emitted() int { return s.emitted }

// SymbolCommits reports how many emitted commits were symbol-only.
func (s *Sequencer) SymbolCommits() int { return s.symbolCommits }

// emit finalizes one candidate, hands it to the emitter, and updates
// symbol state. The sequence number is consumed only on success.
func (s *Sequencer) emit(ctx context.Context, cand *aggregate.Candidate) error {
	members := cand.Members()

	if len(members) == 0 && !cand.SymbolOnly() {
		return &model.ConsistencyError{
			Kind:    model.ErrEmptyNonSymbolCommit,
			Branch:  cand.Branch(),
			Seq:     s.next,
			Members: 0,
		}
	}

	if !cand.SymbolOnly() && cand.Branch() != "" && !s.table.Created(cand.Branch()) {
		return &model.ConsistencyError{
			Kind:    model.ErrSymbolNotYetCreated,
			Branch:  cand.Branch(),
			Seq:     s.next,
			Members: len(members),
		}
	}

	changes := make([]model.Change, 0, len(members))
	for _, rec := range members {
		changes = append(changes, model.Change{File: rec.File, Revision: rec.Revision})
	}

	commit := &model.Commit{
		Seq:        s.next,
		Author:     cand.Author(),
		Log:        cand.Log(),
		Time:       cand.Latest(),
		Branch:     cand.Branch(),
		Changes:    changes,
		SymbolOnly: cand.SymbolOnly(),
	}

	err := s.emitter.Emit(ctx, commit)
	if err != nil {
		return fmt.Errorf("emit commit %d: %w", s.next, err)
	}

	if cand.SymbolOnly() {
		markErr := s.table.MarkCreated(cand.Symbol(), cand.SymbolRevision())
		if markErr != nil {
			return markErr
		}

		s.symbolCommits++
	}

	s.next++
	s.emitted++

	return nil
}
