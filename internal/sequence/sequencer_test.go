package sequence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroforge/retroforge/internal/aggregate"
	"github.com/retroforge/retroforge/internal/emit"
	"github.com/retroforge/retroforge/internal/model"
	"github.com/retroforge/retroforge/internal/sequence"
	"github.com/retroforge/retroforge/internal/symbols"
)

func record(file, revision, branch string, at int64) *model.RevisionRecord {
	return &model.RevisionRecord{
		File:     file,
		Revision: revision,
		Author:   "alice",
		Time:     time.Unix(at, 0).UTC(),
		Log:      "fix typo",
		Branch:   branch,
	}
}

func sealedCandidate(t *testing.T, recs ...*model.RevisionRecord) *aggregate.Candidate {
	t.Helper()

	cand := aggregate.NewCandidate(recs[0])
	for _, r := range recs[1:] {
		require.NoError(t, cand.Add(r))
	}

	require.NoError(t, cand.Seal())

	return cand
}

func TestSequencer_GaplessFromOne(t *testing.T) {
	t.Parallel()

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(symbols.NewTable(), collector, sequence.Config{})

	seq.Enqueue(sealedCandidate(t, record("a.txt", "1.1", "", 100)))
	seq.Enqueue(sealedCandidate(t, record("b.txt", "1.1", "", 200)))
	seq.Enqueue(sealedCandidate(t, record("c.txt", "1.1", "", 300)))

	require.NoError(t, seq.Flush(context.Background()))
	require.Len(t, collector.Commits, 3)

	for i, commit := range collector.Commits {
		assert.Equal(t, i+1, commit.Seq)
	}

	assert.Equal(t, 3, seq.Emitted())
	assert.Zero(t, seq.SymbolCommits())
}

func TestSequencer_SymbolCreationBeforeUse(t *testing.T) {
	t.Parallel()

	table := symbols.NewTable()
	table.Observe("BRANCH-1")

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(table, collector, sequence.Config{})

	seq.Enqueue(aggregate.NewSymbolCandidate("BRANCH-1", "1.2", time.Unix(100, 0)))
	seq.Enqueue(sealedCandidate(t, record("a.txt", "1.2.2.1", "BRANCH-1", 150)))

	assert.False(t, table.Created("BRANCH-1"), "symbol must not be created before emission")

	require.NoError(t, seq.Flush(context.Background()))
	require.Len(t, collector.Commits, 2)

	assert.Equal(t, 1, collector.Commits[0].Seq)
	assert.True(t, collector.Commits[0].SymbolOnly)
	assert.Equal(t, "BRANCH-1", collector.Commits[0].Branch)
	assert.Empty(t, collector.Commits[0].Changes)

	assert.Equal(t, 2, collector.Commits[1].Seq)
	assert.False(t, collector.Commits[1].SymbolOnly)
	assert.Len(t, collector.Commits[1].Changes, 1)

	assert.True(t, table.Created("BRANCH-1"))

	rev, ok := table.LastRevision("BRANCH-1")
	require.True(t, ok)
	assert.Equal(t, "1.2", rev)
	assert.Equal(t, 1, seq.SymbolCommits())
}

func TestSequencer_SymbolNotYetCreatedIsFatal(t *testing.T) {
	t.Parallel()

	table := symbols.NewTable()
	table.Observe("BRANCH-1")

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(table, collector, sequence.Config{})

	seq.Enqueue(sealedCandidate(t, record("a.txt", "1.2.2.1", "BRANCH-1", 150)))

	err := seq.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSymbolNotYetCreated)

	var violation *model.ConsistencyError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "BRANCH-1", violation.Branch)
	assert.Equal(t, 1, violation.Seq)
	assert.Equal(t, 1, violation.Members)

	assert.Empty(t, collector.Commits)
}

func TestSequencer_EmptyNonSymbolAtEmissionIsFatal(t *testing.T) {
	t.Parallel()

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(symbols.NewTable(), collector, sequence.Config{})

	// The zero-value candidate has no members and no symbol-only flag;
	// it models the bookkeeping divergence the emission guard exists for.
	seq.Enqueue(&aggregate.Candidate{})

	err := seq.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmptyNonSymbolCommit)

	var violation *model.ConsistencyError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 1, violation.Seq)
	assert.Zero(t, violation.Members)
}

func TestSequencer_TimestampOrderAcrossBranches(t *testing.T) {
	t.Parallel()

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(symbols.NewTable(), collector, sequence.Config{})

	// Enqueue out of timestamp order; emission must re-order.
	seq.Enqueue(sealedCandidate(t, record("late.txt", "1.1", "", 300)))
	seq.Enqueue(sealedCandidate(t, record("early.txt", "1.1", "", 100)))

	require.NoError(t, seq.Flush(context.Background()))
	require.Len(t, collector.Commits, 2)
	assert.Equal(t, "early.txt", collector.Commits[0].Changes[0].File)
	assert.Equal(t, "late.txt", collector.Commits[1].Changes[0].File)
}

func TestSequencer_TiebreakBranchLexical(t *testing.T) {
	t.Parallel()

	table := symbols.NewTable()
	table.Observe("ZED")
	table.Observe("ALPHA")

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(table, collector,
		sequence.Config{Tiebreak: sequence.TiebreakBranchLexical})

	// Same instant: symbol creations first, then branch name order.
	seq.Enqueue(aggregate.NewSymbolCandidate("ZED", "1.2", time.Unix(100, 0)))
	seq.Enqueue(sealedCandidate(t, record("a.txt", "1.1", "", 100)))
	seq.Enqueue(aggregate.NewSymbolCandidate("ALPHA", "1.2", time.Unix(100, 0)))

	require.NoError(t, seq.Flush(context.Background()))
	require.Len(t, collector.Commits, 3)
	assert.Equal(t, "ALPHA", collector.Commits[0].Branch)
	assert.Equal(t, "ZED", collector.Commits[1].Branch)
	assert.False(t, collector.Commits[2].SymbolOnly)
}

func TestSequencer_TiebreakArrival(t *testing.T) {
	t.Parallel()

	collector := &emit.Collector{}
	seq := sequence.NewSequencer(symbols.NewTable(), collector,
		sequence.Config{Tiebreak: sequence.TiebreakArrival})

	seq.Enqueue(sealedCandidate(t, record("second.txt", "1.1", "", 100)))
	seq.Enqueue(sealedCandidate(t, record("first.txt", "1.1", "", 100)))

	require.NoError(t, seq.Flush(context.Background()))
	require.Len(t, collector.Commits, 2)
	assert.Equal(t, "second.txt", collector.Commits[0].Changes[0].File)
	assert.Equal(t, "first.txt", collector.Commits[1].Changes[0].File)
}

func TestSequencer_EmitterFailureStopsRun(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("target unavailable")
	seq := sequence.NewSequencer(symbols.NewTable(), failingEmitter{err: wantErr}, sequence.Config{})

	seq.Enqueue(sealedCandidate(t, record("a.txt", "1.1", "", 100)))

	err := seq.Flush(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Zero(t, seq.Emitted())
}

type failingEmitter struct {
	err error
}

func (f failingEmitter) Emit(_ context.Context, _ *model.Commit) error { return f.err }
