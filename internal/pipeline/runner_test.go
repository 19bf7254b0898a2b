package pipeline_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroforge/retroforge/internal/emit"
	"github.com/retroforge/retroforge/internal/model"
	"github.com/retroforge/retroforge/internal/pipeline"
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

func buildStore(t *testing.T, records ...*model.RevisionRecord) *model.Store {
	t.Helper()

	store, err := model.NewStore()
	require.NoError(t, err)

	for _, rec := range records {
		store.Add(rec)
	}

	return store
}

func runOnce(t *testing.T, store *model.Store, window time.Duration) (*pipeline.Report, *emit.Collector, error) {
	t.Helper()

	collector := &emit.Collector{}
	runner := pipeline.NewRunner(pipeline.Options{
		Window:  window,
		Emitter: collector,
	})

	report, err := runner.Run(context.Background(), store)

	return report, collector, err
}

func TestRunner_SingleCommitScenario(t *testing.T) {
	t.Parallel()

	store := buildStore(t,
		record("a.txt", "1.1", "", 100),
		record("b.txt", "1.1", "", 101),
		record("c.txt", "1.1", "", 103),
	)

	report, collector, err := runOnce(t, store, 5*time.Second)
	require.NoError(t, err)

	require.Len(t, collector.Commits, 1)
	commit := collector.Commits[0]
	assert.Equal(t, 1, commit.Seq)
	assert.Equal(t, "alice", commit.Author)
	assert.Equal(t, "fix typo", commit.Log)
	assert.Len(t, commit.Changes, 3)

	assert.Equal(t, 3, report.RecordsIn)
	assert.Equal(t, 1, report.CommitsEmitted)
	assert.Zero(t, report.RecordsRejected)
}

func TestRunner_SymbolCreationScenario(t *testing.T) {
	t.Parallel()

	intro := record("a.txt", "1.2", "", 100)
	intro.NewSymbols = []string{"BRANCH-1"}
	intro.DefinitionOnly = true

	use := record("a.txt", "1.2.2.1", "BRANCH-1", 150)

	store := buildStore(t, intro, use)

	_, collector, err := runOnce(t, store, 5*time.Second)
	require.NoError(t, err)

	require.Len(t, collector.Commits, 2)
	assert.Equal(t, 1, collector.Commits[0].Seq)
	assert.True(t, collector.Commits[0].SymbolOnly)
	assert.Equal(t, "BRANCH-1", collector.Commits[0].Branch)

	assert.Equal(t, 2, collector.Commits[1].Seq)
	assert.Equal(t, "BRANCH-1", collector.Commits[1].Branch)
	require.Len(t, collector.Commits[1].Changes, 1)
	assert.Equal(t, "1.2.2.1", collector.Commits[1].Changes[0].Revision)
}

func TestRunner_ConservationOfRecords(t *testing.T) {
	t.Parallel()

	var records []*model.RevisionRecord

	// Three bursts on trunk plus a branch line, interleaved in time.
	for burst := 0; burst < 3; burst++ {
		base := int64(burst * 3600)
		for i := 0; i < 4; i++ {
			r := record(fmt.Sprintf("f%d.txt", i), fmt.Sprintf("1.%d", burst+1), "", base+int64(i))
			r.Log = fmt.Sprintf("burst %d", burst)
			records = append(records, r)
		}
	}

	intro := record("f0.txt", "1.1", "", 10)
	intro.NewSymbols = []string{"B"}
	intro.DefinitionOnly = true
	records = append(records, intro)

	branchRec := record("f0.txt", "1.1.2.1", "B", 1800)
	branchRec.Log = "branch work"
	records = append(records, branchRec)

	store := buildStore(t, records...)

	report, collector, err := runOnce(t, store, 5*time.Second)
	require.NoError(t, err)

	// Every input record appears in exactly one emitted commit.
	seen := make(map[string]int)
	for _, commit := range collector.Commits {
		for _, change := range commit.Changes {
			seen[change.File+"@"+change.Revision+"@"+commit.Branch]++
		}
	}

	expected := 0
	for _, r := range records {
		if r.DefinitionOnly {
			continue
		}

		expected++
		key := r.File + "@" + r.Revision + "@" + r.Branch
		assert.Equal(t, 1, seen[key], "record %s must appear exactly once", key)
	}

	total := 0
	for _, n := range seen {
		total += n
	}

	assert.Equal(t, expected, total)

	// Sequence numbers are gapless from 1.
	for i, commit := range collector.Commits {
		assert.Equal(t, i+1, commit.Seq)
	}

	assert.Equal(t, len(collector.Commits), report.CommitsEmitted)
	assert.Equal(t, 1, report.SymbolCommits)
	assert.Equal(t, []string{"B"}, report.Symbols)
}

func TestRunner_IndependentRunsAreDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *model.Store {
		intro := record("a.txt", "1.2", "", 100)
		intro.NewSymbols = []string{"BRANCH-1"}
		intro.DefinitionOnly = true

		return buildStore(t,
			record("a.txt", "1.1", "", 10),
			record("b.txt", "1.1", "", 12),
			intro,
			record("a.txt", "1.2.2.1", "BRANCH-1", 150),
			record("b.txt", "1.2", "", 151),
		)
	}

	_, first, err := runOnce(t, build(), 5*time.Second)
	require.NoError(t, err)

	_, second, err := runOnce(t, build(), 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, first.Commits, second.Commits)
}

func TestRunner_StoreOrdersSkewedInput(t *testing.T) {
	t.Parallel()

	// Records arrive in arbitrary admission order; the store's total
	// order feeds the aggregator non-decreasing timestamps, so nothing
	// is rejected and grouping is unaffected.
	store := buildStore(t,
		record("c.txt", "1.1", "", 103),
		record("a.txt", "1.1", "", 100),
		record("b.txt", "1.1", "", 101),
	)

	report, collector, err := runOnce(t, store, 5*time.Second)
	require.NoError(t, err)
	assert.Zero(t, report.RecordsRejected)
	require.Len(t, collector.Commits, 1)
	assert.Equal(t, "a.txt", collector.Commits[0].Changes[0].File)
}

func TestRunner_EmptyInput(t *testing.T) {
	t.Parallel()

	store, err := model.NewStore()
	require.NoError(t, err)

	report, collector, runErr := runOnce(t, store, 5*time.Second)
	require.NoError(t, runErr)
	assert.Empty(t, collector.Commits)
	assert.Zero(t, report.CommitsEmitted)
}

func TestRunner_UndeclaredBranchIsFatal(t *testing.T) {
	t.Parallel()

	store := buildStore(t, record("a.txt", "1.1.2.1", "GHOST", 100))

	report, collector, err := runOnce(t, store, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSymbolNotYetCreated)
	assert.Empty(t, collector.Commits)
	assert.Zero(t, report.CommitsEmitted)
}
