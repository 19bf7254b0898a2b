package emit_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroforge/retroforge/internal/emit"
	"github.com/retroforge/retroforge/internal/model"
)

func sampleCommits() []*model.Commit {
	return []*model.Commit{
		{
			Seq:    1,
			Author: "alice",
			Log:    "fix typo",
			Time:   time.Unix(100, 0).UTC(),
			Changes: []model.Change{
				{File: "a.txt", Revision: "1.1"},
				{File: "b.txt", Revision: "1.1"},
			},
		},
		{
			Seq:        2,
			Time:       time.Unix(150, 0).UTC(),
			Branch:     "BRANCH-1",
			SymbolOnly: true,
		},
	}
}

func TestJournal_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer

		journal := emit.NewJournal(&buf, compress)
		for _, commit := range sampleCommits() {
			require.NoError(t, journal.Emit(context.Background(), commit))
		}

		require.NoError(t, journal.Close())

		got, err := emit.ReadJournal(&buf, compress)
		require.NoError(t, err)
		assert.Equal(t, sampleCommits(), got, "compress=%v", compress)
	}
}

func TestReadJournal_Garbage(t *testing.T) {
	t.Parallel()

	_, err := emit.ReadJournal(bytes.NewBufferString("not json\n"), false)
	assert.Error(t, err)
}

func TestCollector_RetainsOrder(t *testing.T) {
	t.Parallel()

	collector := &emit.Collector{}
	for _, commit := range sampleCommits() {
		require.NoError(t, collector.Emit(context.Background(), commit))
	}

	require.Len(t, collector.Commits, 2)
	assert.Equal(t, 1, collector.Commits[0].Seq)
	assert.Equal(t, 2, collector.Commits[1].Seq)
}

func TestTee_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("sink closed")
	collector := &emit.Collector{}

	tee := emit.Tee{collector, failSink{err: wantErr}, &emit.Collector{}}

	err := tee.Emit(context.Background(), sampleCommits()[0])
	assert.ErrorIs(t, err, wantErr)
	assert.Len(t, collector.Commits, 1)
}

func TestDiscard_AcceptsEverything(t *testing.T) {
	t.Parallel()

	assert.NoError(t, emit.Discard{}.Emit(context.Background(), sampleCommits()[0]))
}

type failSink struct {
	err error
}

func (f failSink) Emit(_ context.Context, _ *model.Commit) error { return f.err }
