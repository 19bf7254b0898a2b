// Package emit provides commit emitters: the output boundary that
// materializes the finalized commit stream.
package emit

import (
	"context"

	"github.com/retroforge/retroforge/internal/model"
)

// Discard drops every commit. Useful for dry runs.
type Discard struct{}

// Emit implements the emitter contract.
func (Discard) Emit(_ context.Context, _ *model.Commit) error { return nil }

// Collector retains every emitted commit in order. Used for audit and in
// tests.
type Collector struct {
	Commits []*model.Commit
}

// Emit implements the emitter contract.
func (c *Collector) Emit(_ context.Context, commit *model.Commit) error {
	c.Commits = append(c.Commits, commit)

	return nil
}

// Tee forwards each commit to every wrapped emitter, in order, stopping
// at the first failure.
type Tee []interface {
	Emit(ctx context.Context, commit *model.Commit) error
}

// Emit implements the emitter contract.
func (t Tee) Emit(ctx context.Context, commit *model.Commit) error {
	for _, e := range t {
		err := e.Emit(ctx, commit)
		if err != nil {
			return err
		}
	}

	return nil
}
