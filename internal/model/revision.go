// Package model holds the value types shared across the conversion
// pipeline: per-file revision records coming in, finalized commits going
// out, and the error vocabulary both ends agree on.
package model

import "time"

// RevisionRecord is one file's one historical version, as recorded by a
// per-file revision history system. Records are produced by an external
// parsing stage and are never mutated after construction.
type RevisionRecord struct {
	// File identifies the file this revision belongs to.
	File string

	// Revision is the per-file revision identifier (e.g. "1.42").
	Revision string

	// Author is the committing author as recorded in the history.
	Author string

	// Time is the revision timestamp.
	Time time.Time

	// Log is the revision log message.
	Log string

	// Branch is the symbolic branch this revision lives on.
	// Empty means the main line of development.
	Branch string

	// Predecessor is the revision identifier this revision follows.
	// Empty for the first revision of a file.
	Predecessor string

	// NewSymbols lists branch/tag symbols first defined at this revision.
	NewSymbols []string

	// DefinitionOnly marks a record that only attaches symbols to an
	// already-recorded revision and carries no content change of its
	// own. Such records schedule symbol creation but never join a
	// commit candidate.
	DefinitionOnly bool
}

// Change is one per-file change inside a finalized commit.
type Change struct {
	File     string `json:"file"     yaml:"file"`
	Revision string `json:"revision" yaml:"revision"`
}

// Commit is a finalized, atomic commit produced by the sequencer.
// Sequence numbers are gapless and start at 1 for a fresh run.
type Commit struct {
	Seq        int       `json:"seq"                   yaml:"seq"`
	Author     string    `json:"author,omitempty"      yaml:"author,omitempty"`
	Log        string    `json:"log,omitempty"         yaml:"log,omitempty"`
	Time       time.Time `json:"time"                  yaml:"time"`
	Branch     string    `json:"branch,omitempty"      yaml:"branch,omitempty"`
	Changes    []Change  `json:"changes,omitempty"     yaml:"changes,omitempty"`
	SymbolOnly bool      `json:"symbol_only,omitempty" yaml:"symbol_only,omitempty"`
}
