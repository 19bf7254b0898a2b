package aggregate

import (
	"errors"
	"time"

	"github.com/retroforge/retroforge/internal/model"
)

// ErrCandidateSealed indicates an attempt to add a revision to a
// candidate that was already sealed.
var ErrCandidateSealed = errors.New("candidate is sealed")

// Candidate is a provisional grouping of revision records believed to
// originate from one author action. It is mutable until sealed, then
// consumed by the sequencer.
//
// Every Candidate owns an independently allocated member container.
// Members are never shared with, or retained from, any other candidate:
// construction happens only through NewCandidate and NewSymbolCandidate,
// both of which start from a fresh slice.
type Candidate struct {
	branch  string
	author  string
	log     string
	latest  time.Time
	members []*model.RevisionRecord

	symbolOnly bool
	symbol     string
	symbolRev  string

	sealed bool
}

// NewCandidate opens a candidate seeded with its first revision record.
// The member container is freshly allocated here on every call.
func NewCandidate(rec *model.RevisionRecord) *Candidate {
	return &Candidate{
		branch:  rec.Branch,
		author:  rec.Author,
		log:     rec.Log,
		latest:  rec.Time,
		members: []*model.RevisionRecord{rec},
	}
}

// NewSymbolCandidate creates a sealed, symbol-only candidate that
// establishes the named branch/tag in the target system. It carries no
// revision records; revision identifies the record that defined the
// symbol, and at is the timestamp it is ordered by.
func NewSymbolCandidate(symbol, revision string, at time.Time) *Candidate {
	return &Candidate{
		branch:     symbol,
		latest:     at,
		members:    make([]*model.RevisionRecord, 0),
		symbolOnly: true,
		symbol:     symbol,
		symbolRev:  revision,
		sealed:     true,
	}
}

// Accepts reports whether rec may join this candidate: the candidate is
// still open, the branch, author and log message match, and the record's
// timestamp falls within window of the candidate's latest member.
func (c *Candidate) Accepts(rec *model.RevisionRecord, window time.Duration) bool {
	if c.sealed || c.symbolOnly {
		return false
	}

	if rec.Branch != c.branch || rec.Author != c.author || rec.Log != c.log {
		return false
	}

	return !rec.Time.After(c.latest.Add(window))
}

// Add appends a record to an open candidate.
func (c *Candidate) Add(rec *model.RevisionRecord) error {
	if c.sealed {
		return ErrCandidateSealed
	}

	c.members = append(c.members, rec)
	if rec.Time.After(c.latest) {
		c.latest = rec.Time
	}

	return nil
}

// Seal closes the candidate. A candidate that reaches sealing with zero
// members and no symbol-only flag indicates the aggregator's bookkeeping
// diverged from the symbol table; that is unrecoverable.
func (c *Candidate) Seal() error {
	if c.sealed {
		return nil
	}

	if len(c.members) == 0 && !c.symbolOnly {
		return &model.ConsistencyError{
			Kind:    model.ErrEmptyNonSymbolCommit,
			Branch:  c.branch,
			Members: 0,
		}
	}

	c.sealed = true

	return nil
}

// Branch returns the target branch (the symbol name for symbol-only
// candidates, empty for the main line).
func (c *Candidate) Branch() string { return c.branch }

// Author returns the candidate's author.
func (c *Candidate) Author() string { return c.author }

// Log returns the candidate's log message.
func (c *Candidate) Log() string { return c.log }

// Latest returns the representative timestamp: the timestamp of the
// latest constituent, or the defining record's for symbol-only
// candidates.
func (c *Candidate) Latest() time.Time { return c.latest }

// Members returns the constituent records in the order they were added.
func (c *Candidate) Members() []*model.RevisionRecord { return c.members }

// SymbolOnly reports whether this candidate only establishes a symbol.
func (c *Candidate) SymbolOnly() bool { return c.symbolOnly }

// Symbol returns the established symbol name for symbol-only candidates.
func (c *Candidate) Symbol() string { return c.symbol }

// SymbolRevision returns the revision that defined the symbol.
func (c *Candidate) SymbolRevision() string { return c.symbolRev }

// Sealed reports whether the candidate accepts no further records.
func (c *Candidate) Sealed() bool { return c.sealed }
