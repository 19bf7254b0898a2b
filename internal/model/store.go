package model

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultMetadataCacheSize bounds the (author, log) interning cache.
// Conversions of large histories see the same metadata pair once per
// constituent file revision, so even a modest cache removes most of the
// duplicate string storage.
const defaultMetadataCacheSize = 4096

// metadata is an interned (author, log) pair shared by all revisions
// that originate from the same author action.
type metadata struct {
	author string
	log    string
}

// Store owns the parsed revision records for one conversion run. It is
// read-only during aggregation and may be shared across concurrent runs;
// each run must still own its own aggregator and symbol table.
type Store struct {
	records []*RevisionRecord
	meta    *lru.Cache[string, *metadata]
	sorted  bool
}

// NewStore creates an empty revision store.
func NewStore() (*Store, error) {
	cache, err := lru.New[string, *metadata](defaultMetadataCacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{meta: cache}, nil
}

// Add admits a record to the store. The record's author and log strings
// are replaced with interned equivalents so that identical metadata pairs
// share storage across records.
func (s *Store) Add(rec *RevisionRecord) {
	m := s.intern(rec.Author, rec.Log)
	rec.Author = m.author
	rec.Log = m.log

	s.records = append(s.records, rec)
	s.sorted = false
}

// Len reports the number of admitted records.
func (s *Store) Len() int { return len(s.records) }

// Ordered returns the records in the global processing order: timestamp,
// then branch, then file, then revision identifier. The order is total
// and deterministic so that independent runs over the same input visit
// records identically.
func (s *Store) Ordered() []*RevisionRecord {
	if !s.sorted {
		sort.SliceStable(s.records, func(i, j int) bool {
			a, b := s.records[i], s.records[j]
			if !a.Time.Equal(b.Time) {
				return a.Time.Before(b.Time)
			}

			if a.Branch != b.Branch {
				return a.Branch < b.Branch
			}

			if a.File != b.File {
				return a.File < b.File
			}

			return a.Revision < b.Revision
		})
		s.sorted = true
	}

	return s.records
}

// intern returns the shared metadata instance for an (author, log) pair.
func (s *Store) intern(author, log string) *metadata {
	key := author + "\x00" + log

	if m, ok := s.meta.Get(key); ok {
		return m
	}

	m := &metadata{author: author, log: log}
	s.meta.Add(key, m)

	return m
}
