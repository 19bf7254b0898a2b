package emit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/retroforge/retroforge/internal/model"
)

// Journal writes the commit stream as newline-delimited JSON, optionally
// LZ4-compressed. The journal is an audit artifact: it records exactly
// what was handed to the target system, in sequence order.
type Journal struct {
	enc    *json.Encoder
	lz     *lz4.Writer
	closer io.Closer
}

// NewJournal creates a journal writing to w. When compress is true the
// stream is wrapped in an LZ4 frame. If w is an io.Closer it is closed
// by Close.
func NewJournal(w io.Writer, compress bool) *Journal {
	j := &Journal{}

	if c, ok := w.(io.Closer); ok {
		j.closer = c
	}

	if compress {
		j.lz = lz4.NewWriter(w)
		j.enc = json.NewEncoder(j.lz)
	} else {
		j.enc = json.NewEncoder(w)
	}

	return j
}

// Emit implements the emitter contract.
func (j *Journal) Emit(_ context.Context, commit *model.Commit) error {
	err := j.enc.Encode(commit)
	if err != nil {
		return fmt.Errorf("journal commit %d: %w", commit.Seq, err)
	}

	return nil
}

// Close flushes the compression frame, if any, and closes the underlying
// writer when it is closable.
func (j *Journal) Close() error {
	if j.lz != nil {
		err := j.lz.Close()
		if err != nil {
			return fmt.Errorf("close journal compressor: %w", err)
		}
	}

	if j.closer != nil {
		return j.closer.Close()
	}

	return nil
}

// ReadJournal reads back a journal written by [Journal], in order.
func ReadJournal(r io.Reader, compressed bool) ([]*model.Commit, error) {
	if compressed {
		r = lz4.NewReader(r)
	}

	dec := json.NewDecoder(r)

	var commits []*model.Commit

	for {
		var commit model.Commit

		err := dec.Decode(&commit)
		if errors.Is(err, io.EOF) {
			return commits, nil
		}

		if err != nil {
			return commits, fmt.Errorf("read journal: %w", err)
		}

		commits = append(commits, &commit)
	}
}
