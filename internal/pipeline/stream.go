package pipeline

import (
	"context"

	"github.com/retroforge/retroforge/internal/model"
)

// Default configuration values for RecordStreamer.
const (
	// defaultBatchSize is the default number of records per batch.
	defaultBatchSize = 256
	// defaultLookahead is the default number of batches to buffer ahead.
	defaultLookahead = 2
)

// RecordBatch represents a batch of revision records for processing.
type RecordBatch struct {
	// Records in this batch, in global processing order.
	Records []*model.RevisionRecord

	// StartIndex is the index of the first record in the full sequence.
	StartIndex int

	// BatchID identifies this batch for ordering.
	BatchID int
}

// RecordStreamer iterates revision records and groups them into batches.
// Batches preserve the global record order; the single consumer sees
// records exactly as the store ordered them.
type RecordStreamer struct {
	// BatchSize is the number of records per batch.
	BatchSize int

	// Lookahead is the number of batches to buffer ahead.
	Lookahead int
}

// NewRecordStreamer creates a record streamer with default settings.
func NewRecordStreamer() *RecordStreamer {
	return &RecordStreamer{
		BatchSize: defaultBatchSize,
		Lookahead: defaultLookahead,
	}
}

// Stream takes ordered records and streams them as batches.
// The output channel is closed when all records have been sent.
func (s *RecordStreamer) Stream(ctx context.Context, records []*model.RevisionRecord) <-chan RecordBatch {
	out := make(chan RecordBatch, s.Lookahead)

	go func() {
		defer close(out)

		batchID := 0

		for i := 0; i < len(records); i += s.BatchSize {
			end := min(i+s.BatchSize, len(records))

			batch := RecordBatch{
				Records:    records[i:end],
				StartIndex: i,
				BatchID:    batchID,
			}

			select {
			case out <- batch:
				batchID++
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
