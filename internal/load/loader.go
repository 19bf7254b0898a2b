// Package load reads the externally-parsed revision stream: newline-
// delimited JSON records, one per file revision. Records are validated
// against an embedded schema before admission; invalid lines are
// rejected and reported, not fatal.
package load

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/retroforge/retroforge/internal/model"
)

// maxLineBytes bounds a single record line. Log messages dominate line
// size; 1 MiB comfortably covers anything a revision history produces.
const maxLineBytes = 1 << 20

// Rejection describes one input line that failed validation.
type Rejection struct {
	Line   int
	Reason string
}

// recordJSON is the wire shape of one revision record.
type recordJSON struct {
	File        string   `json:"file"`
	Revision    string   `json:"revision"`
	Author      string   `json:"author"`
	Time        string   `json:"time"`
	Log         string   `json:"log"`
	Branch      string   `json:"branch"`
	Predecessor    string   `json:"predecessor"`
	NewSymbols     []string `json:"new_symbols"`
	DefinitionOnly bool     `json:"definition_only"`
}

// ReadRecords parses a revision stream into a store. Schema-invalid
// lines are skipped and returned as rejections; an I/O or schema
// compilation failure is an error.
func ReadRecords(r io.Reader) (*model.Store, []Rejection, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, nil, fmt.Errorf("compile record schema: %w", err)
	}

	store, err := model.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	var rejections []Rejection

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, reason := parseLine(schema, line)
		if reason != "" {
			rejections = append(rejections, Rejection{Line: lineNo, Reason: reason})

			continue
		}

		store.Add(rec)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return store, rejections, fmt.Errorf("read revision stream: %w", scanErr)
	}

	return store, rejections, nil
}

// parseLine validates and decodes one record line. A non-empty reason
// means the line was rejected.
func parseLine(schema *gojsonschema.Schema, line []byte) (*model.RevisionRecord, string) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return nil, fmt.Sprintf("invalid JSON: %v", err)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}

		return nil, strings.Join(reasons, "; ")
	}

	var raw recordJSON

	err = json.Unmarshal(line, &raw)
	if err != nil {
		return nil, fmt.Sprintf("decode record: %v", err)
	}

	when, err := time.Parse(time.RFC3339, raw.Time)
	if err != nil {
		return nil, fmt.Sprintf("parse timestamp: %v", err)
	}

	return &model.RevisionRecord{
		File:           raw.File,
		Revision:       raw.Revision,
		Author:         raw.Author,
		Time:           when,
		Log:            raw.Log,
		Branch:         raw.Branch,
		Predecessor:    raw.Predecessor,
		NewSymbols:     raw.NewSymbols,
		DefinitionOnly: raw.DefinitionOnly,
	}, ""
}
