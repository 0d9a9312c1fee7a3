package schema

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Table is the raw parsed CSV: one header row plus data rows.
// Ragged rows are preserved as-is; the normalizer deals with them.
type Table struct {
	Header []string
	Rows   [][]string
}

// MalformedInputError indicates the CSV could not be parsed at all.
// It aborts the whole analysis.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// ParseCSV decodes and parses raw CSV bytes. Input that is not valid UTF-8
// is decoded as Latin-1, which GA exports occasionally use.
func ParseCSV(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedInputError{Reason: "input is empty"}
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, &MalformedInputError{Reason: "input is neither valid UTF-8 nor Latin-1"}
		}
		data = decoded
	}

	// Strip a UTF-8 BOM; GA exports downloaded on Windows carry one.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &MalformedInputError{Reason: "no header row"}
	}
	if err != nil {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("cannot read header row: %v", err)}
	}
	if isBlankRow(header) {
		return nil, &MalformedInputError{Reason: "header row is blank"}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("cannot parse CSV: %v", err)}
		}
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
