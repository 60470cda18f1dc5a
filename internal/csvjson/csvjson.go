// Package csvjson converts semicolon separated exports into records keyed by
// the header row.
package csvjson

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"alpaca/pkg/logging"
)

// Delimiter separates fields in ALPACA Operator CSV exports.
const Delimiter = ';'

const bom = "\ufeff"

// Read parses r and returns one record per data row, in row order. Rows
// shorter than the header are padded with empty strings; surplus fields are
// dropped.
func Read(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}

	records := []map[string]string{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+1, err)
		}

		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			logging.Warn("CSV", "Line %d has %d fields, header has %d; dropping the rest", line, len(row), len(header))
		}

		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	logging.Debug("CSV", "Read %d records from %s", len(records), path)
	return records, nil
}
