// Package ingest reads raw browsing-session rows from CSV and XLSX exports.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vanshika/internet-atlas/backend/internal/service"
)

// Column names expected in the header row.
const (
	ColUserID        = "panelist_id"
	ColDomain        = "full_domain"
	ColStartTime     = "start_time"
	ColEndTime       = "end_time"
	ColActiveSeconds = "total_active_seconds"
	ColRowCount      = "row_count"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyInput is returned when the source has no header row.
	ErrEmptyInput = errors.New("input has no header row")
)

// requiredColumns drive cleaning. ColRowCount is optional since it is only
// carried through.
var requiredColumns = []string{ColUserID, ColDomain, ColStartTime, ColEndTime, ColActiveSeconds}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return idx, nil
}

func (c columnIndex) value(record []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columnIndex) session(line int, record []string) service.SessionInput {
	return service.SessionInput{
		Line:          line,
		UserID:        c.value(record, ColUserID),
		Domain:        c.value(record, ColDomain),
		StartTime:     c.value(record, ColStartTime),
		EndTime:       c.value(record, ColEndTime),
		ActiveSeconds: c.value(record, ColActiveSeconds),
		RowCount:      c.value(record, ColRowCount),
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadCSV parses a header-led CSV stream. Rows may have fewer fields than the
// header; missing trailing cells read as empty. Stray quotes are kept as
// literal text so one malformed cell cannot abort the read.
func ReadCSV(r io.Reader) ([]service.SessionInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var inputs []service.SessionInput
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		inputs = append(inputs, idx.session(line, record))
	}
	return inputs, nil
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]service.SessionInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	idx, err := indexHeader(rows[0])
	if err != nil {
		return nil, err
	}
	inputs := make([]service.SessionInput, 0, len(rows)-1)
	for i, record := range rows[1:] {
		if isBlank(record) {
			continue
		}
		inputs = append(inputs, idx.session(i+2, record))
	}
	return inputs, nil
}

// ReadFile reads .xlsx workbooks with ReadXLSX and anything else as CSV.
func ReadFile(path string) ([]service.SessionInput, error) {
	read := ReadCSV
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		read = ReadXLSX
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	inputs, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return inputs, nil
}
