package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/internet-atlas/backend/internal/ingest"
	"github.com/vanshika/internet-atlas/backend/internal/service"
)

var csvHeader = []string{
	ingest.ColUserID,
	ingest.ColDomain,
	ingest.ColStartTime,
	ingest.ColEndTime,
	ingest.ColActiveSeconds,
	ingest.ColRowCount,
}

// WriteCSV serialises rows with the header the ingest reader expects.
func WriteCSV(w io.Writer, rows []service.SessionInput) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.UserID, row.Domain, row.StartTime, row.EndTime, row.ActiveSeconds, row.RowCount}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", row.Line, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDataset writes rows to path, creating parent directories.
func WriteDataset(rows []service.SessionInput, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteCSV(file, rows); err != nil {
		return fmt.Errorf("encode csv for %s: %w", path, err)
	}
	return nil
}
