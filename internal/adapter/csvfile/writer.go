package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/site-model-etl/internal/domain"
)

// TableWriter serializes the final site records to a CSV table. Writing is
// all-or-nothing: the table is built in a temporary file next to the
// destination and renamed into place, so a failed run never leaves a partial
// file observable. It implements pipeline.RecordWriter.
type TableWriter struct {
	path   string
	logger *slog.Logger
}

// NewTableWriter creates a writer targeting the given path.
func NewTableWriter(path string, logger *slog.Logger) *TableWriter {
	return &TableWriter{path: path, logger: logger}
}

// WriteRecords writes the header and one row per record, in the order given.
// Column order is fixed: lon, lat, vs30, then whichever of z1pt0, z2pt5,
// vs30measured the run requested. Any failure surfaces as a
// [domain.OutputWriteError] with the temporary file removed.
func (w *TableWriter) WriteRecords(ctx context.Context, fields domain.Fields, records []domain.SiteRecord) error {
	if err := ctx.Err(); err != nil {
		return &domain.OutputWriteError{Path: w.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return &domain.OutputWriteError{Path: w.path, Err: err}
	}

	if err := w.writeTo(tmp, fields, records); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &domain.OutputWriteError{Path: w.path, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &domain.OutputWriteError{Path: w.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &domain.OutputWriteError{Path: w.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return &domain.OutputWriteError{Path: w.path, Err: err}
	}

	w.logger.Info("site model written", "path", w.path, "rows", len(records))
	return nil
}

func (w *TableWriter) writeTo(f *os.File, fields domain.Fields, records []domain.SiteRecord) error {
	cw := csv.NewWriter(f)

	if err := cw.Write(header(fields)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := cw.Write(row(fields, records[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func header(fields domain.Fields) []string {
	cols := []string{"lon", "lat", "vs30"}
	if fields.Z1pt0 {
		cols = append(cols, "z1pt0")
	}
	if fields.Z2pt5 {
		cols = append(cols, "z2pt5")
	}
	if fields.Vs30Measured {
		cols = append(cols, "vs30measured")
	}
	return cols
}

func row(fields domain.Fields, rec domain.SiteRecord) []string {
	cols := []string{
		formatFloat(rec.Lon),
		formatFloat(rec.Lat),
		formatFloat(rec.Vs30),
	}
	if fields.Z1pt0 {
		cols = append(cols, formatFloat(rec.Z1pt0))
	}
	if fields.Z2pt5 {
		cols = append(cols, formatFloat(rec.Z2pt5))
	}
	if fields.Vs30Measured {
		if rec.Vs30Measured {
			cols = append(cols, "1")
		} else {
			cols = append(cols, "0")
		}
	}
	return cols
}

// formatFloat uses the shortest representation that parses back to the exact
// same float64, so target coordinates round-trip bit-exact.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
