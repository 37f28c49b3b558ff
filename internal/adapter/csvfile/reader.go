// Package csvfile reads ground-condition and coordinate tables and writes the
// prepared site-model table. All files are headerless CSV; rows that do not
// parse abort the run with a [domain.MalformedRowError] naming file and line.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/couchcryptid/site-model-etl/internal/domain"
)

// PointReader loads one or more ground-condition files in order, merging them
// into a single point collection with per-point provenance and a global load
// order. It implements pipeline.PointSource.
type PointReader struct {
	paths  []string
	logger *slog.Logger
}

// NewPointReader creates a reader over the given files. File order matters:
// it defines the tie-break order for equidistant matches.
func NewPointReader(paths []string, logger *slog.Logger) *PointReader {
	return &PointReader{paths: paths, logger: logger}
}

// LoadPoints reads every configured file and concatenates their rows. No
// deduplication and no sorting: rows keep file-then-row order.
func (r *PointReader) LoadPoints(ctx context.Context) ([]domain.Point, error) {
	var points []domain.Point
	for _, path := range r.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.loadFile(path, &points)
		if err != nil {
			return nil, err
		}
		r.logger.Info("ground-condition file loaded", "file", path, "points", n)
	}
	return points, nil
}

func (r *PointReader) loadFile(path string, points *[]domain.Point) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ground-condition file: %w", err)
	}
	defer f.Close()

	cr := newStrictReader(f, 3)
	n := 0
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, &domain.MalformedRowError{File: path, Line: line, Err: err}
		}

		lon, lat, err := parseCoordinate(fields[0], fields[1])
		if err != nil {
			return n, &domain.MalformedRowError{File: path, Line: line, Err: err}
		}
		vs30, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return n, &domain.MalformedRowError{File: path, Line: line, Err: fmt.Errorf("value: %w", err)}
		}

		*points = append(*points, domain.Point{
			Lon:        lon,
			Lat:        lat,
			Vs30:       vs30,
			SourceFile: path,
			Seq:        len(*points),
		})
		n++
	}
}

// newStrictReader builds a CSV reader that insists on exactly fields columns
// per row.
func newStrictReader(r io.Reader, fields int) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true
	return cr
}

func parseCoordinate(lonField, latField string) (float64, float64, error) {
	lon, err := strconv.ParseFloat(lonField, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(latField, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	return lon, lat, nil
}
