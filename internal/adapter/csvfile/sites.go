package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/couchcryptid/site-model-etl/internal/domain"
)

// SiteReader loads explicit target coordinates from a headerless CSV of
// `lon,lat` or `lon,lat,id` rows. Rows without an id column are numbered by
// position. It implements pipeline.SiteReader.
type SiteReader struct {
	path string
}

// NewSiteReader creates a reader over an explicit-sites file.
func NewSiteReader(path string) *SiteReader {
	return &SiteReader{path: path}
}

// ReadSites returns the sites in file order.
func (r *SiteReader) ReadSites(ctx context.Context) ([]domain.TargetSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var sites []domain.TargetSite
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return sites, nil
		}
		if err != nil {
			return nil, &domain.MalformedRowError{File: r.path, Line: line, Err: err}
		}
		if len(fields) != 2 && len(fields) != 3 {
			return nil, &domain.MalformedRowError{
				File: r.path, Line: line,
				Err: fmt.Errorf("want 2 or 3 fields, got %d", len(fields)),
			}
		}

		lon, lat, err := parseCoordinate(fields[0], fields[1])
		if err != nil {
			return nil, &domain.MalformedRowError{File: r.path, Line: line, Err: err}
		}

		id := strconv.Itoa(len(sites))
		if len(fields) == 3 {
			id = fields[2]
		}
		sites = append(sites, domain.TargetSite{ID: id, Lon: lon, Lat: lat})
	}
}

// ExposureReader loads asset locations from a headerless CSV of `lon,lat`
// rows, standing in for an exposure-model reader. It implements
// pipeline.ExposureReader.
type ExposureReader struct {
	path string
}

// NewExposureReader creates a reader over an asset-locations file.
func NewExposureReader(path string) *ExposureReader {
	return &ExposureReader{path: path}
}

// ReadLocations returns the raw asset coordinates in file order, duplicates
// included; deduplication happens when targets are built.
func (r *ExposureReader) ReadLocations(ctx context.Context) ([]domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open exposure file: %w", err)
	}
	defer f.Close()

	cr := newStrictReader(f, 2)

	var coords []domain.Coordinate
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return coords, nil
		}
		if err != nil {
			return nil, &domain.MalformedRowError{File: r.path, Line: line, Err: err}
		}

		lon, lat, err := parseCoordinate(fields[0], fields[1])
		if err != nil {
			return nil, &domain.MalformedRowError{File: r.path, Line: line, Err: err}
		}
		coords = append(coords, domain.Coordinate{Lon: lon, Lat: lat})
	}
}
