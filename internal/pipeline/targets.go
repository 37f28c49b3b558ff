package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/site-model-etl/internal/domain"
)

// SiteReader provides explicit target coordinates with identifiers.
type SiteReader interface {
	ReadSites(ctx context.Context) ([]domain.TargetSite, error)
}

// ExposureReader provides raw asset locations, duplicates included.
type ExposureReader interface {
	ReadLocations(ctx context.Context) ([]domain.Coordinate, error)
}

// TargetBuilder implements TargetSource over the two site-source modes.
// A positive grid spacing selects grid mode: a lattice over the extent of the
// asset locations (or the explicit sites when no assets are configured).
// A zero spacing selects deduplicated mode: exact unique coordinates from
// sites and assets combined. Either reader may be nil.
type TargetBuilder struct {
	sites         SiteReader
	exposure      ExposureReader
	gridSpacingKm float64
	logger        *slog.Logger
}

// NewTargetBuilder wires the configured coordinate sources.
func NewTargetBuilder(sites SiteReader, exposure ExposureReader, gridSpacingKm float64, logger *slog.Logger) *TargetBuilder {
	return &TargetBuilder{
		sites:         sites,
		exposure:      exposure,
		gridSpacingKm: gridSpacingKm,
		logger:        logger,
	}
}

// BuildTargets produces the target set for the active mode.
func (b *TargetBuilder) BuildTargets(ctx context.Context) ([]domain.TargetSite, error) {
	var (
		sites  []domain.TargetSite
		assets []domain.Coordinate
		err    error
	)
	if b.sites != nil {
		if sites, err = b.sites.ReadSites(ctx); err != nil {
			return nil, err
		}
	}
	if b.exposure != nil {
		if assets, err = b.exposure.ReadLocations(ctx); err != nil {
			return nil, err
		}
	}

	if b.gridSpacingKm > 0 {
		coords := assets
		if len(coords) == 0 {
			coords = make([]domain.Coordinate, len(sites))
			for i, s := range sites {
				coords[i] = domain.Coordinate{Lon: s.Lon, Lat: s.Lat}
			}
		}
		targets := domain.BuildGrid(coords, b.gridSpacingKm)
		b.logger.Info("grid synthesized",
			"spacing_km", b.gridSpacingKm,
			"input_coords", len(coords),
			"cells", len(targets),
		)
		return targets, nil
	}

	targets := domain.MergeTargets(sites, assets)
	b.logger.Info("locations deduplicated",
		"sites", len(sites),
		"assets", len(assets),
		"targets", len(targets),
	)
	return targets, nil
}
