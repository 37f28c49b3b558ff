package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveOptionsFields(t *testing.T) {
	tests := []struct {
		name string
		opts DeriveOptions
		want Fields
	}{
		{"nothing requested", DeriveOptions{}, Fields{}},
		{"z1pt0 only", DeriveOptions{Z1pt0: DefaultZ1pt0}, Fields{Z1pt0: true}},
		{"z2pt5 only", DeriveOptions{Z2pt5: DefaultZ2pt5}, Fields{Z2pt5: true}},
		{"all columns", DeriveOptions{Z1pt0: DefaultZ1pt0, Z2pt5: DefaultZ2pt5, Vs30Measured: true},
			Fields{Z1pt0: true, Z2pt5: true, Vs30Measured: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Fields())
		})
	}
}

func TestDeriveRecord(t *testing.T) {
	assoc := Association{
		Target:     TargetSite{ID: "7", Lon: 10.123456, Lat: 45.654321},
		Point:      Point{Lon: 10.2, Lat: 45.6, Vs30: 760},
		DistanceKm: 1.2,
	}

	t.Run("keeps the target coordinate", func(t *testing.T) {
		rec := DeriveRecord(assoc, DeriveOptions{})
		assert.Equal(t, 10.123456, rec.Lon)
		assert.Equal(t, 45.654321, rec.Lat)
		assert.Equal(t, 760.0, rec.Vs30)
	})

	t.Run("applies requested depth functions", func(t *testing.T) {
		doubled := func(v float64) float64 { return v * 2 }
		rec := DeriveRecord(assoc, DeriveOptions{Z1pt0: doubled})
		assert.Equal(t, 1520.0, rec.Z1pt0)
		assert.Zero(t, rec.Z2pt5)
	})
}

func TestDefaultDepthRelations(t *testing.T) {
	t.Run("reference values at vs30 760", func(t *testing.T) {
		assert.InDelta(t, 41.4, DefaultZ1pt0(760), 0.5)
		assert.InDelta(t, 0.607, DefaultZ2pt5(760), 0.01)
	})

	t.Run("stiffer soil means shallower basins", func(t *testing.T) {
		assert.Greater(t, DefaultZ1pt0(200), DefaultZ1pt0(800))
		assert.Greater(t, DefaultZ2pt5(200), DefaultZ2pt5(800))
	})
}
