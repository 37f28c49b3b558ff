package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name                   string
		lon1, lat1, lon2, lat2 float64
		want                   float64
		delta                  float64
	}{
		{"same point", 10.0, 45.0, 10.0, 45.0, 0, 0},
		{"one degree of latitude", 0, 0, 0, 1, 111.195, 0.01},
		{"one degree of longitude at equator", 0, 0, 1, 0, 111.195, 0.01},
		{"half degree of longitude at 45N", 10.0, 45.0, 10.5, 45.0, 39.31, 0.05},
		{"across the antimeridian", 179.5, 0, -179.5, 0, 111.195, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lon1, tt.lat1, tt.lon2, tt.lat2)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestHaversineKmSymmetric(t *testing.T) {
	d1 := HaversineKm(9.19, 45.46, 13.36, 38.11) // Milan -> Palermo
	d2 := HaversineKm(13.36, 38.11, 9.19, 45.46)
	assert.Equal(t, d1, d2)
	assert.InDelta(t, 886, d1, 5)
}
