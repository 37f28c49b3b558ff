package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/site-model-etl/internal/domain"
)

func TestSerializeWarning(t *testing.T) {
	discardedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	warn := domain.DiscardWarning{
		RunID:         "run-42",
		Lon:           10.5,
		Lat:           45.25,
		SiteID:        "station-7",
		DistanceKm:    11.8,
		MaxDistanceKm: 5.0,
		NearestFile:   "vs30_alps.csv",
		DiscardedAt:   discardedAt,
	}

	msg, err := serializeWarning(warn)

	require.NoError(t, err)
	assert.Equal(t, []byte("run-42"), msg.Key)

	var got domain.DiscardWarning
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, warn, got)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "site_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("station-7"), msg.Headers[0].Value)
	assert.Equal(t, "discarded_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-14T09:26:53Z"), msg.Headers[1].Value)
}

func TestSerializeWarningOmitsEmptyIdentifiers(t *testing.T) {
	msg, err := serializeWarning(domain.DiscardWarning{Lon: 1, Lat: 2, DistanceKm: 9, MaxDistanceKm: 5})

	require.NoError(t, err)
	assert.Empty(t, msg.Key)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &fields))
	assert.NotContains(t, fields, "run_id")
	assert.NotContains(t, fields, "site_id")
}
