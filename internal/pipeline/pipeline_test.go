package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/site-model-etl/internal/domain"
	"github.com/couchcryptid/site-model-etl/internal/observability"
	"github.com/couchcryptid/site-model-etl/internal/pipeline"
)

// --- mocks ---

type mockPoints struct {
	points []domain.Point
	err    error
}

func (m *mockPoints) LoadPoints(context.Context) ([]domain.Point, error) {
	return m.points, m.err
}

type mockTargets struct {
	targets []domain.TargetSite
	err     error
}

func (m *mockTargets) BuildTargets(context.Context) ([]domain.TargetSite, error) {
	return m.targets, m.err
}

type mockWriter struct {
	fields  domain.Fields
	records []domain.SiteRecord
	err     error
}

func (m *mockWriter) WriteRecords(_ context.Context, fields domain.Fields, records []domain.SiteRecord) error {
	if m.err != nil {
		return m.err
	}
	m.fields = fields
	m.records = records
	return nil
}

type mockSink struct {
	warnings []domain.DiscardWarning
	err      error
}

func (m *mockSink) Publish(_ context.Context, w domain.DiscardWarning) error {
	if m.err != nil {
		return m.err
	}
	m.warnings = append(m.warnings, w)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newPipeline(points []domain.Point, targets []domain.TargetSite, writer *mockWriter,
	opts pipeline.Options, sinks ...pipeline.WarningSink) *pipeline.Pipeline {
	return pipeline.New(
		&mockPoints{points: points},
		&mockTargets{targets: targets},
		writer,
		opts,
		discardLogger(),
		observability.NewMetricsForTesting(),
		sinks...,
	)
}

// --- tests ---

func TestRunExactMatch(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, SourceFile: "vs30.csv", Seq: 0}}
	targets := []domain.TargetSite{{ID: "0", Lon: 10.0, Lat: 45.0}}
	writer := &mockWriter{}

	p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: 5})
	summary, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 0, summary.Discarded)
	require.Len(t, writer.records, 1)
	assert.Equal(t, 300.0, writer.records[0].Vs30)
	assert.Equal(t, 10.0, writer.records[0].Lon)
	assert.Equal(t, 45.0, writer.records[0].Lat)
}

func TestRunDiscardsBeyondCutoff(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, SourceFile: "vs30.csv", Seq: 0}}
	targets := []domain.TargetSite{{ID: "0", Lon: 10.5, Lat: 45.0}} // ~39 km away
	writer := &mockWriter{}
	sink := &mockSink{}

	p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: 5, RunID: "run-1"}, sink)
	summary, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Accepted)
	assert.Equal(t, 1, summary.Discarded)
	assert.Empty(t, writer.records)

	require.Len(t, sink.warnings, 1)
	warn := sink.warnings[0]
	assert.Equal(t, "run-1", warn.RunID)
	assert.Equal(t, 10.5, warn.Lon)
	assert.Equal(t, 45.0, warn.Lat)
	assert.InDelta(t, 39.3, warn.DistanceKm, 0.1)
	assert.Equal(t, 5.0, warn.MaxDistanceKm)
}

func TestRunFirstLoadedFileWinsTies(t *testing.T) {
	points := []domain.Point{
		{Lon: 9.9, Lat: 45.0, Vs30: 111, SourceFile: "first.csv", Seq: 0},
		{Lon: 10.1, Lat: 45.0, Vs30: 222, SourceFile: "second.csv", Seq: 1},
	}
	targets := []domain.TargetSite{{ID: "0", Lon: 10.0, Lat: 45.0}}
	writer := &mockWriter{}

	p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: 50})
	_, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, writer.records, 1)
	assert.Equal(t, 111.0, writer.records[0].Vs30)
}

func TestRunDiscardingIsMonotonic(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, Seq: 0}}
	targets := []domain.TargetSite{
		{ID: "0", Lon: 10.0, Lat: 45.0},  // 0 km
		{ID: "1", Lon: 10.01, Lat: 45.0}, // ~0.8 km
		{ID: "2", Lon: 10.1, Lat: 45.0},  // ~7.9 km
		{ID: "3", Lon: 10.5, Lat: 45.0},  // ~39 km
		{ID: "4", Lon: 11.0, Lat: 45.0},  // ~79 km
	}

	prev := len(targets) + 1
	for _, maxKm := range []float64{100, 40, 10, 5, 0.5} {
		writer := &mockWriter{}
		p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: maxKm})
		summary, err := p.Run(context.Background())

		require.NoError(t, err)
		assert.LessOrEqual(t, summary.Accepted, prev, "max %f km", maxKm)
		prev = summary.Accepted
	}
}

func TestRunPreservesTargetOrder(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, Seq: 0}}
	var targets []domain.TargetSite
	for i := 0; i < 100; i++ {
		targets = append(targets, domain.TargetSite{
			Lon: 10.0 + float64(i)*0.0001,
			Lat: 45.0,
		})
	}
	writer := &mockWriter{}

	// Several workers so ordering would break if results were appended as
	// they complete.
	p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: 50, Workers: 8})
	_, err := p.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, writer.records, len(targets))
	for i, rec := range writer.records {
		assert.Equal(t, targets[i].Lon, rec.Lon, "row %d", i)
	}
}

func TestRunDerivedColumns(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 400, Seq: 0}}
	targets := []domain.TargetSite{{ID: "0", Lon: 10.0, Lat: 45.0}}
	writer := &mockWriter{}

	opts := pipeline.Options{
		MaxDistanceKm: 5,
		Derive: domain.DeriveOptions{
			Z1pt0: func(v float64) float64 { return v + 1 },
		},
	}
	p := newPipeline(points, targets, writer, opts)
	_, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.Fields{Z1pt0: true}, writer.fields)
	require.Len(t, writer.records, 1)
	assert.Equal(t, 401.0, writer.records[0].Z1pt0)
	assert.Zero(t, writer.records[0].Z2pt5)
}

func TestRunFatalErrors(t *testing.T) {
	target := []domain.TargetSite{{ID: "0", Lon: 10.0, Lat: 45.0}}
	point := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, Seq: 0}}

	t.Run("no points", func(t *testing.T) {
		p := newPipeline(nil, target, &mockWriter{}, pipeline.Options{MaxDistanceKm: 5})
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoPoints)
	})

	t.Run("no targets", func(t *testing.T) {
		p := newPipeline(point, nil, &mockWriter{}, pipeline.Options{MaxDistanceKm: 5})
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoTargets)
	})

	t.Run("writer failure aborts", func(t *testing.T) {
		wantErr := &domain.OutputWriteError{Path: "/nope", Err: errors.New("denied")}
		writer := &mockWriter{err: wantErr}
		p := newPipeline(point, target, writer, pipeline.Options{MaxDistanceKm: 5})
		_, err := p.Run(context.Background())

		var owe *domain.OutputWriteError
		require.ErrorAs(t, err, &owe)
		assert.Equal(t, "/nope", owe.Path)
	})
}

func TestRunSinkFailureDoesNotAbort(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, Seq: 0}}
	targets := []domain.TargetSite{
		{ID: "0", Lon: 10.5, Lat: 45.0}, // discarded
		{ID: "1", Lon: 10.0, Lat: 45.0}, // accepted
	}
	writer := &mockWriter{}
	sink := &mockSink{err: errors.New("broker down")}

	p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: 5}, sink)
	summary, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Discarded)
}

func TestCheckReadiness(t *testing.T) {
	points := []domain.Point{{Lon: 10.0, Lat: 45.0, Vs30: 300, Seq: 0}}
	targets := []domain.TargetSite{{ID: "0", Lon: 10.0, Lat: 45.0}}
	writer := &mockWriter{}

	p := newPipeline(points, targets, writer, pipeline.Options{MaxDistanceKm: 5})

	assert.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NoError(t, p.CheckReadiness(context.Background()))
	progress := p.Progress()
	assert.Equal(t, int64(1), progress.Accepted)
}
