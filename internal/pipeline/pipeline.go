// Package pipeline orchestrates a site-model preparation run: load points,
// build targets, associate, filter, derive, write.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/site-model-etl/internal/domain"
	"github.com/couchcryptid/site-model-etl/internal/observability"
)

// PointSource loads the merged ground-condition point collection.
type PointSource interface {
	LoadPoints(ctx context.Context) ([]domain.Point, error)
}

// TargetSource produces the target sites to parametrize.
type TargetSource interface {
	BuildTargets(ctx context.Context) ([]domain.TargetSite, error)
}

// RecordWriter persists the final site records.
type RecordWriter interface {
	WriteRecords(ctx context.Context, fields domain.Fields, records []domain.SiteRecord) error
}

// WarningSink receives one entry per discarded target site. Sink failures are
// logged but never fail the run: the discard itself is already recorded in
// the log and the metrics.
type WarningSink interface {
	Publish(ctx context.Context, w domain.DiscardWarning) error
}

// Summary reports the outcome of a completed run.
type Summary struct {
	PointsLoaded int
	TargetsBuilt int
	Accepted     int
	Discarded    int
	Elapsed      time.Duration
}

// Pipeline runs the preparation stages in order. Associate and derive are
// sharded across workers; everything each worker touches besides its own
// result slot is read-only, so no locking is needed.
type Pipeline struct {
	points   PointSource
	targets  TargetSource
	writer   RecordWriter
	warnings []WarningSink

	derive        domain.DeriveOptions
	maxDistanceKm float64
	workers       int
	runID         string

	logger  *slog.Logger
	metrics *observability.Metrics

	indexed   atomic.Bool
	accepted  atomic.Int64
	discarded atomic.Int64
}

// Options carries the per-run knobs for New.
type Options struct {
	Derive        domain.DeriveOptions
	MaxDistanceKm float64
	Workers       int
	RunID         string
}

// New creates a Pipeline over the given stages. Warning sinks are optional;
// pass none to keep discards log-only.
func New(points PointSource, targets TargetSource, writer RecordWriter, opts Options,
	logger *slog.Logger, metrics *observability.Metrics, warnings ...WarningSink) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		points:        points,
		targets:       targets,
		writer:        writer,
		warnings:      warnings,
		derive:        opts.Derive,
		maxDistanceKm: opts.MaxDistanceKm,
		workers:       workers,
		runID:         opts.RunID,
		logger:        logger,
		metrics:       metrics,
	}
}

// CheckReadiness returns nil once the spatial index is built and association
// is underway.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.indexed.Load() {
		return errors.New("spatial index not built yet")
	}
	return nil
}

// Progress is a point-in-time snapshot for the status endpoint.
type Progress struct {
	Accepted  int64 `json:"accepted"`
	Discarded int64 `json:"discarded"`
}

// Progress reports how many targets have been resolved so far.
func (p *Pipeline) Progress() Progress {
	return Progress{
		Accepted:  p.accepted.Load(),
		Discarded: p.discarded.Load(),
	}
}

// Run executes one full preparation pass. It returns a Summary on success;
// on failure no output file has been produced.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	points, err := p.loadStage(ctx)
	if err != nil {
		return Summary{}, err
	}

	targets, err := p.targetStage(ctx)
	if err != nil {
		return Summary{}, err
	}

	index := domain.NewPointIndex(points)
	p.indexed.Store(true)

	results, err := p.associateStage(ctx, index, targets)
	if err != nil {
		return Summary{}, err
	}

	records := p.resolveStage(ctx, targets, results)

	writeStart := time.Now()
	if err := p.writer.WriteRecords(ctx, p.derive.Fields(), records); err != nil {
		return Summary{}, err
	}
	p.metrics.RecordsWritten.Add(float64(len(records)))
	p.metrics.StageDuration.WithLabelValues("write").Observe(time.Since(writeStart).Seconds())

	s := Summary{
		PointsLoaded: len(points),
		TargetsBuilt: len(targets),
		Accepted:     len(records),
		Discarded:    len(targets) - len(records),
		Elapsed:      time.Since(start),
	}
	p.logger.Info("site model prepared",
		"run_id", p.runID,
		"points", s.PointsLoaded,
		"targets", s.TargetsBuilt,
		"accepted", s.Accepted,
		"discarded", s.Discarded,
		"elapsed", s.Elapsed,
	)
	return s, nil
}

func (p *Pipeline) loadStage(ctx context.Context) ([]domain.Point, error) {
	start := time.Now()
	points, err := p.points.LoadPoints(ctx)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, domain.ErrNoPoints
	}
	p.metrics.PointsLoaded.Add(float64(len(points)))
	p.metrics.StageDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	p.logger.Info("ground-condition points merged", "run_id", p.runID, "points", len(points))
	return points, nil
}

func (p *Pipeline) targetStage(ctx context.Context) ([]domain.TargetSite, error) {
	start := time.Now()
	targets, err := p.targets.BuildTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, domain.ErrNoTargets
	}
	p.metrics.TargetsBuilt.Add(float64(len(targets)))
	p.metrics.StageDuration.WithLabelValues("targets").Observe(time.Since(start).Seconds())
	p.logger.Info("target sites built", "run_id", p.runID, "targets", len(targets))
	return targets, nil
}

// associateStage resolves every target against the index in parallel.
// Results land in a position-indexed slice so output order never depends on
// goroutine scheduling.
func (p *Pipeline) associateStage(ctx context.Context, index *domain.PointIndex, targets []domain.TargetSite) ([]domain.Association, error) {
	start := time.Now()
	results := make([]domain.Association, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.workers; w++ {
		shard := w
		g.Go(func() error {
			for i := shard; i < len(targets); i += p.workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				t := targets[i]
				point, dist, ok := index.Nearest(t.Lon, t.Lat)
				if !ok {
					return domain.ErrNoPoints
				}
				results[i] = domain.Association{Target: t, Point: point, DistanceKm: dist}
				p.metrics.AssociationDistanceKm.Observe(dist)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.metrics.StageDuration.WithLabelValues("associate").Observe(time.Since(start).Seconds())
	return results, nil
}

// resolveStage applies the acceptance cutoff in target order, emitting one
// warning per discard and one derived record per accepted association. Each
// target is judged independently; a discard never affects its neighbors.
func (p *Pipeline) resolveStage(ctx context.Context, targets []domain.TargetSite, results []domain.Association) []domain.SiteRecord {
	records := make([]domain.SiteRecord, 0, len(targets))
	for _, a := range results {
		if a.DistanceKm > p.maxDistanceKm {
			p.discard(ctx, a)
			continue
		}
		records = append(records, domain.DeriveRecord(a, p.derive))
		p.accepted.Add(1)
		p.metrics.SitesAccepted.Inc()
	}
	return records
}

func (p *Pipeline) discard(ctx context.Context, a domain.Association) {
	p.discarded.Add(1)
	p.metrics.SitesDiscarded.Inc()

	warn := domain.NewDiscardWarning(p.runID, a, p.maxDistanceKm)
	p.logger.Warn("site discarded: nearest point beyond cutoff",
		"run_id", p.runID,
		"site_id", a.Target.ID,
		"lon", a.Target.Lon,
		"lat", a.Target.Lat,
		"distance_km", a.DistanceKm,
		"max_distance_km", p.maxDistanceKm,
	)
	for _, sink := range p.warnings {
		if err := sink.Publish(ctx, warn); err != nil {
			p.logger.Warn("warning sink publish failed", "run_id", p.runID, "error", err)
		}
	}
}
