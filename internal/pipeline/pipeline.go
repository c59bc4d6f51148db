// Package pipeline orchestrates the four-stage commute audit: csv parse,
// geocoding, routing plus isochrones, and map rendering. The orchestrator
// owns the run state; stages receive the inputs they need and hand back
// deltas, so no stage ever mutates state directly.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cavena/mobility-cli/internal/config"
	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/normalize"
	"github.com/cavena/mobility-cli/internal/resilience"
	"github.com/cavena/mobility-cli/pkg/geocode"
	"github.com/cavena/mobility-cli/pkg/ors"
)

// AddressResolver geocodes one address, caching repeats within the run.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (model.GeoPoint, error)
	Stats() geocode.Stats
}

// Router computes one cycling route between two points.
type Router interface {
	Directions(ctx context.Context, origin, destination model.GeoPoint, radiusMeters float64) (ors.Route, error)
}

// Isochroner computes one reachability polygon around a point.
type Isochroner interface {
	Isochrone(ctx context.Context, center model.GeoPoint, rangeKm, smoothing float64) (*geom.Polygon, error)
}

// Renderer consumes the finished run state at the map stage. Export and
// webhook delivery live behind this boundary.
type Renderer interface {
	Render(ctx context.Context, state *model.RunState) error
}

// Orchestrator drives the linear stage machine. It is not safe for
// concurrent use; create one per run.
type Orchestrator struct {
	cfg        *config.Config
	resolver   AddressResolver
	router     Router
	isochroner Isochroner
	renderer   Renderer

	routePacer resilience.Pacer
	isoPacer   resilience.Pacer

	state     model.RunState
	summaries []model.StageSummary
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithRoutePacer overrides the directions call pacer.
func WithRoutePacer(p resilience.Pacer) Option {
	return func(o *Orchestrator) { o.routePacer = p }
}

// WithIsochronePacer overrides the isochrone call pacer.
func WithIsochronePacer(p resilience.Pacer) Option {
	return func(o *Orchestrator) { o.isoPacer = p }
}

// New creates an Orchestrator. The renderer may be nil, in which case the
// map stage only records its summary.
func New(cfg *config.Config, resolver AddressResolver, router Router, isochroner Isochroner, renderer Renderer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		resolver:   resolver,
		router:     router,
		isochroner: isochroner,
		renderer:   renderer,
		routePacer: resilience.NewPacer(cfg.Routing.Pacing()),
		isoPacer:   resilience.NewPacer(cfg.Isochrone.Pacing()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State exposes the run state for persistence after the run completes.
func (o *Orchestrator) State() *model.RunState { return &o.state }

// Summaries returns the per-stage outcome tallies recorded so far.
func (o *Orchestrator) Summaries() []model.StageSummary { return o.summaries }

// Run reads the CSV input and drives the pipeline to completion.
func (o *Orchestrator) Run(ctx context.Context, r io.Reader) (*model.RunState, []model.StageSummary, error) {
	rows, err := normalize.ReadRows(r)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: read input")
	}
	err = o.Dispatch(ctx, model.Transition{
		Data: model.StateDelta{RawRows: rows},
		Next: model.StageCSV,
	})
	return &o.state, o.summaries, err
}

// Dispatch merges a stage-completion delta into the run state, advances
// to the target stage, and runs that stage's entry logic. Alias stage ids
// are remapped first; transitions to unknown stages or out of line order
// are logged and dropped, never executed.
func (o *Orchestrator) Dispatch(ctx context.Context, t model.Transition) error {
	next, ok := model.CanonicalStage(t.Next)
	if !ok {
		zap.L().Warn("pipeline: dropping transition to unknown stage",
			zap.String("stage", string(t.Next)))
		return nil
	}
	if !o.validNext(next) {
		zap.L().Warn("pipeline: dropping out-of-order transition",
			zap.String("from", string(o.state.CurrentStage)),
			zap.String("to", string(next)))
		return nil
	}

	o.state.Merge(t.Data)
	o.state.CurrentStage = next
	zap.L().Info("pipeline: entering stage", zap.String("stage", string(next)))

	switch next {
	case model.StageCSV:
		return o.enterCSV(ctx)
	case model.StageGeo:
		return o.enterGeo(ctx)
	case model.StageRoute:
		return o.enterRoute(ctx)
	case model.StageMap:
		return o.enterMap(ctx)
	}
	return nil
}

// validNext enforces the strictly linear progression. Re-entering the map
// stage is allowed so alias transitions can re-render.
func (o *Orchestrator) validNext(next model.Stage) bool {
	cur := o.state.CurrentStage
	if next.Index() == cur.Index()+1 {
		return true
	}
	return next == model.StageMap && cur == model.StageMap
}

func (o *Orchestrator) enterCSV(ctx context.Context) error {
	if len(o.state.RawRows) == 0 {
		zap.L().Info("pipeline: no rows to parse, skipping csv stage")
		return nil
	}

	start := time.Now()
	pairs, err := normalize.Pairs(o.state.RawRows)
	summary := model.StageSummary{
		Stage:      model.StageCSV,
		Attempted:  len(o.state.RawRows),
		Succeeded:  len(pairs),
		Failed:     len(o.state.RawRows) - len(pairs),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		summary.Error = err.Error()
		o.summaries = append(o.summaries, summary)
		return eris.Wrap(err, "pipeline: csv stage")
	}
	o.summaries = append(o.summaries, summary)
	zap.L().Info("pipeline: csv stage complete",
		zap.Int("rows", len(o.state.RawRows)),
		zap.Int("pairs", len(pairs)))

	return o.Dispatch(ctx, model.Transition{
		Data: model.StateDelta{AddressPairs: pairs},
		Next: model.StageGeo,
	})
}

func (o *Orchestrator) enterGeo(ctx context.Context) error {
	if len(o.state.AddressPairs) == 0 {
		zap.L().Info("pipeline: no address pairs, skipping geo stage")
		return nil
	}

	start := time.Now()
	trips, err := o.geocodeBatch(ctx, o.state.AddressPairs)
	summary := model.StageSummary{
		Stage:      model.StageGeo,
		Attempted:  len(o.state.AddressPairs),
		Succeeded:  len(trips),
		Failed:     len(o.state.AddressPairs) - len(trips),
		DurationMs: time.Since(start).Milliseconds(),
		Metadata:   map[string]any{"geocoding": o.resolver.Stats()},
	}
	if err != nil {
		summary.Error = err.Error()
		o.summaries = append(o.summaries, summary)
		return eris.Wrap(err, "pipeline: geo stage")
	}
	o.summaries = append(o.summaries, summary)
	zap.L().Info("pipeline: geo stage complete",
		zap.Int("pairs", len(o.state.AddressPairs)),
		zap.Int("trips", len(trips)),
		zap.Int("dropped", len(o.state.AddressPairs)-len(trips)))

	return o.Dispatch(ctx, model.Transition{
		Data: model.StateDelta{GeocodedTrips: trips},
		Next: model.StageRoute,
	})
}

func (o *Orchestrator) enterRoute(ctx context.Context) error {
	if len(o.state.GeocodedTrips) == 0 {
		zap.L().Info("pipeline: no geocoded trips, skipping route stage")
		return nil
	}
	if o.router == nil || o.isochroner == nil {
		return eris.New("pipeline: routing client not configured, set routing.api_key")
	}

	start := time.Now()
	trips := o.state.GeocodedTrips

	// Directions and isochrones hit independently rate-limited endpoints,
	// so the two batches run concurrently with their own pacers.
	var (
		routes []model.RouteResult
		isos   []model.IsochronePolygon
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		routes, err = o.routeBatch(gctx, trips)
		return err
	})
	g.Go(func() error {
		var err error
		isos, err = o.isochroneBatch(gctx, trips)
		return err
	})
	err := g.Wait()

	succeeded := 0
	for _, r := range routes {
		if r.Status == model.RouteSuccess {
			succeeded++
		}
	}
	summary := model.StageSummary{
		Stage:      model.StageRoute,
		Attempted:  len(trips),
		Succeeded:  succeeded,
		Failed:     len(trips) - succeeded,
		DurationMs: time.Since(start).Milliseconds(),
		Metadata:   map[string]any{"isochrones": len(isos)},
	}
	if err != nil {
		summary.Error = err.Error()
		o.summaries = append(o.summaries, summary)
		return eris.Wrap(err, "pipeline: route stage")
	}
	o.summaries = append(o.summaries, summary)
	zap.L().Info("pipeline: route stage complete",
		zap.Int("routes", succeeded),
		zap.Int("failed", len(trips)-succeeded),
		zap.Int("isochrones", len(isos)))

	return o.Dispatch(ctx, model.Transition{
		Data: model.StateDelta{Routes: routes, Isochrones: isos},
		Next: model.StageMap,
	})
}

func (o *Orchestrator) enterMap(ctx context.Context) error {
	if len(o.state.Routes) == 0 {
		zap.L().Info("pipeline: no routes, skipping map stage")
		return nil
	}

	start := time.Now()
	summary := model.StageSummary{
		Stage:     model.StageMap,
		Attempted: len(o.state.Routes),
		Succeeded: len(o.state.Routes),
	}
	if o.renderer != nil {
		if err := o.renderer.Render(ctx, &o.state); err != nil {
			summary.Succeeded = 0
			summary.Failed = len(o.state.Routes)
			summary.Error = err.Error()
			summary.DurationMs = time.Since(start).Milliseconds()
			o.summaries = append(o.summaries, summary)
			return eris.Wrap(err, "pipeline: map stage")
		}
	}
	summary.DurationMs = time.Since(start).Milliseconds()
	o.summaries = append(o.summaries, summary)
	zap.L().Info("pipeline: map stage complete", zap.Int("routes", len(o.state.Routes)))
	return nil
}
