package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/export"
	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/pipeline"
	"github.com/cavena/mobility-cli/internal/resilience"
	"github.com/cavena/mobility-cli/internal/store"
	"github.com/cavena/mobility-cli/pkg/geocode"
	"github.com/cavena/mobility-cli/pkg/ors"
)

// initStore opens and migrates the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// buildResolver assembles the geocoding resolver from configuration,
// with an optional persistent cache backed by the store.
func buildResolver(st store.Store) (*geocode.Resolver, error) {
	httpClient := &http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}

	providers := make([]geocode.Provider, 0, len(cfg.Geocode.Providers))
	for _, name := range cfg.Geocode.Providers {
		switch name {
		case "ban":
			providers = append(providers, geocode.NewBANProvider(httpClient, cfg.Geocode.BANBaseURL, cfg.Geocode.UserAgent))
		case "nominatim":
			providers = append(providers, geocode.NewNominatimProvider(
				httpClient, cfg.Geocode.NominatimURL, cfg.Geocode.UserAgent, cfg.Geocode.RegionBias))
		default:
			return nil, eris.Errorf("unknown geocode provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, eris.New("no geocode providers configured")
	}

	opts := []geocode.Option{
		geocode.WithPacer(resilience.NewPacer(cfg.Geocode.Pacing())),
		geocode.WithRetryConfig(resilience.RetryConfig{
			MaxAttempts: cfg.Geocode.MaxAttempts,
			Backoff:     cfg.Geocode.Backoff(),
		}),
	}
	if st != nil && cfg.Geocode.CacheTTLDays > 0 {
		ttl := time.Duration(cfg.Geocode.CacheTTLDays) * 24 * time.Hour
		opts = append(opts, geocode.WithPersistentCache(store.NewCacheAdapter(st, ttl)))
	}
	return geocode.NewResolver(providers, opts...), nil
}

// buildORSClient creates the routing/isochrone client. The API key is
// required before entering the route stage.
func buildORSClient() (*ors.Client, error) {
	return ors.NewClient(cfg.Routing.APIKey,
		ors.WithBaseURL(cfg.Routing.BaseURL),
		ors.WithProfile(cfg.Routing.Profile),
		ors.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Routing.TimeoutSecs) * time.Second}),
	)
}

// executeRun drives the pipeline for an already-created run and persists
// the outcome. outDir overrides the configured export directory when set.
func executeRun(ctx context.Context, st store.Store, runID, site, city, outDir string, input io.Reader) (*model.RunState, []model.StageSummary, error) {
	failSetup := func(err error) (*model.RunState, []model.StageSummary, error) {
		if cerr := st.CompleteRun(ctx, runID, model.RunStatusFailed, nil, nil); cerr != nil {
			zap.L().Warn("run persistence failed", zap.Error(cerr))
		}
		return nil, nil, err
	}

	resolver, err := buildResolver(st)
	if err != nil {
		return failSetup(err)
	}
	orsClient, err := buildORSClient()
	if err != nil {
		return failSetup(err)
	}

	exportCfg := cfg.Export
	if outDir != "" {
		exportCfg.OutDir = outDir
	}
	renderer := export.NewRenderer(exportCfg, cfg.Isochrone, site, city)

	if err := st.UpdateRunStatus(ctx, runID, model.RunStatusGeocoding); err != nil {
		zap.L().Warn("run status update failed", zap.Error(err))
	}

	orch := pipeline.New(cfg, resolver, orsClient, orsClient, renderer)
	state, summaries, runErr := orch.Run(ctx, input)

	status := model.RunStatusComplete
	if runErr != nil {
		status = model.RunStatusFailed
	}
	if err := st.CompleteRun(ctx, runID, status, summaries, state); err != nil {
		zap.L().Warn("run persistence failed", zap.Error(err))
	}
	return state, summaries, runErr
}
