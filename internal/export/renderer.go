package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/analytics"
	"github.com/cavena/mobility-cli/internal/config"
	"github.com/cavena/mobility-cli/internal/model"
)

// Renderer writes every export artifact for a finished run into the
// output directory, then pushes the webhook when a URL is configured.
// It is the map stage's collaborator.
type Renderer struct {
	outDir     string
	siteName   string
	city       string
	webhookURL string
	thresholds []float64
	httpClient *http.Client
}

// NewRenderer builds a Renderer from configuration and run metadata.
func NewRenderer(exportCfg config.ExportConfig, isoCfg config.IsochroneConfig, siteName, city string) *Renderer {
	return &Renderer{
		outDir:     exportCfg.OutDir,
		siteName:   siteName,
		city:       city,
		webhookURL: exportCfg.WebhookURL,
		thresholds: isoCfg.ThresholdsKm,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient overrides the webhook client (tests).
func (r *Renderer) WithHTTPClient(hc *http.Client) *Renderer {
	r.httpClient = hc
	return r
}

// Render writes all artifacts. Files are written before the webhook so
// a delivery failure never loses local output.
func (r *Renderer) Render(ctx context.Context, state *model.RunState) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create output dir %s", r.outDir)
	}
	log := zap.L().With(zap.String("out_dir", r.outDir))

	if err := r.writeJSON("points.geojson", PointsCollection(state.GeocodedTrips)); err != nil {
		return err
	}

	lines, err := RoutesCollection(state.Routes)
	if err != nil {
		return err
	}
	if err := r.writeJSON("routes.geojson", lines); err != nil {
		return err
	}

	for _, km := range r.thresholds {
		name := fmt.Sprintf("isochrone_%gkm.geojson", km)
		if err := r.writeJSON(name, IsochroneCollection(state.Isochrones, km)); err != nil {
			return err
		}
	}

	csvFile, err := os.Create(r.path("analysis.csv"))
	if err != nil {
		return eris.Wrap(err, "export: create analysis.csv")
	}
	if err := WriteAnalysisCSV(csvFile, state.Routes); err != nil {
		csvFile.Close()
		return err
	}
	if err := csvFile.Close(); err != nil {
		return eris.Wrap(err, "export: close analysis.csv")
	}

	report := analytics.BuildReport(state.Routes)
	if err := WriteWorkbook(r.path("audit.xlsx"), r.siteName, r.city, state.Routes, report); err != nil {
		return err
	}

	if len(state.Isochrones) > 0 {
		if err := WriteIsochroneShapefile(r.path("isochrones.shp"), state.Isochrones); err != nil {
			return err
		}
	}
	if len(state.GeocodedTrips) > 0 {
		if err := WritePointsShapefile(r.path("points.shp"), state.GeocodedTrips); err != nil {
			return err
		}
	}

	log.Info("export: artifacts written",
		zap.Int("routes", len(state.Routes)),
		zap.Int("isochrones", len(state.Isochrones)))

	if r.webhookURL != "" {
		payload, err := BuildWebhookPayload(r.siteName, r.city, state)
		if err != nil {
			return err
		}
		if err := PushWebhook(ctx, r.httpClient, r.webhookURL, payload); err != nil {
			return err
		}
		log.Info("export: webhook delivered")
	}
	return nil
}

func (r *Renderer) path(name string) string {
	return filepath.Join(r.outDir, name)
}

func (r *Renderer) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", name)
	}
	if err := os.WriteFile(r.path(name), data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", name)
	}
	return nil
}
