package export

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
)

// WebhookPayload is the eight-column record understood by the sheet
// backend: site, city, points, lines, analysis CSV, and one isochrone
// collection per display threshold.
type WebhookPayload struct {
	Field1 string `json:"field1"`
	Field2 string `json:"field2"`
	Field3 string `json:"field3"`
	Field4 string `json:"field4"`
	Field5 string `json:"field5"`
	Field6 string `json:"field6"`
	Field7 string `json:"field7"`
	Field8 string `json:"field8"`
}

// webhookIsochroneKm are the three thresholds the sheet backend stores.
var webhookIsochroneKm = []float64{2, 5, 10}

// BuildWebhookPayload assembles the record from a finished run state.
func BuildWebhookPayload(siteName, city string, state *model.RunState) (*WebhookPayload, error) {
	points, err := json.Marshal(PointsCollection(state.GeocodedTrips))
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal points")
	}

	lines, err := RoutesCollection(state.Routes)
	if err != nil {
		return nil, err
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal lines")
	}

	var analysis bytes.Buffer
	if err := WriteAnalysisCSV(&analysis, state.Routes); err != nil {
		return nil, err
	}

	isoJSON := make([]string, len(webhookIsochroneKm))
	for i, km := range webhookIsochroneKm {
		data, err := json.Marshal(IsochroneCollection(state.Isochrones, km))
		if err != nil {
			return nil, eris.Wrap(err, "export: marshal isochrones")
		}
		isoJSON[i] = string(data)
	}

	return &WebhookPayload{
		Field1: siteName,
		Field2: city,
		Field3: string(points),
		Field4: string(linesJSON),
		Field5: analysis.String(),
		Field6: isoJSON[0],
		Field7: isoJSON[1],
		Field8: isoJSON[2],
	}, nil
}

// PushWebhook delivers the payload. Any non-2xx response is an error.
func PushWebhook(ctx context.Context, client *http.Client, url string, payload *WebhookPayload) error {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "export: marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "export: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "export: push webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eris.Errorf("export: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
