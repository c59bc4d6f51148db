package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/resilience"
)

const defaultBANBaseURL = "https://api-adresse.data.gouv.fr"

// BANProvider queries the Base Adresse Nationale geocoder.
type BANProvider struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewBANProvider creates a BAN provider. An empty baseURL selects the
// public endpoint.
func NewBANProvider(httpClient *http.Client, baseURL, userAgent string) *BANProvider {
	if baseURL == "" {
		baseURL = defaultBANBaseURL
	}
	return &BANProvider{baseURL: baseURL, httpClient: httpClient, userAgent: userAgent}
}

// Name implements Provider.
func (p *BANProvider) Name() string { return "ban" }

// banResponse is the GeoJSON-shaped answer from the BAN search endpoint.
type banResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode implements Provider.
func (p *BANProvider) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	params := url.Values{
		"q":     {address},
		"limit": {"1"},
	}
	reqURL := p.baseURL + "/search/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: ban build request")
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: ban request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: ban returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return model.GeoPoint{}, resilience.NewTransientError(err, resp.StatusCode)
		}
		return model.GeoPoint{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: ban read body")
	}

	var banResp banResponse
	if err := json.Unmarshal(body, &banResp); err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: ban parse response")
	}

	if len(banResp.Features) == 0 || len(banResp.Features[0].Geometry.Coordinates) < 2 {
		return model.GeoPoint{}, ErrNoResult
	}

	coords := banResp.Features[0].Geometry.Coordinates
	point := model.GeoPoint{Lat: coords[1], Lon: coords[0], Source: p.Name()}
	if !point.Valid() {
		return model.GeoPoint{}, eris.Errorf("geocode: ban returned out-of-range coordinates %v", coords)
	}
	return point, nil
}
