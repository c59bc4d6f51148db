package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/resilience"
)

const defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

// NominatimProvider queries the OpenStreetMap Nominatim geocoder.
// Nominatim's usage policy requires an identifying User-Agent.
type NominatimProvider struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	regionBias string
}

// NewNominatimProvider creates a Nominatim provider. regionBias, when
// non-empty, is appended to every query ("..., France") to anchor
// ambiguous addresses.
func NewNominatimProvider(httpClient *http.Client, baseURL, userAgent, regionBias string) *NominatimProvider {
	if baseURL == "" {
		baseURL = defaultNominatimBaseURL
	}
	return &NominatimProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		regionBias: regionBias,
	}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (model.GeoPoint, error) {
	query := address
	if p.regionBias != "" {
		query += ", " + p.regionBias
	}

	params := url.Values{
		"format": {"json"},
		"q":      {query},
		"limit":  {"1"},
	}
	reqURL := p.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: nominatim build request")
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return model.GeoPoint{}, resilience.NewTransientError(err, resp.StatusCode)
		}
		return model.GeoPoint{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: nominatim read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(results) == 0 {
		return model.GeoPoint{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return model.GeoPoint{}, eris.Wrap(err, "geocode: nominatim parse lon")
	}

	point := model.GeoPoint{Lat: lat, Lon: lon, Source: p.Name()}
	if !point.Valid() {
		return model.GeoPoint{}, eris.Errorf("geocode: nominatim returned out-of-range coordinates %f,%f", lat, lon)
	}
	return point, nil
}
