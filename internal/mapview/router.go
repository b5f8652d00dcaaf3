package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/geo"
)

var ErrNoRoute = errors.New("routing service returned no route")

// HTTPRouter asks an OSRM-compatible routing service for a driving polyline.
type HTTPRouter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPRouter(baseURL, apiKey string) *HTTPRouter {
	return &HTTPRouter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

func (r *HTTPRouter) Route(ctx context.Context, start, end geo.Point) ([]geo.Point, error) {
	// OSRM wants lng,lat pairs.
	path := fmt.Sprintf("/route/v1/driving/%f,%f;%f,%f", start.Lng, start.Lat, end.Lng, end.Lat)
	query := url.Values{}
	query.Set("overview", "full")
	query.Set("geometries", "geojson")
	if r.apiKey != "" {
		query.Set("api_key", r.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing service returned %d", resp.StatusCode)
	}

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}

	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("%w: code %q", ErrNoRoute, decoded.Code)
	}

	coordinates := decoded.Routes[0].Geometry.Coordinates
	points := make([]geo.Point, 0, len(coordinates))
	for _, pair := range coordinates {
		if len(pair) < 2 {
			continue
		}
		points = append(points, geo.Point{Lat: pair[1], Lng: pair[0]})
	}
	return points, nil
}
