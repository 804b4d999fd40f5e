// Package geocode resolves coordinates to administrative context via Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/geo"
	"kahaanigo/pkg/model"
	"kahaanigo/pkg/request"
	"kahaanigo/pkg/tracker"
)

// Client reverse-geocodes coordinates into neighborhood context.
type Client struct {
	request     *request.Client
	tracker     *tracker.Tracker
	Endpoint    string
	defaultCity string
}

// NewClient creates a new Nominatim client.
func NewClient(r *request.Client, t *tracker.Tracker, cfg *config.GeocodeConfig) *Client {
	return &Client{
		request:     r,
		tracker:     t,
		Endpoint:    cfg.URL,
		defaultCity: cfg.DefaultCity,
	}
}

type nominatimResponse struct {
	Address struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		CityDistrict  string `json:"city_district"`
	} `json:"address"`
}

// Resolve returns the area info for a point. City is always non-empty;
// on any failure every field degrades to the configured default city so
// downstream prompts stay coherent.
func (c *Client) Resolve(ctx context.Context, lat, lng float64) model.AreaInfo {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		slog.Warn("Geocode endpoint invalid, using default area", "error", err)
		c.tracker.TrackFallback("nominatim")
		return c.defaultArea()
	}

	q := u.Query()
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lng))
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	cacheKey := fmt.Sprintf("geocode:%s", geo.CellKey(lat, lng))
	body, err := c.request.Get(ctx, u.String(), cacheKey)
	if err != nil {
		slog.Warn("Reverse geocode failed, using default area", "lat", lat, "lng", lng, "error", err)
		c.tracker.TrackFallback("nominatim")
		return c.defaultArea()
	}

	var resp nominatimResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Warn("Geocode response unparseable, using default area", "error", err)
		c.tracker.TrackFallback("nominatim")
		return c.defaultArea()
	}

	neighborhood := resp.Address.Suburb
	if neighborhood == "" {
		neighborhood = resp.Address.Neighbourhood
	}
	if neighborhood == "" {
		neighborhood = c.defaultCity
	}

	return model.AreaInfo{
		Neighborhood: neighborhood,
		Area:         resp.Address.CityDistrict,
		City:         c.defaultCity,
	}
}

func (c *Client) defaultArea() model.AreaInfo {
	return model.AreaInfo{
		Neighborhood: c.defaultCity,
		Area:         "",
		City:         c.defaultCity,
	}
}
