// Package poi finds named points of interest near a location via Overpass.
package poi

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

// Client queries the Overpass API for named POIs around a point.
type Client struct {
	request  *request.Client
	tracker  *tracker.Tracker
	Endpoint string
	radiusM  float64
	maxPOIs  int
}

// NewClient creates a new Overpass client.
func NewClient(r *request.Client, t *tracker.Tracker, cfg *config.POIConfig) *Client {
	return &Client{
		request:  r,
		tracker:  t,
		Endpoint: cfg.URL,
		radiusM:  float64(cfg.RadiusM),
		maxPOIs:  cfg.MaxResults,
	}
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// FindNearby returns up to the configured number of named POIs around the
// point, in provider order. It NEVER returns an error: on any failure it
// falls back to a single generic placeholder so story generation can proceed.
func (c *Client) FindNearby(ctx context.Context, lat, lng float64) []model.PointOfInterest {
	query := fmt.Sprintf(`
	[out:json][timeout:25];
	(
	  node["historic"](around:%.0f,%f,%f);
	  node["amenity"="place_of_worship"](around:%.0f,%f,%f);
	  node["tourism"](around:%.0f,%f,%f);
	  node["building"]["name"](around:%.0f,%f,%f);
	);
	out body;
	>;
	out skel qt;
	`, c.radiusM, lat, lng, c.radiusM, lat, lng, c.radiusM, lat, lng, c.radiusM, lat, lng)

	form := url.Values{"data": {query}}
	cacheKey := fmt.Sprintf("poi:%s:%.0f", geo.CellKey(lat, lng), c.radiusM)

	body, err := c.request.PostWithCache(ctx, c.Endpoint, []byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"}, cacheKey)
	if err != nil {
		slog.Warn("POI lookup failed, using placeholder", "lat", lat, "lng", lng, "error", err)
		c.tracker.TrackFallback("overpass")
		return placeholderPOIs()
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Warn("POI response unparseable, using placeholder", "error", err)
		c.tracker.TrackFallback("overpass")
		return placeholderPOIs()
	}

	pois := make([]model.PointOfInterest, 0, c.maxPOIs)
	for _, el := range resp.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		pois = append(pois, model.PointOfInterest{
			Name: name,
			Type: poiType(el.Tags),
		})
		if len(pois) >= c.maxPOIs {
			break
		}
	}

	if len(pois) == 0 {
		c.tracker.TrackFallback("overpass")
		return placeholderPOIs()
	}
	return pois
}

// poiType picks the most descriptive tag, mirroring the priority
// historic > amenity > tourism.
func poiType(tags map[string]string) string {
	if v := tags["historic"]; v != "" {
		return v
	}
	if v := tags["amenity"]; v != "" {
		return v
	}
	if v := tags["tourism"]; v != "" {
		return v
	}
	return "landmark"
}

func placeholderPOIs() []model.PointOfInterest {
	return []model.PointOfInterest{{Name: "Local landmarks", Type: "landmark"}}
}
