// Package geocode resolves free-text addresses to coordinates and builds the
// static map image URL shown on the event detail view. Every failure is
// treated as "no map available", never surfaced as a hard error.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultEndpoint = "https://nominatim.openstreetmap.org/search"

// Geocoder resolves an address. ok=false means no coordinates are known for
// it; the caller shows the detail view without a map.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (lat, lon float64, ok bool)
}

// Nominatim queries the OpenStreetMap Nominatim search API.
type Nominatim struct {
	Endpoint string
	Client   *http.Client
}

func NewNominatim(endpoint string) *Nominatim {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Nominatim{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Nominatim) Resolve(ctx context.Context, address string) (float64, float64, bool) {
	if address == "" {
		return 0, 0, false
	}

	query := url.Values{}
	query.Set("format", "json")
	query.Set("accept-language", "en")
	query.Set("q", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		log.Errorf("failed to build geocoding request: %v", err)
		return 0, 0, false
	}
	req.Header.Set("User-Agent", "eventorias")

	resp, err := n.Client.Do(req)
	if err != nil {
		log.Errorf("geocoding request failed: %v", err)
		return 0, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("geocoding request returned status %d", resp.StatusCode)
		return 0, 0, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("failed to read geocoding response: %v", err)
		return 0, 0, false
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil || len(results) == 0 {
		log.Debugf("no geocoding result for %q", address)
		return 0, 0, false
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// StaticMapURL builds the map image URL for a resolved coordinate pair.
func StaticMapURL(lat, lon float64, apiKey string) string {
	return fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/staticmap?center=%.6f,%.6f&zoom=14&size=400x400&markers=%.6f,%.6f&key=%s",
		lat, lon, lat, lon, apiKey,
	)
}
