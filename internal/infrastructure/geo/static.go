package geo

import (
	"context"
	"math"
)

// StaticGeocoder resolves coordinates to the nearest city in a fixed table.
// Stand-in for an external reverse-geocoding API; anything farther than
// maxKm from every entry comes back empty, which the caller treats as
// "unknown".
type StaticGeocoder struct {
	maxKm float64
}

func NewStaticGeocoder() StaticGeocoder {
	return StaticGeocoder{maxKm: 50}
}

type city struct {
	name string
	lat  float64
	lon  float64
}

var cities = []city{
	{"New York, NY", 40.7128, -74.0060},
	{"Brooklyn, NY", 40.6782, -73.9442},
	{"Los Angeles, CA", 34.0522, -118.2437},
	{"San Francisco, CA", 37.7749, -122.4194},
	{"Chicago, IL", 41.8781, -87.6298},
	{"Houston, TX", 29.7604, -95.3698},
	{"Austin, TX", 30.2672, -97.7431},
	{"Seattle, WA", 47.6062, -122.3321},
	{"Portland, OR", 45.5152, -122.6784},
	{"Boston, MA", 42.3601, -71.0589},
	{"Philadelphia, PA", 39.9526, -75.1652},
	{"Denver, CO", 39.7392, -104.9903},
	{"Miami, FL", 25.7617, -80.1918},
	{"Atlanta, GA", 33.7490, -84.3880},
	{"Toronto, ON", 43.6532, -79.3832},
	{"Vancouver, BC", 49.2827, -123.1207},
}

func (g StaticGeocoder) ReverseCity(ctx context.Context, lat, lon float64) (string, error) {
	best := ""
	bestKm := g.maxKm
	for _, c := range cities {
		if d := haversineKm(lat, lon, c.lat, c.lon); d <= bestKm {
			best = c.name
			bestKm = d
		}
	}
	return best, nil
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
