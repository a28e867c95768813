package features

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var blockPattern = regexp.MustCompile(`(?i)(\d+)\s*block`)

// AddressBlock returns the integer immediately preceding the word "Block"
// in an incident location, or 0 when there is none.
func AddressBlock(location string) int {
	m := blockPattern.FindStringSubmatch(location)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// DefaultGeoCluster is the cluster id used whenever coordinates cannot be binned.
const DefaultGeoCluster = "0_0"

// GeoCluster parses "lat, lon" and bins each coordinate independently.
// Any failure yields DefaultGeoCluster.
func GeoCluster(coords string, geo GeoBinning) string {
	lat, lon, ok := parseCoordinates(coords)
	if !ok {
		return DefaultGeoCluster
	}
	latBin, ok := geo.Latitude.Bin(lat)
	if !ok {
		return DefaultGeoCluster
	}
	lonBin, ok := geo.Longitude.Bin(lon)
	if !ok {
		return DefaultGeoCluster
	}
	return strconv.Itoa(latBin) + "_" + strconv.Itoa(lonBin)
}

func parseCoordinates(s string) (lat, lon float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0, 0, false
	}
	return lat, lon, true
}
