package room

// Bounding box of South Korea including Jeju and Ulleungdo. Dokdo sits just east of it.
const (
	minLat = 33.0
	maxLat = 38.62
	minLng = 124.5
	maxLng = 131.9
)

// InKorea reports whether the coordinate is inside the supported service area.
func InKorea(lat, lng float64) bool {
	return lat >= minLat && lat <= maxLat && lng >= minLng && lng <= maxLng
}
