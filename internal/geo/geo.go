package geo

import (
	"fmt"
	"time"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// LocationSample is a single device fix reported for one order. The server is
// the system of record; nothing is retained client-side.
type LocationSample struct {
	Point
	OrderID    int64     `json:"orderId"`
	ObservedAt time.Time `json:"-"`
}

// TrackingResult is the server-computed payload for one (shipper, order)
// pair: current shipper position, delivery address position and the distance
// between them in meters. Ephemeral, refetched on every page entry.
type TrackingResult struct {
	Distance         float64 `json:"distance"`
	UserLocation     Point   `json:"userLocation"`
	ShippingLocation Point   `json:"shippingLocation"`
}

// FormatDistance renders a distance in meters the way the order screen shows
// it: kilometers with two decimals, e.g. 5400 -> "5.40 km".
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}
