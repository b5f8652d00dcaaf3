package cart

// Item is one line of a cart snapshot.
type Item struct {
	ProductID int64   `json:"productId"`
	VariantID int64   `json:"variantId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Snapshot is the full server-authoritative cart state. The backend pushes it
// wholesale on every change; the client never merges partial updates.
type Snapshot struct {
	Items []Item `json:"items"`
}

// BadgeCount is the number shown on the cart badge: the sum of line
// quantities.
func (s Snapshot) BadgeCount() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}
