package models

import "time"

// Donation is a listing of reusable material offered by its owner. The wire
// names match what existing clients already persist in the key tree.
type Donation struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Category    string    `json:"category"`
	SubCategory string    `json:"subCategory,omitempty"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Discoverable reports whether the listing should appear in discovery
// results. Depleted donations stay in the tree but are hidden.
func (d Donation) Discoverable() bool {
	return d.Quantity > 0
}
