package models

import "github.com/shopspring/decimal"

// Product is a storefront product as returned by the backend catalog.
type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Brand    string          `json:"brand,omitempty"`
	Category string          `json:"category,omitempty"`
	Size     string          `json:"size,omitempty"`
	Color    string          `json:"color,omitempty"`
}

// CartLine represents one distinct product held in the cart.
type CartLine struct {
	Identity  string          `json:"identity"`  // de-duplication key
	ProductID string          `json:"productId"` // sent to the backend on order
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is unitPrice × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is a point-in-time copy of the cart with its derived values.
type CartSnapshot struct {
	Lines   []CartLine      `json:"lines"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Version uint64          `json:"version"`
}

// NewCartSnapshot copies lines and computes count and total from them.
func NewCartSnapshot(lines []CartLine, version uint64) CartSnapshot {
	snap := CartSnapshot{
		Lines:   make([]CartLine, len(lines)),
		Total:   decimal.Zero,
		Version: version,
	}
	copy(snap.Lines, lines)
	for _, l := range lines {
		snap.Count += l.Quantity
		snap.Total = snap.Total.Add(l.LineTotal())
	}
	return snap
}
