package cart

import (
	"github.com/shopspring/decimal"
)

// Cart is the stored shape: one entry per part, keyed by the owning user in
// Redis. The unit price is snapshotted when the line is first added; stock and
// availability are resolved from the live catalog on every read.
type Cart struct {
	Items []Item `json:"items"`
}

// Item is a single part line in the stored cart. UnitPrice is the catalog
// price at add time and does not move with later price changes.
type Item struct {
	PartID    int64           `json:"part_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// find returns the index of the item for partID, or -1.
func (c *Cart) find(partID int64) int {
	for i, item := range c.Items {
		if item.PartID == partID {
			return i
		}
	}
	return -1
}

// View is the priced cart rendered for the storefront.
type View struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Line is a priced cart row.
type Line struct {
	PartID     int64           `json:"part_id"`
	Name       string          `json:"name"`
	PartNumber string          `json:"part_number"`
	Brand      string          `json:"brand"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Qty        int             `json:"qty"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Available  int             `json:"available"`
}
