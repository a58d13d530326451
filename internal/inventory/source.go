// Package inventory is the boundary to the parent application's inventory
// catalog. The cycle-count engine reads expected quantity/location snapshots
// through Source and writes approved adjustments back through it; it never
// touches the catalog tables directly.
package inventory

import "context"

// ItemType tags the two catalog item kinds. Both expose the same expected
// quantity/location capability, so the engine treats them uniformly.
type ItemType string

const (
	ItemTypeTool     ItemType = "tool"
	ItemTypeChemical ItemType = "chemical"
)

// ValidItemType reports whether t is a recognized item type.
func ValidItemType(t string) bool {
	return t == string(ItemTypeTool) || t == string(ItemTypeChemical)
}

// Item is a point-in-time catalog snapshot of one inventory unit.
type Item struct {
	Type            ItemType `json:"type"`
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Location        string   `json:"location"`
	Quantity        float64  `json:"quantity"`
	UnitCost        float64  `json:"unit_cost"`
	QuantityTracked bool     `json:"quantity_tracked"`
}

// AdjustmentWrite is one approved correction. Key is supplied by the engine
// (count_result_id + adjustment_type) and must make the write idempotent:
// applying the same key twice results in exactly one inventory mutation.
type AdjustmentWrite struct {
	Key       string
	ItemType  ItemType
	ItemID    string
	Field     string // quantity | location | condition | status
	NewValue  string
	Notes     string
	WrittenBy string
}

// Source supplies catalog snapshots and accepts adjustment write-backs.
type Source interface {
	// Catalog returns a snapshot of every countable item.
	Catalog(ctx context.Context) ([]Item, error)

	// Get returns a single item snapshot, or nil if absent.
	Get(ctx context.Context, itemType ItemType, id string) (*Item, error)

	// ApplyAdjustment applies one correction at most once per Key.
	// A repeated Key is a no-op returning nil.
	ApplyAdjustment(ctx context.Context, w AdjustmentWrite) error
}
