package entity

import "time"

// CountItem is one inventory unit slated for counting within a batch.
// Expected quantity/location are snapshotted at generation time and form
// the audit baseline; they never track later inventory mutations.
type CountItem struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	BatchID          string    `json:"batch_id" gorm:"size:36;not null;index"`
	ItemType         string    `json:"item_type" gorm:"size:20;not null"` // tool | chemical
	ItemID           string    `json:"item_id" gorm:"size:36;not null;index"`
	ItemName         string    `json:"item_name" gorm:"size:200"`
	ExpectedQuantity float64   `json:"expected_quantity" gorm:"type:decimal(12,4);not null"`
	ExpectedLocation string    `json:"expected_location" gorm:"size:100"`
	QuantityTracked  bool      `json:"quantity_tracked" gorm:"not null;default:true"`
	Status           string    `json:"status" gorm:"size:20;not null;default:pending;index"`
	AssignedTo       *string   `json:"assigned_to" gorm:"size:36"`
	SkipReason       string    `json:"skip_reason" gorm:"size:500"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Result *CountResult `json:"result,omitempty" gorm:"foreignKey:CountItemID"`
}

func (CountItem) TableName() string {
	return "count_items"
}

// Count item statuses. Counted and skipped are terminal: no transition
// leads back out of them.
const (
	ItemStatusPending  = "pending"
	ItemStatusAssigned = "assigned"
	ItemStatusCounted  = "counted"
	ItemStatusSkipped  = "skipped"
)

// ValidItemTransitions lists the legal count item status transitions.
var ValidItemTransitions = map[string][]string{
	ItemStatusPending:  {ItemStatusAssigned, ItemStatusCounted, ItemStatusSkipped},
	ItemStatusAssigned: {ItemStatusCounted, ItemStatusSkipped},
}
