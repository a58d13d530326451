package entity

import "time"

// CountResult records what was actually observed for a count item. It is
// created exactly once, when the item transitions to counted, and is never
// edited afterwards. Adjustments reference it but leave it intact.
type CountResult struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	CountItemID    string    `json:"count_item_id" gorm:"size:36;not null;uniqueIndex"`
	ActualQuantity float64   `json:"actual_quantity" gorm:"type:decimal(12,4);not null"`
	ActualLocation string    `json:"actual_location" gorm:"size:100"`
	Condition      string    `json:"condition" gorm:"size:20;not null;default:good"`
	Notes          string    `json:"notes" gorm:"type:text"`
	CountedBy      string    `json:"counted_by" gorm:"size:36;not null"`
	CountedAt      time.Time `json:"counted_at" gorm:"not null"`
}

func (CountResult) TableName() string {
	return "count_results"
}

// Observed item conditions
const (
	ConditionGood    = "good"
	ConditionDamaged = "damaged"
	ConditionExpired = "expired"
	ConditionMissing = "missing"
)

var validConditions = map[string]bool{
	ConditionGood:    true,
	ConditionDamaged: true,
	ConditionExpired: true,
	ConditionMissing: true,
}

// ValidCondition reports whether c is a recognized condition value.
func ValidCondition(c string) bool {
	return validConditions[c]
}
