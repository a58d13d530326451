package entity

import "time"

// Adjustment is a proposed correction derived from a count result. At most
// one adjustment per result may ever reach applied=true; the write-back to
// the inventory source is keyed by count_result_id + adjustment_type so a
// retried approval cannot double-apply.
type Adjustment struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	CountResultID string     `json:"count_result_id" gorm:"size:36;not null;index"`
	Type          string     `json:"adjustment_type" gorm:"column:adjustment_type;size:20;not null"`
	NewValue      string     `json:"new_value" gorm:"size:200;not null"`
	Notes         string     `json:"notes" gorm:"type:text"`
	ProposedBy    string     `json:"proposed_by" gorm:"size:36"`
	ApprovedBy    string     `json:"approved_by" gorm:"size:36"`
	ApprovedAt    *time.Time `json:"approved_at"`
	Applied       bool       `json:"applied" gorm:"not null;default:false;index"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Adjustment) TableName() string {
	return "count_adjustments"
}

// Adjustment types: which field of the inventory record gets corrected.
const (
	AdjustmentQuantity  = "quantity"
	AdjustmentLocation  = "location"
	AdjustmentCondition = "condition"
	AdjustmentStatus    = "status"
)

var validAdjustmentTypes = map[string]bool{
	AdjustmentQuantity:  true,
	AdjustmentLocation:  true,
	AdjustmentCondition: true,
	AdjustmentStatus:    true,
}

// ValidAdjustmentType reports whether t is a recognized adjustment type.
func ValidAdjustmentType(t string) bool {
	return validAdjustmentTypes[t]
}

// IdempotencyKey builds the adapter write-back key for this adjustment.
func (a *Adjustment) IdempotencyKey() string {
	return a.CountResultID + ":" + a.Type
}
