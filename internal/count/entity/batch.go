package entity

import "time"

// Batch is one concrete counting session. The schedule reference is weak:
// deleting a schedule orphans its batches instead of cascading.
type Batch struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	Description string     `json:"description" gorm:"type:text"`
	ScheduleID  *string    `json:"schedule_id" gorm:"size:36;index"`
	Status      string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	StartDate   time.Time  `json:"start_date" gorm:"not null"`
	EndDate     *time.Time `json:"end_date"`
	Notes       string     `json:"notes" gorm:"type:text"`

	// Generation criteria, snapshotted so the batch records how its
	// items were picked.
	Method    string `json:"method" gorm:"size:20;not null"`
	ItemCount int    `json:"item_count"`
	Category  string `json:"category" gorm:"size:100"`
	Location  string `json:"location" gorm:"size:100"`
	Seed      int64  `json:"seed"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CountItem `json:"items,omitempty" gorm:"foreignKey:BatchID"`
}

func (Batch) TableName() string {
	return "count_batches"
}

// Batch statuses
const (
	BatchStatusPending    = "pending"
	BatchStatusInProgress = "in_progress"
	BatchStatusCompleted  = "completed"
	BatchStatusCancelled  = "cancelled"
)

// ValidBatchTransitions lists the legal batch status transitions. Completed
// and cancelled are terminal.
var ValidBatchTransitions = map[string][]string{
	BatchStatusPending:    {BatchStatusInProgress, BatchStatusCancelled},
	BatchStatusInProgress: {BatchStatusCompleted, BatchStatusCancelled},
}
