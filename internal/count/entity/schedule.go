package entity

import "time"

// Schedule is a recurring audit definition: how often to count and how
// the items for each batch are picked.
type Schedule struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:200;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Frequency   string    `json:"frequency" gorm:"size:20;not null"`
	Method      string    `json:"method" gorm:"size:20;not null"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Schedule) TableName() string {
	return "count_schedules"
}

// Schedule frequencies
const (
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnual    = "annual"
)

// Selection methods
const (
	MethodAll      = "all"
	MethodRandom   = "random"
	MethodCategory = "category"
	MethodLocation = "location"
	MethodABC      = "abc"
)

var validFrequencies = map[string]bool{
	FrequencyDaily:     true,
	FrequencyWeekly:    true,
	FrequencyMonthly:   true,
	FrequencyQuarterly: true,
	FrequencyAnnual:    true,
}

var validMethods = map[string]bool{
	MethodAll:      true,
	MethodRandom:   true,
	MethodCategory: true,
	MethodLocation: true,
	MethodABC:      true,
}

// ValidFrequency reports whether f is a recognized schedule frequency.
func ValidFrequency(f string) bool {
	return validFrequencies[f]
}

// ValidMethod reports whether m is a recognized selection method.
func ValidMethod(m string) bool {
	return validMethods[m]
}
