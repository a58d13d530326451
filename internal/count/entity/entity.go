package entity

import "gorm.io/gorm"

// AutoMigrate migrates all cycle-count tables and the partial unique
// indexes that back the invariants gorm tags cannot express: one applied
// adjustment per count result, and one active schedule per name.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Schedule{},
		&Batch{},
		&CountItem{},
		&CountResult{},
		&Adjustment{},
	); err != nil {
		return err
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_applied_adjustment_per_result
		ON count_adjustments (count_result_id) WHERE applied`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_schedule_name
		ON count_schedules (name) WHERE active`).Error
}
