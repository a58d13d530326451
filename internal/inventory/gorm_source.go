package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tool is the parent application's tool catalog row, as seen by the engine.
type Tool struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Category  string    `json:"category" gorm:"size:100;index"`
	Location  string    `json:"location" gorm:"size:100;index"`
	Quantity  float64   `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	UnitCost  float64   `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	Status    string    `json:"status" gorm:"size:20;not null;default:available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tool) TableName() string {
	return "tools"
}

// Chemical is the parent application's chemical catalog row.
type Chemical struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	Name       string     `json:"name" gorm:"size:200;not null"`
	Category   string     `json:"category" gorm:"size:100;index"`
	Location   string     `json:"location" gorm:"size:100;index"`
	Quantity   float64    `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	UnitCost   float64    `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	Status     string     `json:"status" gorm:"size:20;not null;default:available"`
	ExpiryDate *time.Time `json:"expiry_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Chemical) TableName() string {
	return "chemicals"
}

// AppliedAdjustment records every write-back key ever applied. The primary
// key on Key is what makes ApplyAdjustment at-most-once across retries.
type AppliedAdjustment struct {
	Key       string    `json:"key" gorm:"primaryKey;size:100"`
	ItemType  string    `json:"item_type" gorm:"size:20;not null"`
	ItemID    string    `json:"item_id" gorm:"size:36;not null;index"`
	Field     string    `json:"field" gorm:"size:20;not null"`
	NewValue  string    `json:"new_value" gorm:"size:200;not null"`
	Notes     string    `json:"notes" gorm:"size:500"`
	WrittenBy string    `json:"written_by" gorm:"size:36"`
	AppliedAt time.Time `json:"applied_at" gorm:"not null"`
}

func (AppliedAdjustment) TableName() string {
	return "inventory_applied_adjustments"
}

// GormSource implements Source against the application database. Every call
// is bounded by timeout; the caller sees a plain error and maps it to its
// own taxonomy.
type GormSource struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormSource creates a Source over db. timeout bounds each adapter call;
// zero means 5s.
func NewGormSource(db *gorm.DB, timeout time.Duration) *GormSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GormSource{db: db, timeout: timeout}
}

// AutoMigrate migrates the adapter-owned tables. The tool and chemical
// tables belong to the parent application; migrating them here only matters
// for standalone and test deployments.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Tool{}, &Chemical{}, &AppliedAdjustment{})
}

func (s *GormSource) Catalog(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var tools []Tool
	if err := s.db.WithContext(ctx).Order("id").Find(&tools).Error; err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}
	var chemicals []Chemical
	if err := s.db.WithContext(ctx).Order("id").Find(&chemicals).Error; err != nil {
		return nil, fmt.Errorf("load chemicals: %w", err)
	}

	items := make([]Item, 0, len(tools)+len(chemicals))
	for _, t := range tools {
		items = append(items, toolItem(t))
	}
	for _, c := range chemicals {
		items = append(items, chemicalItem(c))
	}
	return items, nil
}

func (s *GormSource) Get(ctx context.Context, itemType ItemType, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch itemType {
	case ItemTypeTool:
		var t Tool
		err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		item := toolItem(t)
		return &item, nil
	case ItemTypeChemical:
		var c Chemical
		err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		item := chemicalItem(c)
		return &item, nil
	default:
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}
}

// ApplyAdjustment inserts the idempotency key and mutates the catalog row in
// one transaction. A key that already exists means the write happened on an
// earlier attempt; the call succeeds without touching the row again.
func (s *GormSource) ApplyAdjustment(ctx context.Context, w AdjustmentWrite) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := AppliedAdjustment{
			Key:       w.Key,
			ItemType:  string(w.ItemType),
			ItemID:    w.ItemID,
			Field:     w.Field,
			NewValue:  w.NewValue,
			Notes:     w.Notes,
			WrittenBy: w.WrittenBy,
			AppliedAt: time.Now(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			return fmt.Errorf("record adjustment key: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Key already applied; nothing more to do.
			return nil
		}

		updates, err := fieldUpdate(w.Field, w.NewValue)
		if err != nil {
			return err
		}

		var table interface{}
		switch w.ItemType {
		case ItemTypeTool:
			table = &Tool{}
		case ItemTypeChemical:
			table = &Chemical{}
		default:
			return fmt.Errorf("unknown item type %q", w.ItemType)
		}

		upd := tx.Model(table).Where("id = ?", w.ItemID).Updates(updates)
		if upd.Error != nil {
			return fmt.Errorf("apply %s adjustment: %w", w.Field, upd.Error)
		}
		if upd.RowsAffected == 0 {
			return fmt.Errorf("inventory item %s/%s not found", w.ItemType, w.ItemID)
		}
		return nil
	})
}

func fieldUpdate(field, newValue string) (map[string]interface{}, error) {
	switch field {
	case "quantity":
		q, err := strconv.ParseFloat(newValue, 64)
		if err != nil {
			return nil, fmt.Errorf("quantity adjustment value %q is not numeric", newValue)
		}
		return map[string]interface{}{"quantity": q}, nil
	case "location":
		return map[string]interface{}{"location": newValue}, nil
	case "condition", "status":
		return map[string]interface{}{"status": newValue}, nil
	default:
		return nil, fmt.Errorf("unknown adjustment field %q", field)
	}
}

func toolItem(t Tool) Item {
	return Item{
		Type:            ItemTypeTool,
		ID:              t.ID,
		Name:            t.Name,
		Category:        t.Category,
		Location:        t.Location,
		Quantity:        t.Quantity,
		UnitCost:        t.UnitCost,
		QuantityTracked: true,
	}
}

func chemicalItem(c Chemical) Item {
	return Item{
		Type:            ItemTypeChemical,
		ID:              c.ID,
		Name:            c.Name,
		Category:        c.Category,
		Location:        c.Location,
		Quantity:        c.Quantity,
		UnitCost:        c.UnitCost,
		QuantityTracked: true,
	}
}
