package selection

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/inventory"
)

func testCatalog(n int) []inventory.Item {
	items := make([]inventory.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, inventory.Item{
			Type:            inventory.ItemTypeTool,
			ID:              fmt.Sprintf("tool-%03d", i),
			Name:            fmt.Sprintf("Tool %d", i),
			Category:        "hand",
			Location:        "A1",
			Quantity:        float64(i),
			UnitCost:        1,
			QuantityTracked: true,
		})
	}
	return items
}

func TestAllStrategySelectsEverything(t *testing.T) {
	s, err := New(Params{Method: entity.MethodAll})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	catalog := testCatalog(20)
	picked, err := s.Select(catalog)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(picked) != 20 {
		t.Errorf("Expected 20 items, got %d", len(picked))
	}
}

func TestRandomStrategyDeterministicForSeed(t *testing.T) {
	catalog := testCatalog(50)
	s1, err := New(Params{Method: entity.MethodRandom, ItemCount: 10, Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s2, _ := New(Params{Method: entity.MethodRandom, ItemCount: 10, Seed: 42})

	first, err := s1.Select(catalog)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	second, _ := s2.Select(catalog)

	if !reflect.DeepEqual(first, second) {
		t.Error("Same seed produced different samples")
	}

	// A different seed should (for this catalog and sizes) differ.
	s3, _ := New(Params{Method: entity.MethodRandom, ItemCount: 10, Seed: 43})
	third, _ := s3.Select(catalog)
	if reflect.DeepEqual(first, third) {
		t.Error("Different seeds produced identical samples")
	}
}

func TestRandomStrategyWithoutReplacement(t *testing.T) {
	catalog := testCatalog(30)
	s, _ := New(Params{Method: entity.MethodRandom, ItemCount: 30, Seed: 7})
	picked, err := s.Select(catalog)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	seen := map[string]bool{}
	for _, it := range picked {
		if seen[it.ID] {
			t.Fatalf("Item %s picked twice", it.ID)
		}
		seen[it.ID] = true
	}
	if len(seen) != 30 {
		t.Errorf("Expected 30 distinct items, got %d", len(seen))
	}
}

func TestRandomStrategyRejectsOversizedSample(t *testing.T) {
	s, _ := New(Params{Method: entity.MethodRandom, ItemCount: 10, Seed: 1})
	_, err := s.Select(testCatalog(5))
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestCategoryStrategyFilters(t *testing.T) {
	catalog := testCatalog(10)
	catalog[3].Category = "power"
	catalog[7].Category = "power"

	s, err := New(Params{Method: entity.MethodCategory, Category: "power"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	picked, err := s.Select(catalog)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(picked) != 2 {
		t.Fatalf("Expected 2 power items, got %d", len(picked))
	}
	for _, it := range picked {
		if it.Category != "power" {
			t.Errorf("Unexpected category %q", it.Category)
		}
	}
}

func TestLocationStrategyFilters(t *testing.T) {
	catalog := testCatalog(10)
	catalog[0].Location = "B9"

	s, _ := New(Params{Method: entity.MethodLocation, Location: "B9"})
	picked, err := s.Select(catalog)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(picked) != 1 || picked[0].Location != "B9" {
		t.Errorf("Expected the single B9 item, got %v", picked)
	}
}

func TestABCStrategyRanksByExtendedValue(t *testing.T) {
	catalog := []inventory.Item{
		{Type: inventory.ItemTypeTool, ID: "t1", Quantity: 2, UnitCost: 100},  // 200
		{Type: inventory.ItemTypeTool, ID: "t2", Quantity: 50, UnitCost: 10},  // 500
		{Type: inventory.ItemTypeTool, ID: "t3", Quantity: 1, UnitCost: 1000}, // 1000
		{Type: inventory.ItemTypeTool, ID: "t4", Quantity: 10, UnitCost: 1},   // 10
	}
	s, err := New(Params{Method: entity.MethodABC, ItemCount: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	picked, err := s.Select(catalog)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(picked) != 2 || picked[0].ID != "t3" || picked[1].ID != "t2" {
		t.Errorf("Expected [t3 t2], got %v", picked)
	}
}

func TestNewValidatesParams(t *testing.T) {
	cases := []Params{
		{Method: "nope"},
		{Method: entity.MethodRandom},                // no count
		{Method: entity.MethodRandom, ItemCount: -1}, // negative
		{Method: entity.MethodCategory},              // no category
		{Method: entity.MethodCategory, Category: "  "},
		{Method: entity.MethodLocation}, // no location
		{Method: entity.MethodABC},      // no count
	}
	for _, p := range cases {
		_, err := New(p)
		var ve *errs.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("New(%+v): expected ValidationError, got %v", p, err)
		}
	}
}

func TestSelectionIsStableAcrossAdapterOrdering(t *testing.T) {
	catalog := testCatalog(20)
	reversed := make([]inventory.Item, len(catalog))
	for i, it := range catalog {
		reversed[len(catalog)-1-i] = it
	}

	s1, _ := New(Params{Method: entity.MethodRandom, ItemCount: 5, Seed: 99})
	s2, _ := New(Params{Method: entity.MethodRandom, ItemCount: 5, Seed: 99})

	a, _ := s1.Select(catalog)
	b, _ := s2.Select(reversed)
	if !reflect.DeepEqual(a, b) {
		t.Error("Adapter ordering leaked into the sample")
	}
}
