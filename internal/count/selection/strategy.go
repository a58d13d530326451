// Package selection holds the closed set of item-selection strategies used
// to populate a count batch. Each strategy carries its own strongly-typed
// parameters and validates them itself; there is no generic filter bag.
package selection

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/inventory"
)

// Strategy picks the subset of a catalog snapshot that a batch will count.
// Select is deterministic for a fixed parameter set (including seed).
type Strategy interface {
	Method() string
	Select(catalog []inventory.Item) ([]inventory.Item, error)
}

// Params is the wire shape of a selection spec.
type Params struct {
	Method    string `json:"method"`
	ItemCount int    `json:"item_count,omitempty"`
	Category  string `json:"category,omitempty"`
	Location  string `json:"location,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
}

// New builds the strategy for p, validating the statically checkable
// parameters. Catalog-dependent checks (sample size vs. catalog size)
// happen in Select.
func New(p Params) (Strategy, error) {
	switch p.Method {
	case entity.MethodAll:
		return allStrategy{}, nil
	case entity.MethodRandom:
		if p.ItemCount < 1 {
			return nil, errs.Validation("item_count", "must be at least 1 for random selection")
		}
		return randomStrategy{count: p.ItemCount, seed: p.Seed}, nil
	case entity.MethodCategory:
		if strings.TrimSpace(p.Category) == "" {
			return nil, errs.Validation("category", "required for category selection")
		}
		return categoryStrategy{category: strings.TrimSpace(p.Category)}, nil
	case entity.MethodLocation:
		if strings.TrimSpace(p.Location) == "" {
			return nil, errs.Validation("location", "required for location selection")
		}
		return locationStrategy{location: strings.TrimSpace(p.Location)}, nil
	case entity.MethodABC:
		if p.ItemCount < 1 {
			return nil, errs.Validation("item_count", "must be at least 1 for abc selection")
		}
		return abcStrategy{count: p.ItemCount}, nil
	default:
		return nil, errs.Validation("method", "unknown selection method %q", p.Method)
	}
}

// sortedCopy returns catalog ordered by (type, id) so every strategy works
// from the same deterministic base regardless of adapter ordering.
func sortedCopy(catalog []inventory.Item) []inventory.Item {
	out := make([]inventory.Item, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type allStrategy struct{}

func (allStrategy) Method() string { return entity.MethodAll }

func (allStrategy) Select(catalog []inventory.Item) ([]inventory.Item, error) {
	return sortedCopy(catalog), nil
}

type randomStrategy struct {
	count int
	seed  int64
}

func (randomStrategy) Method() string { return entity.MethodRandom }

// Select draws a uniform sample of size count without replacement,
// deterministic for a fixed seed.
func (s randomStrategy) Select(catalog []inventory.Item) ([]inventory.Item, error) {
	if s.count > len(catalog) {
		return nil, errs.Validation("item_count", "%d exceeds catalog size %d", s.count, len(catalog))
	}
	base := sortedCopy(catalog)
	rng := rand.New(rand.NewSource(s.seed))
	picked := make([]inventory.Item, 0, s.count)
	for _, idx := range rng.Perm(len(base))[:s.count] {
		picked = append(picked, base[idx])
	}
	return picked, nil
}

type categoryStrategy struct {
	category string
}

func (categoryStrategy) Method() string { return entity.MethodCategory }

func (s categoryStrategy) Select(catalog []inventory.Item) ([]inventory.Item, error) {
	var out []inventory.Item
	for _, it := range sortedCopy(catalog) {
		if it.Category == s.category {
			out = append(out, it)
		}
	}
	return out, nil
}

type locationStrategy struct {
	location string
}

func (locationStrategy) Method() string { return entity.MethodLocation }

func (s locationStrategy) Select(catalog []inventory.Item) ([]inventory.Item, error) {
	var out []inventory.Item
	for _, it := range sortedCopy(catalog) {
		if it.Location == s.location {
			out = append(out, it)
		}
	}
	return out, nil
}

type abcStrategy struct {
	count int
}

func (abcStrategy) Method() string { return entity.MethodABC }

// Select ranks the catalog by extended value (on-hand quantity × unit cost)
// and takes the top N, the class-A slice of a classic ABC analysis.
func (s abcStrategy) Select(catalog []inventory.Item) ([]inventory.Item, error) {
	if s.count > len(catalog) {
		return nil, errs.Validation("item_count", "%d exceeds catalog size %d", s.count, len(catalog))
	}
	ranked := sortedCopy(catalog)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quantity*ranked[i].UnitCost > ranked[j].Quantity*ranked[j].UnitCost
	})
	return ranked[:s.count], nil
}
