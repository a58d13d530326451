package service

import (
	"strings"

	"github.com/cribware/stocktake/internal/count/entity"
)

// Discrepancy classifies one axis of mismatch between the expected baseline
// and the observed result.
type Discrepancy string

const (
	DiscrepancyNone      Discrepancy = "none"
	DiscrepancyQuantity  Discrepancy = "quantity"
	DiscrepancyLocation  Discrepancy = "location"
	DiscrepancyCondition Discrepancy = "condition"
	DiscrepancyMissing   Discrepancy = "missing"
	DiscrepancyExtra     Discrepancy = "extra"
)

// severityOrder ranks classifications for single-badge display:
// missing > quantity > location > condition > extra.
var severityOrder = map[Discrepancy]int{
	DiscrepancyMissing:   5,
	DiscrepancyQuantity:  4,
	DiscrepancyLocation:  3,
	DiscrepancyCondition: 2,
	DiscrepancyExtra:     1,
	DiscrepancyNone:      0,
}

// Classify compares a count item's expected baseline against its result and
// returns every discrepancy that applies. It is a pure function: no storage,
// no side effects, deterministic for a fixed input pair.
//
// extra is reported only when the over-count is the sole defect; an
// over-count combined with any other mismatch is plain quantity drift.
func Classify(item *entity.CountItem, result *entity.CountResult) []Discrepancy {
	var found []Discrepancy

	missing := result.Condition == entity.ConditionMissing
	quantityOff := item.QuantityTracked && result.ActualQuantity != item.ExpectedQuantity
	locationOff := normalizeLocation(result.ActualLocation) != normalizeLocation(item.ExpectedLocation)
	conditionOff := result.Condition != entity.ConditionGood

	if missing {
		found = append(found, DiscrepancyMissing)
	}
	if quantityOff {
		found = append(found, DiscrepancyQuantity)
	}
	if locationOff {
		found = append(found, DiscrepancyLocation)
	}
	if conditionOff {
		found = append(found, DiscrepancyCondition)
	}
	if item.QuantityTracked &&
		result.ActualQuantity > item.ExpectedQuantity &&
		!missing && !locationOff && !conditionOff {
		found = append(found, DiscrepancyExtra)
	}

	if len(found) == 0 {
		return []Discrepancy{DiscrepancyNone}
	}
	return found
}

// MostSevere picks the classification for single-badge display.
func MostSevere(ds []Discrepancy) Discrepancy {
	best := DiscrepancyNone
	for _, d := range ds {
		if severityOrder[d] > severityOrder[best] {
			best = d
		}
	}
	return best
}

// IsNominal reports whether the classification set means an exact match.
func IsNominal(ds []Discrepancy) bool {
	return len(ds) == 1 && ds[0] == DiscrepancyNone
}

func normalizeLocation(loc string) string {
	return strings.ToLower(strings.TrimSpace(loc))
}
