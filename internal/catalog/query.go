package catalog

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// AnyCategory disables the category clause of a filter.
const AnyCategory = ""

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AnyPrice admits every non-negative price.
var AnyPrice = PriceRange{Min: 0, Max: math.Inf(1)}

// Contains reports whether price lies in the range, both ends included.
func (r PriceRange) Contains(price float64) bool {
	return r.Min <= price && price <= r.Max
}

// Validate rejects inverted or negative ranges.
func (r PriceRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min < 0 || r.Min > r.Max {
		return fmt.Errorf("%w: invalid price range [%v, %v]", apperr.ErrValidationFailed, r.Min, r.Max)
	}
	return nil
}

// PricePreset is a named range offered by the marketplace view.
type PricePreset struct {
	Label string     `json:"label"`
	Range PriceRange `json:"range"`
}

// PricePresets are the quick filters of the marketplace page.
var PricePresets = []PricePreset{
	{Label: "All", Range: PriceRange{Min: 0, Max: 10}},
	{Label: "< 1", Range: PriceRange{Min: 0, Max: 1}},
	{Label: "1 - 2", Range: PriceRange{Min: 1, Max: 2}},
	{Label: "2 - 5", Range: PriceRange{Min: 2, Max: 5}},
	{Label: "> 5", Range: PriceRange{Min: 5, Max: 10}},
}

// FilterParams holds the three filter clauses. The zero value of Range
// admits only free items, callers wanting no price clause use AnyPrice.
type FilterParams struct {
	Query    string
	Category string
	Range    PriceRange
}

// Filter returns the items satisfying every clause of p, in input order.
// The query clause is a case-insensitive substring match on the title, the
// description or the resolved creator name.
func Filter(items []Item, p FilterParams) []Item {
	query := strings.ToLower(p.Query)
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if !matchesQuery(item, query) {
			continue
		}
		if p.Category != AnyCategory && item.Category != p.Category {
			continue
		}
		if !p.Range.Contains(item.Price) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesQuery(item Item, query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Description), query) {
		return true
	}
	name, ok := item.CreatorName()
	return ok && strings.Contains(strings.ToLower(name), query)
}

// SortKey names a total order over items.
type SortKey string

const (
	SortRecent    SortKey = "recent"
	SortPriceAsc  SortKey = "priceAsc"
	SortPriceDesc SortKey = "priceDesc"
)

// ParseSortKey maps user input to a sort key. Empty input means SortRecent.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortRecent, nil
	case SortRecent, SortPriceAsc, SortPriceDesc:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sort key %q", apperr.ErrValidationFailed, s)
	}
}

// Sort returns a stably sorted copy of items. Items with equal keys keep
// their input order.
func Sort(items []Item, key SortKey) ([]Item, error) {
	var compare func(a, b Item) int
	switch key {
	case SortRecent:
		compare = func(a, b Item) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortPriceAsc:
		compare = func(a, b Item) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceDesc:
		compare = func(a, b Item) int { return cmp.Compare(b.Price, a.Price) }
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", apperr.ErrValidationFailed, key)
	}
	out := slices.Clone(items)
	slices.SortStableFunc(out, compare)
	return out, nil
}

// DistinctCategories returns the categories present in items in first-seen order.
func DistinctCategories(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0)
	for _, item := range items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	return out
}

// canonicalOrder is the order both load paths hand back: newest first,
// identifier ascending among equal timestamps.
func canonicalOrder(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
