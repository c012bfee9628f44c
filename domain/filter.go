package domain

import (
	"sort"
	"strconv"
	"strings"
)

// SortOrder selects the single ordering key of a catalog query.
type SortOrder string

const (
	SortNewest        SortOrder = "newest"
	SortOldest        SortOrder = "oldest"
	SortPriceAsc      SortOrder = "price_asc"
	SortPriceDesc     SortOrder = "price_desc"
	SortFollowersAsc  SortOrder = "followers_asc"
	SortFollowersDesc SortOrder = "followers_desc"
)

// StatusAll disables the status predicate.
const StatusAll = "all"

func (o SortOrder) Valid() bool {
	switch o {
	case SortNewest, SortOldest, SortPriceAsc, SortPriceDesc, SortFollowersAsc, SortFollowersDesc:
		return true
	}
	return false
}

// ProductFilter is the catalog's filter state. Nil bounds mean "no bound".
type ProductFilter struct {
	Status       string    `json:"status"`
	Sort         SortOrder `json:"sort"`
	MaxPrice     *float64  `json:"max_price,omitempty"`
	MinFollowers *int64    `json:"min_followers,omitempty"`
}

// DefaultFilter returns the filter a fresh catalog view starts with.
func DefaultFilter() ProductFilter {
	return ProductFilter{Status: StatusAll, Sort: SortNewest}
}

// Normalize replaces unknown or empty values with defaults.
func (f ProductFilter) Normalize() ProductFilter {
	if f.Status == "" || (f.Status != StatusAll && !ProductStatus(f.Status).Valid()) {
		f.Status = StatusAll
	}
	if !f.Sort.Valid() {
		f.Sort = SortNewest
	}
	return f
}

// StatusPredicate returns the status to match, or "" when every status matches.
func (f ProductFilter) StatusPredicate() ProductStatus {
	if f.Status == "" || f.Status == StatusAll {
		return ""
	}
	return ProductStatus(f.Status)
}

// ParseFilter builds a filter from loosely typed query values. Blank or
// unparsable bounds are ignored.
func ParseFilter(status, sortOrder, maxPrice, minFollowers string) ProductFilter {
	f := ProductFilter{
		Status: strings.TrimSpace(status),
		Sort:   SortOrder(strings.TrimSpace(sortOrder)),
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(maxPrice), 64); err == nil {
		f.MaxPrice = &v
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(minFollowers), 10, 64); err == nil {
		f.MinFollowers = &v
	}
	return f.Normalize()
}

// Matches reports whether p satisfies every predicate of f.
func (f ProductFilter) Matches(p Product) bool {
	if status := f.StatusPredicate(); status != "" && p.Status != status {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinFollowers != nil && p.Followers < *f.MinFollowers {
		return false
	}
	return true
}

// ApplyFilter returns a new slice holding the products of src that match f,
// ordered by f.Sort. src is left untouched.
func ApplyFilter(src []Product, f ProductFilter) []Product {
	f = f.Normalize()
	out := make([]Product, 0, len(src))
	for _, p := range src {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	SortProducts(out, f.Sort)
	return out
}

// SortProducts orders products in place. Ties keep their relative order.
func SortProducts(products []Product, order SortOrder) {
	var less func(a, b Product) bool
	switch order {
	case SortOldest:
		less = func(a, b Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price > b.Price }
	case SortFollowersAsc:
		less = func(a, b Product) bool { return a.Followers < b.Followers }
	case SortFollowersDesc:
		less = func(a, b Product) bool { return a.Followers > b.Followers }
	default:
		less = func(a, b Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}
