package types

// SortKey selects the ordering of a record listing.
type SortKey string

// Sort keys. An empty SortKey sorts like SortNewest.
const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortRatingHigh SortKey = "rating-high"
	SortRatingLow  SortKey = "rating-low"
	SortName       SortKey = "name"
	SortFavorite   SortKey = "favorite"
)

// SortKeys lists every sort key in display order.
var SortKeys = []SortKey{
	SortNewest,
	SortOldest,
	SortRatingHigh,
	SortRatingLow,
	SortName,
	SortFavorite,
}

// Valid reports whether k is a known sort key or empty.
func (k SortKey) Valid() bool {
	if k == "" {
		return true
	}
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// ListFilter narrows and orders a record listing. The zero value lists every
// record, newest first.
type ListFilter struct {
	SearchText    string
	FavoritesOnly bool
	SortKey       SortKey
}
