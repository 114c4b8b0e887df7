package record

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// filterRecords keeps the records that pass both the favorites and the
// search filter. Search is a case-insensitive substring match on ShopName.
func filterRecords(records []*types.Record, f types.ListFilter) []*types.Record {
	query := strings.ToLower(f.SearchText)
	out := make([]*types.Record, 0, len(records))
	for _, r := range records {
		if f.FavoritesOnly && !r.Favorite {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.ShopName), query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sortRecords orders records in place. The sort is stable, so ties keep the
// store's key order.
func sortRecords(records []*types.Record, key types.SortKey, locale language.Tag) {
	var less func(a, b *types.Record) bool
	switch key {
	case types.SortOldest:
		less = func(a, b *types.Record) bool { return a.CreatedAt < b.CreatedAt }
	case types.SortRatingHigh:
		less = func(a, b *types.Record) bool { return a.Rating > b.Rating }
	case types.SortRatingLow:
		less = func(a, b *types.Record) bool { return a.Rating < b.Rating }
	case types.SortName:
		// Collators keep scratch state; one per sort.
		c := collate.New(locale)
		less = func(a, b *types.Record) bool { return c.CompareString(a.ShopName, b.ShopName) < 0 }
	case types.SortFavorite:
		less = func(a, b *types.Record) bool { return a.Favorite && !b.Favorite }
	default:
		less = func(a, b *types.Record) bool { return a.CreatedAt > b.CreatedAt }
	}
	sort.SliceStable(records, func(i, j int) bool { return less(records[i], records[j]) })
}
