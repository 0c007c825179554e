package marketplace

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/pkg/logger"
)

// FeedSource is the external side of the merge: anything that can produce
// feed listings. Satisfied by *feed.Client and by test doubles.
type FeedSource interface {
	Listings(ctx context.Context) ([]domain.Listing, error)
	Invalidate()
}

// SortMode orders a filtered view.
type SortMode string

const (
	SortNone      SortMode = "none" // location ascending
	SortPriceLow  SortMode = "low"  // price ascending
	SortPriceHigh SortMode = "high" // price descending
)

// DefaultViewCap limits the default (query-less) view. Display cap only; the
// merged collection itself is never truncated.
const DefaultViewCap = 6

// Repository merges user-created listings with the external pricing feed into
// one searchable collection. It owns no state beyond the injected store and
// feed; every call re-reads both.
type Repository struct {
	store    ListingStore
	feed     FeedSource
	collator *collate.Collator
}

func NewRepository(store ListingStore, feed FeedSource) *Repository {
	return &Repository{
		store:    store,
		feed:     feed,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// Listings returns the merged collection, sorted by location ascending.
// A feed failure degrades to user listings only: the error is returned
// alongside the partial result so the caller can surface a message, and is
// never fatal.
func (r *Repository) Listings(ctx context.Context) ([]domain.Listing, error) {
	users, err := r.store.LoadAll()
	if err != nil {
		// Local storage failure degrades the same way the feed does: empty
		// collection plus a message, never a crash.
		logger.Errorf("[marketplace] load user listings: %v", err)
		users = []domain.Listing{}
	}

	external, feedErr := r.feed.Listings(ctx)
	if feedErr != nil {
		logger.Warnf("[marketplace] feed unavailable: %v", feedErr)
		external = nil
	}

	merged := make([]domain.Listing, 0, len(users)+len(external))
	merged = append(merged, users...)
	merged = append(merged, external...)

	sort.SliceStable(merged, func(i, j int) bool {
		return r.collator.CompareString(merged[i].Location, merged[j].Location) < 0
	})
	return merged, feedErr
}

// Refresh forces the next Listings call to hit the feed.
func (r *Repository) Refresh() {
	r.feed.Invalidate()
}

// Filter applies the search/sort contract to an already-merged collection.
// A listing matches when the query is a case-insensitive substring of its
// location or energy type. Without a query the default-sorted view is capped
// to the first DefaultViewCap entries.
func Filter(listings []domain.Listing, query string, mode SortMode) []domain.Listing {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if query == "" ||
			strings.Contains(strings.ToLower(l.Location), query) ||
			strings.Contains(strings.ToLower(string(l.EnergyType)), query) {
			out = append(out, l)
		}
	}

	switch mode {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[j].Price.LessThan(out[i].Price) })
	default:
		// Input arrives location-sorted from Listings; nothing to do.
	}

	if query == "" && mode == SortNone && len(out) > DefaultViewCap {
		out = out[:DefaultViewCap]
	}
	return out
}
