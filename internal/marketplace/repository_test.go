package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wattmart/gowatt/internal/domain"
)

type fakeFeed struct {
	listings []domain.Listing
	err      error

	invalidated bool
}

func (f *fakeFeed) Listings(ctx context.Context) ([]domain.Listing, error) {
	return f.listings, f.err
}

func (f *fakeFeed) Invalidate() { f.invalidated = true }

func listing(id, location string, energy domain.EnergyType, price string) domain.Listing {
	p, _ := decimal.NewFromString(price)
	return domain.Listing{
		ID:         id,
		Source:     domain.SourceFeed,
		Quantity:   decimal.NewFromInt(100),
		Price:      p,
		Location:   location,
		EnergyType: energy,
	}
}

func TestListingsMergesAndSortsByLocation(t *testing.T) {
	store := NewMemListingStore()
	_ = store.SaveAll([]domain.Listing{
		listing("user-1", "Utah", domain.EnergySolar, "0.12"),
	})
	feed := &fakeFeed{listings: []domain.Listing{
		listing("eia-1", "Texas", domain.EnergyUnspecified, "11.20"),
		listing("eia-2", "California", domain.EnergyUnspecified, "16.50"),
	}}

	repo := NewRepository(store, feed)
	merged, err := repo.Listings(context.Background())
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(merged))
	}
	want := []string{"California", "Texas", "Utah"}
	for i, loc := range want {
		if merged[i].Location != loc {
			t.Fatalf("position %d: expected %s, got %s", i, loc, merged[i].Location)
		}
	}
}

func TestListingsDegradesWhenFeedFails(t *testing.T) {
	store := NewMemListingStore()
	_ = store.SaveAll([]domain.Listing{
		listing("user-1", "Utah", domain.EnergySolar, "0.12"),
	})
	feed := &fakeFeed{err: errors.New("boom")}

	repo := NewRepository(store, feed)
	merged, err := repo.Listings(context.Background())
	if err == nil {
		t.Fatal("expected the feed error to be surfaced")
	}
	if len(merged) != 1 || merged[0].ID != "user-1" {
		t.Fatalf("expected user listings to survive, got %v", merged)
	}
}

func TestRefreshInvalidatesFeed(t *testing.T) {
	feed := &fakeFeed{}
	repo := NewRepository(NewMemListingStore(), feed)
	repo.Refresh()
	if !feed.invalidated {
		t.Fatal("expected Refresh to invalidate the feed cache")
	}
}

func TestFilterMatchesEnergyType(t *testing.T) {
	listings := []domain.Listing{
		listing("a", "Arizona", domain.EnergySolar, "1.00"),
		listing("b", "Boston", domain.EnergyWind, "2.00"),
		listing("c", "Chicago", domain.EnergyHydro, "3.00"),
	}

	for _, mode := range []SortMode{SortNone, SortPriceLow, SortPriceHigh} {
		got := Filter(listings, "wind", mode)
		if len(got) != 1 || got[0].ID != "b" {
			t.Fatalf("sort=%s: expected only the wind listing, got %v", mode, got)
		}
	}
}

func TestFilterMatchesLocationCaseInsensitive(t *testing.T) {
	listings := []domain.Listing{
		listing("a", "California", domain.EnergyUnspecified, "1.00"),
		listing("b", "Texas", domain.EnergyUnspecified, "2.00"),
	}
	got := Filter(listings, "CALIF", SortNone)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected the California listing, got %v", got)
	}
}

func TestFilterSortsByPrice(t *testing.T) {
	listings := []domain.Listing{
		listing("a", "A", domain.EnergyUnspecified, "3.00"),
		listing("b", "B", domain.EnergyUnspecified, "1.00"),
		listing("c", "C", domain.EnergyUnspecified, "2.00"),
	}

	low := Filter(listings, "", SortPriceLow)
	if low[0].ID != "b" || low[2].ID != "a" {
		t.Fatalf("expected ascending prices, got %v", low)
	}
	high := Filter(listings, "", SortPriceHigh)
	if high[0].ID != "a" || high[2].ID != "b" {
		t.Fatalf("expected descending prices, got %v", high)
	}
}

func TestFilterCapsDefaultView(t *testing.T) {
	var listings []domain.Listing
	for i := 0; i < 10; i++ {
		listings = append(listings, listing(string(rune('a'+i)), "Loc", domain.EnergyUnspecified, "1.00"))
	}

	got := Filter(listings, "", SortNone)
	if len(got) != DefaultViewCap {
		t.Fatalf("expected the default view capped at %d, got %d", DefaultViewCap, len(got))
	}

	// A query lifts the cap: it is a display default, not a data limit.
	all := Filter(listings, "loc", SortNone)
	if len(all) != 10 {
		t.Fatalf("expected all matches with a query, got %d", len(all))
	}
}
