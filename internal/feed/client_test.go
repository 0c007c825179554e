package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/pkg/config"
)

func testConfig(url string) config.FeedConfig {
	return config.FeedConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		PageLength: 100,
		Timeout:    5 * time.Second,
	}
}

func TestListingsMissingAPIKey(t *testing.T) {
	cfg := testConfig("http://localhost:0")
	cfg.APIKey = ""
	c := NewClient(cfg)

	_, err := c.Listings(context.Background())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestListingsMergesLatestPeriodPerRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"total":"3","data":[
			{"period":"2024-03","stateid":"CA","stateDescription":"California","price":16.5,"sales":120},
			{"period":"2024-01","stateid":"CA","stateDescription":"California","price":15.1,"sales":110},
			{"period":"2024-02","stateid":"TX","stateDescription":"Texas","price":-3}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	listings, err := c.Listings(context.Background())
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected exactly one listing, got %d", len(listings))
	}

	l := listings[0]
	if l.Location != "California" || l.Period != "Mar 2024" {
		t.Fatalf("expected California / Mar 2024, got %q / %q", l.Location, l.Period)
	}
	if l.Source != domain.SourceFeed {
		t.Fatalf("expected feed source, got %s", l.Source)
	}
	if l.DisplayPrice() != "16.50" {
		t.Fatalf("expected price 16.50, got %s", l.DisplayPrice())
	}
	if l.ID == "" || l.ID[:4] != "eia-" {
		t.Fatalf("expected namespaced id, got %q", l.ID)
	}
}

func TestListingsEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"data":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Listings(context.Background())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestListingsCacheAndInvalidate(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"data":[
			{"period":"2024-03","stateid":"CA","stateDescription":"California","price":16.5}
		]}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CacheTTL = time.Hour
	c := NewClient(cfg)

	for i := 0; i < 3; i++ {
		if _, err := c.Listings(context.Background()); err != nil {
			t.Fatalf("Listings: %v", err)
		}
	}
	if hits != 1 {
		t.Fatalf("expected one upstream hit with warm cache, got %d", hits)
	}

	c.Invalidate()
	if _, err := c.Listings(context.Background()); err != nil {
		t.Fatalf("Listings after invalidate: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected refetch after invalidate, got %d hits", hits)
	}
}
