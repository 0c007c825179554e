package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/pkg/config"
	"github.com/wattmart/gowatt/pkg/logger"
	"github.com/wattmart/gowatt/pkg/ratelimit"
)

// Client fetches monthly retail electricity prices from the EIA v2 API and
// maps them into marketplace listings. Every failure mode (missing API key,
// transport error, non-2xx status, empty payload) collapses into
// domain.ErrDataUnavailable so callers can degrade uniformly.
type Client struct {
	http       *resty.Client
	apiKey     string
	pageLength int
	limiter    *ratelimit.TokenBucket

	cacheTTL time.Duration
	mu       sync.Mutex
	cached   []domain.Listing
	cachedAt time.Time
}

func NewClient(cfg config.FeedConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       httpc,
		apiKey:     cfg.APIKey,
		pageLength: cfg.PageLength,
		// The EIA API meters requests per key. A small burst with a slow
		// refill keeps refresh storms from burning the quota.
		limiter:  ratelimit.NewTokenBucket(5, 1),
		cacheTTL: cfg.CacheTTL,
	}
}

// Listings returns one listing per region, latest period first choice,
// feed-order tie-break. Results are cached for the configured TTL so the
// gateway and TUI can refresh freely without hammering the feed.
func (c *Client) Listings(ctx context.Context) ([]domain.Listing, error) {
	c.mu.Lock()
	if c.cacheTTL > 0 && c.cached != nil && time.Since(c.cachedAt) < c.cacheTTL {
		out := append([]domain.Listing(nil), c.cached...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	rows, err := c.fetchRows(ctx)
	if err != nil {
		return nil, err
	}
	listings := mapListings(latestByRegion(rows))

	c.mu.Lock()
	c.cached = append([]domain.Listing(nil), listings...)
	c.cachedAt = time.Now()
	c.mu.Unlock()

	return listings, nil
}

// Invalidate drops the cached response so the next Listings call hits the
// feed. Called after a purchase, since trade availability may have changed.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

func (c *Client) fetchRows(ctx context.Context) ([]Row, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(domain.ErrDataUnavailable, "missing EIA API key")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(domain.ErrDataUnavailable, err.Error())
	}

	var envelope eiaEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":             c.apiKey,
			"frequency":           "monthly",
			"data[0]":             "price",
			"data[1]":             "sales",
			"sort[0][column]":     "period",
			"sort[0][direction]":  "desc",
			"offset":              "0",
			"length":              fmt.Sprintf("%d", c.pageLength),
		}).
		SetResult(&envelope).
		Get("")
	if err != nil {
		return nil, errors.Wrap(domain.ErrDataUnavailable, err.Error())
	}
	if !resp.IsSuccess() {
		return nil, errors.Wrapf(domain.ErrDataUnavailable, "feed returned %s", resp.Status())
	}
	if len(envelope.Response.Data) == 0 {
		return nil, errors.Wrap(domain.ErrDataUnavailable, "feed returned no rows")
	}

	rows := usableRows(envelope.Response.Data)
	logger.Debugf("[feed] fetched %d records, %d usable", len(envelope.Response.Data), len(rows))
	if len(rows) == 0 {
		return nil, errors.Wrap(domain.ErrDataUnavailable, "feed returned no usable rows")
	}
	return rows, nil
}

// mapListings converts deduped rows into the common listing shape. IDs are
// namespaced per row index, so they never collide with user listings and a
// fresh fetch regenerates them from scratch.
func mapListings(rows []Row) []domain.Listing {
	listings := make([]domain.Listing, 0, len(rows))
	for i, row := range rows {
		quantity := row.Sales
		if quantity.Sign() <= 0 {
			quantity = decimal.NewFromInt(1)
		}
		listings = append(listings, domain.Listing{
			ID:         fmt.Sprintf("eia-%s-%s-%d", row.Period, row.Region, i),
			Source:     domain.SourceFeed,
			TradeID:    uint64(i),
			Quantity:   quantity,
			Price:      row.Price.Round(2),
			Location:   row.RegionName,
			EnergyType: domain.EnergyUnspecified,
			Period:     displayPeriod(row.Period),
			CreatedAt:  time.Now(),
		})
	}
	return listings
}
