package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingSource identifies where a listing came from.
type ListingSource string

const (
	// SourceUser marks listings created locally through the editor.
	SourceUser ListingSource = "user"
	// SourceFeed marks listings derived from the external pricing feed.
	// Feed listings are ephemeral: regenerated on every fetch, never persisted.
	SourceFeed ListingSource = "feed"
)

// EnergyType classifies the generation source of a user listing.
// Feed listings carry EnergyUnspecified since the feed does not report it.
type EnergyType string

const (
	EnergySolar       EnergyType = "solar"
	EnergyWind        EnergyType = "wind"
	EnergyHydro       EnergyType = "hydro"
	EnergyBiomass     EnergyType = "biomass"
	EnergyGeothermal  EnergyType = "geothermal"
	EnergyUnspecified EnergyType = "unspecified"
)

// Listing is an offer to sell a quantity of energy at a price.
// User and feed listings share this shape but live in disjoint ID namespaces
// ("user-<uuid>" vs "eia-<period>-<region>-<idx>") so a merge can never collide.
type Listing struct {
	ID         string          `json:"id"`
	Source     ListingSource   `json:"source"`
	TradeID    uint64          `json:"tradeId"`  // on-chain trade identifier passed to buyEnergy
	Quantity   decimal.Decimal `json:"quantity"` // MWH
	Price      decimal.Decimal `json:"price"`    // $ per kWH
	Location   string          `json:"location"`
	EnergyType EnergyType      `json:"energyType"`
	Period     string          `json:"period"` // display label, e.g. "Mar 2024"
	CreatedAt  time.Time       `json:"createdAt"`
}

// DisplayPrice renders the price with the fixed two decimal places the UI expects.
func (l *Listing) DisplayPrice() string {
	return l.Price.StringFixed(2)
}

// TotalCost is the amount owed for the whole listing: price × quantity.
// The repo uses the price-times-quantity convention everywhere; price alone is
// never charged.
func (l *Listing) TotalCost() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}
