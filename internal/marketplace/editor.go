package marketplace

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/pkg/logger"
)

// Editor is the create/delete flow over the user listing store. Every
// mutation rewrites the full persisted collection immediately.
type Editor struct {
	store ListingStore
}

func NewEditor(store ListingStore) *Editor {
	return &Editor{store: store}
}

// Create validates the form input, prepends the new listing to the stored
// collection and persists it. An empty location is rejected with
// domain.ErrValidation before the store is touched.
func (e *Editor) Create(quantity, price decimal.Decimal, energyType domain.EnergyType, location string) (*domain.Listing, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.Wrap(domain.ErrValidation, "location is required")
	}
	if quantity.Sign() <= 0 {
		return nil, errors.Wrap(domain.ErrValidation, "quantity must be positive")
	}
	if price.Sign() <= 0 {
		return nil, errors.Wrap(domain.ErrValidation, "price must be positive")
	}
	if energyType == "" {
		energyType = domain.EnergyUnspecified
	}

	existing, err := e.store.LoadAll()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	listing := domain.Listing{
		ID:         "user-" + uuid.NewString(),
		Source:     domain.SourceUser,
		Quantity:   quantity,
		Price:      price.Round(2),
		Location:   location,
		EnergyType: energyType,
		Period:     now.Format("Jan 2006"),
		CreatedAt:  now,
	}

	updated := append([]domain.Listing{listing}, existing...)
	if err := e.store.SaveAll(updated); err != nil {
		return nil, err
	}
	logger.Infof("[marketplace] created listing %s (%s, %s MWH @ $%s/kWh)",
		listing.ID, listing.Location, listing.Quantity, listing.DisplayPrice())
	return &listing, nil
}

// Remove hard-deletes a user listing. Removing an unknown ID is a no-op, not
// an error, and leaves the stored collection untouched.
func (e *Editor) Remove(id string) error {
	existing, err := e.store.LoadAll()
	if err != nil {
		return err
	}
	updated := existing[:0:0]
	removed := false
	for _, l := range existing {
		if l.ID == id {
			removed = true
			continue
		}
		updated = append(updated, l)
	}
	if !removed {
		return nil
	}
	if err := e.store.SaveAll(updated); err != nil {
		return err
	}
	logger.Infof("[marketplace] removed listing %s", id)
	return nil
}
