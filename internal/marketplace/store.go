package marketplace

import (
	"encoding/json"
	"sync"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/pkg/kvstore"
)

// ListingStore persists the user-created listings. The whole collection is
// read and written as one unit (there are no partial updates), so the
// persisted state can never diverge from what the last writer saw.
type ListingStore interface {
	LoadAll() ([]domain.Listing, error)
	SaveAll(listings []domain.Listing) error
}

const listingsKey = "listings:user"

// KVListingStore keeps the serialized listing array in a single kvstore slot.
type KVListingStore struct {
	kv *kvstore.Store
}

func NewKVListingStore(kv *kvstore.Store) *KVListingStore {
	return &KVListingStore{kv: kv}
}

func (s *KVListingStore) LoadAll() ([]domain.Listing, error) {
	b, found, err := s.kv.Get(listingsKey)
	if err != nil {
		return nil, err
	}
	if !found || len(b) == 0 {
		return []domain.Listing{}, nil
	}
	var listings []domain.Listing
	if err := json.Unmarshal(b, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *KVListingStore) SaveAll(listings []domain.Listing) error {
	if listings == nil {
		listings = []domain.Listing{}
	}
	b, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return s.kv.Set(listingsKey, b)
}

// MemListingStore is an in-memory ListingStore for tests.
type MemListingStore struct {
	mu       sync.Mutex
	listings []domain.Listing
}

func NewMemListingStore() *MemListingStore {
	return &MemListingStore{listings: []domain.Listing{}}
}

func (s *MemListingStore) LoadAll() ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Listing(nil), s.listings...), nil
}

func (s *MemListingStore) SaveAll(listings []domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append([]domain.Listing(nil), listings...)
	return nil
}
