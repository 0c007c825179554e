package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/internal/journal"
	"github.com/wattmart/gowatt/internal/marketplace"
	"github.com/wattmart/gowatt/internal/trade"
	"github.com/wattmart/gowatt/internal/wallet"
)

const testContractAddr = "0xA44b7fe1e95Ff74e03faEc086021B7988BAB92Da"

type body = map[string]any

type fakeFeed struct {
	listings []domain.Listing
	err      error
}

func (f *fakeFeed) Listings(ctx context.Context) ([]domain.Listing, error) {
	return f.listings, f.err
}

func (f *fakeFeed) Invalidate() {}

type fakeProvider struct {
	connected  bool
	connectErr error
	sendErr    error
	callResult []byte
	account    func(common.Address)
}

func (p *fakeProvider) Connect(ctx context.Context) error {
	if p.connectErr != nil {
		return p.connectErr
	}
	p.connected = true
	return nil
}

func (p *fakeProvider) Connected() bool         { return p.connected }
func (p *fakeProvider) Address() common.Address { return common.HexToAddress("0x02") }

func (p *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (p *fakeProvider) Balance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (p *fakeProvider) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (p *fakeProvider) EstimateGas(ctx context.Context, req wallet.TxRequest) (uint64, error) {
	return 90_000, nil
}

func (p *fakeProvider) SendTransaction(ctx context.Context, req wallet.TxRequest) (string, error) {
	if p.sendErr != nil {
		return "", p.sendErr
	}
	return "0xdeadbeef", nil
}

func (p *fakeProvider) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if p.callResult == nil {
		return nil, errors.New("no call result configured")
	}
	return p.callResult, nil
}

func (p *fakeProvider) OnAccountChange(fn func(common.Address)) { p.account = fn }

type testServer struct {
	server   *Server
	router   http.Handler
	feed     *fakeFeed
	provider *fakeProvider
	editor   *marketplace.Editor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	feed := &fakeFeed{}
	provider := &fakeProvider{connected: true}
	store := marketplace.NewMemListingStore()
	repo := marketplace.NewRepository(store, feed)
	editor := marketplace.NewEditor(store)

	jnl, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = jnl.Close() })

	contract, err := trade.NewContract(testContractAddr, provider)
	require.NoError(t, err)
	orch := trade.NewOrchestrator(provider, contract, jnl, 0)

	s := New(repo, editor, orch, contract, jnl, provider)
	t.Cleanup(s.Close)
	return &testServer{
		server:   s,
		router:   s.Router(),
		feed:     feed,
		provider: provider,
		editor:   editor,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func feedListing(id, location, period string) domain.Listing {
	return domain.Listing{
		ID:       id,
		Source:   domain.SourceFeed,
		Quantity: decimal.NewFromInt(100),
		Price:    decimal.NewFromFloat(16.5),
		Location: location,
		Period:   period,
	}
}

func TestListingsEndpointMergesSources(t *testing.T) {
	ts := newTestServer(t)
	ts.feed.listings = []domain.Listing{feedListing("eia-1", "Texas", "Mar 2024")}
	_, err := ts.editor.Create(decimal.NewFromInt(50), decimal.NewFromFloat(0.12), domain.EnergySolar, "Nevada")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 2)
	assert.Empty(t, resp.Warning)
	assert.Equal(t, "Nevada", resp.Listings[0].Location)
	assert.Equal(t, "Texas", resp.Listings[1].Location)
}

func TestListingsEndpointWarnsWhenFeedDown(t *testing.T) {
	ts := newTestServer(t)
	ts.feed.err = errors.New("upstream down")
	_, err := ts.editor.Create(decimal.NewFromInt(50), decimal.NewFromFloat(0.12), domain.EnergySolar, "Nevada")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Unable to load energy listings", resp.Warning)
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "Nevada", resp.Listings[0].Location)
}

func TestCreateListingEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/listings", body{
		"quantity":   "50",
		"price":      "0.12",
		"energyType": "solar",
		"location":   "Nevada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.SourceUser, created.Source)
	assert.Equal(t, "Nevada", created.Location)
}

func TestCreateListingValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/listings", body{
		"quantity": "50",
		"price":    "0.12",
		"location": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveListingEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created, err := ts.editor.Create(decimal.NewFromInt(50), decimal.NewFromFloat(0.12), domain.EnergySolar, "Nevada")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodDelete, "/api/listings/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/listings/user-missing", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPurchaseUnknownListing(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/purchases", body{"listingId": "user-missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseSuccess(t *testing.T) {
	ts := newTestServer(t)
	created, err := ts.editor.Create(decimal.NewFromInt(50), decimal.NewFromFloat(0.12), domain.EnergySolar, "Nevada")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/purchases", body{"listingId": created.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, domain.TxSuccess, tx.Status)
	assert.Equal(t, "0xdeadbeef", tx.Hash)

	rec = ts.do(t, http.MethodGet, "/api/purchases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, tx.ID, list.Transactions[0].ID)
}

func TestPurchaseRejectedMapsToConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.sendErr = errors.New("user rejected transaction")
	created, err := ts.editor.Create(decimal.NewFromInt(50), decimal.NewFromFloat(0.12), domain.EnergySolar, "Nevada")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/purchases", body{"listingId": created.ID})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error       string              `json:"error"`
		Transaction *domain.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, domain.TxFailed, resp.Transaction.Status)
}

func TestTradesTotalEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.callResult = common.LeftPadBytes(big.NewInt(5).Bytes(), 32)

	rec := ts.do(t, http.MethodGet, "/api/trades/total", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":"5"}`, rec.Body.String())
}

func TestTradeGetInvalidID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/trades/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradesByConsumerInvalidAddress(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/trades/consumer/nothex", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/wallet/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/wallet/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Wei string `json:"wei"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Wei)
}

func TestWalletConnectUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.connected = false
	ts.provider.connectErr = fmt.Errorf("%w: dial rpc: connection refused", domain.ErrWalletUnavailable)

	rec := ts.do(t, http.MethodPost, "/api/wallet/connect", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
