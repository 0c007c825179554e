package gateway

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/wattmart/gowatt/internal/journal"
	"github.com/wattmart/gowatt/internal/marketplace"
	"github.com/wattmart/gowatt/internal/trade"
	"github.com/wattmart/gowatt/internal/wallet"
)

// Server is the local HTTP surface over the marketplace: listing browse and
// edit, purchase execution, journal reads, and a websocket that pushes
// refresh events so a page-style client can re-render when external state
// changes.
type Server struct {
	repo     *marketplace.Repository
	editor   *marketplace.Editor
	orch     *trade.Orchestrator
	contract *trade.Contract
	journal  *journal.Journal
	provider wallet.Provider
	hub      *hub
}

func New(
	repo *marketplace.Repository,
	editor *marketplace.Editor,
	orch *trade.Orchestrator,
	contract *trade.Contract,
	jnl *journal.Journal,
	provider wallet.Provider,
) *Server {
	s := &Server{
		repo:     repo,
		editor:   editor,
		orch:     orch,
		contract: contract,
		journal:  jnl,
		provider: provider,
		hub:      newHub(),
	}

	// A confirmed purchase may have consumed an on-chain trade, and an
	// account change invalidates everything the client shows. Both force a
	// full refresh, mirroring the original page reload.
	orch.OnPurchase(func() {
		repo.Refresh()
		s.hub.broadcast(event{Type: "listings_refreshed"})
	})
	provider.OnAccountChange(func(addr common.Address) {
		repo.Refresh()
		s.hub.broadcast(event{Type: "account_changed", Account: addr.Hex()})
	})
	return s
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/ws", s.handleWS)

	api := r.Group("/api")

	listings := api.Group("/listings")
	listings.GET("", s.handleListingsList)
	listings.POST("", s.handleListingCreate)
	listings.DELETE("/:listingID", s.handleListingRemove)

	purchases := api.Group("/purchases")
	purchases.GET("", s.handlePurchasesList)
	purchases.POST("", s.handlePurchaseCreate)

	trades := api.Group("/trades")
	trades.GET("/total", s.handleTradesTotal)
	trades.GET("/:tradeID", s.handleTradeGet)
	trades.GET("/consumer/:address", s.handleTradesByConsumer)

	wlt := api.Group("/wallet")
	wlt.POST("/connect", s.handleWalletConnect)
	wlt.GET("/balance", s.handleWalletBalance)

	return r
}

// Close shuts down the websocket hub.
func (s *Server) Close() {
	s.hub.close()
}
