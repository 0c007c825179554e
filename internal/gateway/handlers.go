package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/internal/marketplace"
)

// listingsResponse carries the merged view plus an optional warning when the
// feed is down: the collection degrades instead of the request failing.
type listingsResponse struct {
	Listings []domain.Listing `json:"listings"`
	Warning  string           `json:"warning,omitempty"`
}

func (s *Server) handleListingsList(c *gin.Context) {
	merged, err := s.repo.Listings(c.Request.Context())

	query := c.Query("q")
	mode := marketplace.SortMode(c.DefaultQuery("sort", string(marketplace.SortNone)))
	resp := listingsResponse{Listings: marketplace.Filter(merged, query, mode)}
	if err != nil {
		resp.Warning = "Unable to load energy listings"
	}
	c.JSON(http.StatusOK, resp)
}

type createListingRequest struct {
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	EnergyType string          `json:"energyType"`
	Location   string          `json:"location"`
}

func (s *Server) handleListingCreate(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listing, err := s.editor.Create(req.Quantity, req.Price, domain.EnergyType(req.EnergyType), req.Location)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (s *Server) handleListingRemove(c *gin.Context) {
	// Removing an unknown ID is a no-op by contract, so this always 204s
	// unless the store itself fails.
	if err := s.editor.Remove(c.Param("listingID")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type purchaseRequest struct {
	ListingID string `json:"listingId" binding:"required"`
}

func (s *Server) handlePurchaseCreate(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merged, _ := s.repo.Listings(c.Request.Context())
	var listing *domain.Listing
	for i := range merged {
		if merged[i].ID == req.ListingID {
			listing = &merged[i]
			break
		}
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}

	tx, err := s.orch.Buy(c.Request.Context(), listing)
	if err != nil {
		if tx != nil {
			// The attempt settled as failed; return the record alongside the
			// classified error so the client can show both.
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "transaction": tx})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) handlePurchasesList(c *gin.Context) {
	n := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			n = parsed
		}
	}
	txs, err := s.journal.Recent(c.Request.Context(), n)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (s *Server) handleTradesTotal(c *gin.Context) {
	total, err := s.contract.TotalTrades(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total.String()})
}

func (s *Server) handleTradeGet(c *gin.Context) {
	tradeID, err := strconv.ParseUint(c.Param("tradeID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return
	}
	info, err := s.contract.Trade(c.Request.Context(), tradeID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleTradesByConsumer(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	ids, err := s.contract.TradesByConsumer(c.Request.Context(), common.HexToAddress(raw))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	c.JSON(http.StatusOK, gin.H{"tradeIds": out})
}

func (s *Server) handleWalletConnect(c *gin.Context) {
	if err := s.provider.Connect(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": s.provider.Address().Hex()})
}

func (s *Server) handleWalletBalance(c *gin.Context) {
	balance, err := s.provider.Balance(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": s.provider.Address().Hex(),
		"wei":     balance.String(),
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// statusFor maps the failure taxonomy onto HTTP statuses. Everything arrives
// pre-classified; unknown errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUserRejected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWalletUnavailable), errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTransactionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
