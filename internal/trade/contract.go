package trade

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/wattmart/gowatt/internal/wallet"
)

// Contract binds the fixed energy-trade contract interface: the payable
// buyEnergy call plus the informational reads. All chain access goes through
// the injected wallet provider.
type Contract struct {
	provider wallet.Provider
	address  common.Address
	abi      abi.ABI
}

// TradeInfo is the on-chain view of one trade.
type TradeInfo struct {
	TradeID      uint64         `json:"tradeId"`
	Producer     common.Address `json:"producer"`
	EnergyAmount *big.Int       `json:"energyAmount"`
	PricePerUnit *big.Int       `json:"pricePerUnit"`
	Consumer     common.Address `json:"consumer"`
	Executed     bool           `json:"executed"`
}

func NewContract(address string, provider wallet.Provider) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(EnergyTradeABI))
	if err != nil {
		return nil, fmt.Errorf("parse energy trade ABI: %w", err)
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address: %s", address)
	}
	return &Contract{
		provider: provider,
		address:  common.HexToAddress(address),
		abi:      parsed,
	}, nil
}

func (c *Contract) Address() common.Address {
	return c.address
}

// BuyEnergyCalldata packs buyEnergy(tradeId).
func (c *Contract) BuyEnergyCalldata(tradeID uint64) ([]byte, error) {
	data, err := c.abi.Pack("buyEnergy", new(big.Int).SetUint64(tradeID))
	if err != nil {
		return nil, fmt.Errorf("pack buyEnergy: %w", err)
	}
	return data, nil
}

// ListEnergyCalldata packs listEnergy(energyAmount, pricePerUnit).
func (c *Contract) ListEnergyCalldata(energyAmount, pricePerUnit *big.Int) ([]byte, error) {
	data, err := c.abi.Pack("listEnergy", energyAmount, pricePerUnit)
	if err != nil {
		return nil, fmt.Errorf("pack listEnergy: %w", err)
	}
	return data, nil
}

// TotalTrades reads getTotalTrades().
func (c *Contract) TotalTrades(ctx context.Context) (*big.Int, error) {
	data, err := c.abi.Pack("getTotalTrades")
	if err != nil {
		return nil, fmt.Errorf("pack getTotalTrades: %w", err)
	}
	result, err := c.provider.CallContract(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("call getTotalTrades: %w", err)
	}
	var total *big.Int
	if err := c.abi.UnpackIntoInterface(&total, "getTotalTrades", result); err != nil {
		return nil, fmt.Errorf("unpack getTotalTrades: %w", err)
	}
	return total, nil
}

// Trade reads getTrade(tradeId).
func (c *Contract) Trade(ctx context.Context, tradeID uint64) (*TradeInfo, error) {
	data, err := c.abi.Pack("getTrade", new(big.Int).SetUint64(tradeID))
	if err != nil {
		return nil, fmt.Errorf("pack getTrade: %w", err)
	}
	result, err := c.provider.CallContract(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("call getTrade: %w", err)
	}
	values, err := c.abi.Unpack("getTrade", result)
	if err != nil {
		return nil, fmt.Errorf("unpack getTrade: %w", err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("getTrade returned %d values, want 5", len(values))
	}
	info := &TradeInfo{TradeID: tradeID}
	var ok bool
	if info.Producer, ok = values[0].(common.Address); !ok {
		return nil, fmt.Errorf("getTrade: unexpected producer type %T", values[0])
	}
	if info.EnergyAmount, ok = values[1].(*big.Int); !ok {
		return nil, fmt.Errorf("getTrade: unexpected energyAmount type %T", values[1])
	}
	if info.PricePerUnit, ok = values[2].(*big.Int); !ok {
		return nil, fmt.Errorf("getTrade: unexpected pricePerUnit type %T", values[2])
	}
	if info.Consumer, ok = values[3].(common.Address); !ok {
		return nil, fmt.Errorf("getTrade: unexpected consumer type %T", values[3])
	}
	if info.Executed, ok = values[4].(bool); !ok {
		return nil, fmt.Errorf("getTrade: unexpected executed type %T", values[4])
	}
	return info, nil
}

// TradesByConsumer reads getTradesByConsumer(consumer).
func (c *Contract) TradesByConsumer(ctx context.Context, consumer common.Address) ([]*big.Int, error) {
	data, err := c.abi.Pack("getTradesByConsumer", consumer)
	if err != nil {
		return nil, fmt.Errorf("pack getTradesByConsumer: %w", err)
	}
	result, err := c.provider.CallContract(ctx, c.address, data)
	if err != nil {
		return nil, fmt.Errorf("call getTradesByConsumer: %w", err)
	}
	var ids []*big.Int
	if err := c.abi.UnpackIntoInterface(&ids, "getTradesByConsumer", result); err != nil {
		return nil, fmt.Errorf("unpack getTradesByConsumer: %w", err)
	}
	return ids, nil
}
