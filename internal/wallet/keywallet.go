package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"

	"github.com/wattmart/gowatt/internal/domain"
	"github.com/wattmart/gowatt/pkg/config"
	"github.com/wattmart/gowatt/pkg/logger"
)

// KeyWallet is the local-key Provider: it signs with a private key loaded
// from config (raw hex or BIP-39 mnemonic + derivation path) and submits
// through an RPC endpoint.
type KeyWallet struct {
	rpcURL     string
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	address    common.Address

	mu        sync.Mutex
	client    *ethclient.Client
	listeners []func(common.Address)
}

// NewKeyWallet loads key material but does not dial; Connect does that.
// Missing key material is ErrWalletUnavailable, mirroring a browser without
// an injected provider.
func NewKeyWallet(cfg config.ChainConfig) (*KeyWallet, error) {
	pk, err := loadPrivateKey(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RPCURL == "" {
		return nil, errors.Wrap(domain.ErrWalletUnavailable, "no RPC endpoint configured")
	}
	return &KeyWallet{
		rpcURL:     cfg.RPCURL,
		chainID:    big.NewInt(cfg.ChainID),
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

func loadPrivateKey(cfg config.ChainConfig) (*ecdsa.PrivateKey, error) {
	if raw := strings.TrimSpace(cfg.PrivateKey); raw != "" {
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, errors.Wrap(domain.ErrWalletUnavailable, "invalid private key")
		}
		return pk, nil
	}
	if mnemonic := strings.TrimSpace(cfg.Mnemonic); mnemonic != "" {
		return deriveKey(mnemonic, cfg.DerivationPath)
	}
	return nil, errors.Wrap(domain.ErrWalletUnavailable, "no private key or mnemonic configured")
}

func deriveKey(mnemonic, derivationPath string) (*ecdsa.PrivateKey, error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, errors.Wrap(domain.ErrWalletUnavailable, "invalid mnemonic")
	}
	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, errors.Wrap(domain.ErrWalletUnavailable, "invalid derivation path")
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return nil, errors.Wrap(domain.ErrWalletUnavailable, "derive account")
	}
	pk, err := w.PrivateKey(acct)
	if err != nil {
		return nil, errors.Wrap(domain.ErrWalletUnavailable, "derive private key")
	}
	return pk, nil
}

// Connect dials the RPC endpoint, verifies the chain, and announces the
// account to subscribers. Safe to call repeatedly; reconnects replace the
// previous client.
func (w *KeyWallet) Connect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, w.rpcURL)
	if err != nil {
		return errors.Wrapf(domain.ErrWalletUnavailable, "dial %s: %v", w.rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return errors.Wrap(domain.ErrWalletUnavailable, "query chain id")
	}
	if w.chainID.Sign() > 0 && chainID.Cmp(w.chainID) != 0 {
		client.Close()
		return errors.Wrapf(domain.ErrWalletUnavailable,
			"chain id mismatch: node reports %s, config expects %s", chainID, w.chainID)
	}

	w.mu.Lock()
	if w.client != nil {
		w.client.Close()
	}
	w.client = client
	listeners := append(([]func(common.Address))(nil), w.listeners...)
	w.mu.Unlock()

	logger.Infof("[wallet] connected %s (chain %s)", w.address.Hex(), chainID)
	for _, fn := range listeners {
		fn(w.address)
	}
	return nil
}

func (w *KeyWallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client != nil
}

func (w *KeyWallet) Address() common.Address {
	return w.address
}

func (w *KeyWallet) OnAccountChange(fn func(common.Address)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *KeyWallet) conn() (*ethclient.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client == nil {
		return nil, errors.Wrap(domain.ErrWalletUnavailable, "wallet not connected")
	}
	return w.client, nil
}

func (w *KeyWallet) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := w.conn()
	if err != nil {
		return nil, err
	}
	return client.ChainID(ctx)
}

func (w *KeyWallet) Balance(ctx context.Context) (*big.Int, error) {
	client, err := w.conn()
	if err != nil {
		return nil, err
	}
	return client.BalanceAt(ctx, w.address, nil)
}

func (w *KeyWallet) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := w.conn()
	if err != nil {
		return nil, err
	}
	return client.SuggestGasPrice(ctx)
}

func (w *KeyWallet) EstimateGas(ctx context.Context, req TxRequest) (uint64, error) {
	client, err := w.conn()
	if err != nil {
		return 0, err
	}
	return client.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &req.To,
		Value: req.Value,
		Data:  req.Data,
	})
}

func (w *KeyWallet) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	client, err := w.conn()
	if err != nil {
		return nil, err
	}
	return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// SendTransaction signs req with the local key and submits it, returning the
// transaction hash.
func (w *KeyWallet) SendTransaction(ctx context.Context, req TxRequest) (string, error) {
	client, err := w.conn()
	if err != nil {
		return "", err
	}
	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", errors.Wrap(err, "fetch nonce")
	}

	tx := ethtypes.NewTransaction(nonce, req.To, req.Value, req.GasLimit, req.GasPrice, req.Data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(w.chainID), w.privateKey)
	if err != nil {
		return "", errors.Wrap(err, "sign transaction")
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", err
	}
	return signedTx.Hash().Hex(), nil
}
