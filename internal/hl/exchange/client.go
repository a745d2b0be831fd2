package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dual-dex-bot/internal/httpx"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.hyperliquid.xyz"

// NonceStore persists the last nonce so restarts never reuse one.
type NonceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Client struct {
	baseURL   string
	requester *httpx.Requester
	signer    *Signer
	vault     *common.Address
	log       *zap.Logger

	lastNonce     atomic.Uint64
	lastPersisted atomic.Uint64
	nonceStore    NonceStore
	nonceKey      string
	persistMu     sync.Mutex
	persistWarned atomic.Bool
}

func NewClient(baseURL string, requester *httpx.Requester, signer *Signer, vaultAddress string, log *zap.Logger) (*Client, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if requester == nil {
		requester = &httpx.Requester{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	var vault *common.Address
	if strings.TrimSpace(vaultAddress) != "" {
		addr := common.HexToAddress(vaultAddress)
		vault = &addr
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		requester: requester,
		signer:    signer,
		vault:     vault,
		log:       log,
	}, nil
}

// PlaceOrder signs and submits a single order and returns its parsed status.
func (c *Client) PlaceOrder(ctx context.Context, order OrderWire) (OrderStatus, error) {
	action := OrderAction{Type: "order", Orders: []OrderWire{order}, Grouping: "na"}
	nonce := c.nextNonce()
	sig, err := c.signer.SignOrderAction(action, nonce, c.vault)
	if err != nil {
		return OrderStatus{}, err
	}
	var vault *string
	if c.vault != nil {
		addr := c.vault.Hex()
		vault = &addr
	}
	payload := SignedAction{Action: action, Nonce: nonce, Signature: sig, VaultAddress: vault}
	var resp map[string]any
	if err := c.requester.Do(ctx, http.MethodPost, c.baseURL+"/exchange", payload, &resp); err != nil {
		return OrderStatus{}, err
	}
	return ParseOrderResponse(resp)
}

func (c *Client) InitNonceStore(ctx context.Context, store NonceStore) error {
	if store == nil {
		return nil
	}
	key := nonceStoreKey(c.baseURL, c.signer, c.vault)
	seed := uint64(time.Now().UnixMilli())
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid stored nonce %q: %w", raw, err)
		}
		seed = max(seed, parsed)
	}
	seed = max(seed, c.lastNonce.Load())
	c.nonceStore = store
	c.nonceKey = key
	c.lastNonce.Store(seed)
	c.lastPersisted.Store(seed)
	return nil
}

// nextNonce is max(now ms, last+1) and safe for concurrent callers.
func (c *Client) nextNonce() uint64 {
	now := uint64(time.Now().UnixMilli())
	for {
		prev := c.lastNonce.Load()
		next := max(now, prev+1)
		if c.lastNonce.CompareAndSwap(prev, next) {
			c.persistNonce(next)
			return next
		}
	}
}

func (c *Client) persistNonce(nonce uint64) {
	if c.nonceStore == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if nonce <= c.lastPersisted.Load() {
		return
	}
	if err := c.nonceStore.Set(context.Background(), c.nonceKey, strconv.FormatUint(nonce, 10)); err != nil {
		if c.persistWarned.CompareAndSwap(false, true) {
			c.log.Warn("nonce persistence failed", zap.String("nonce_key", c.nonceKey), zap.Error(err))
		}
		return
	}
	c.lastPersisted.Store(nonce)
	c.persistWarned.Store(false)
}

func nonceStoreKey(baseURL string, signer *Signer, vault *common.Address) string {
	addr := "unknown"
	if signer != nil {
		addr = strings.ToLower(signer.Address().Hex())
	}
	v := "none"
	if vault != nil {
		v = strings.ToLower(vault.Hex())
	}
	return fmt.Sprintf("hyperliquid:nonce:%s:%s:%s", strings.ToLower(baseURL), addr, v)
}
