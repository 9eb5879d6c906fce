package blockchain

import (
	"context"
	"math/big"
	"time"

	"github.com/dxsocial/backend/internal/models"
)

// SubscriptionInfo is the on-chain subscription of a wallet.
type SubscriptionInfo struct {
	Level      int        `json:"level"`
	Expiration *time.Time `json:"expiration"`
	IsActive   bool       `json:"isActive"`
}

// MintResult describes a confirmed NFTMedia.mintNFT call.
type MintResult struct {
	TokenID  string
	Creator  string
	TokenURI string
	TxHash   string
}

// Chain is the contract surface the services use.
type Chain interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	GetSubscription(ctx context.Context, address string) (*SubscriptionInfo, error)
	SubscriptionFee(ctx context.Context, level int) (*big.Int, error)
	TokenCounter(ctx context.Context) (uint64, error)
	NFTState(ctx context.Context, tokenID string) (*models.ChainNFTState, error)
	MintNFT(ctx context.Context, tokenURI, mediaType string, royaltyBps int64) (*MintResult, error)
	MintTokens(ctx context.Context, to string, amount *big.Int) (string, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
	FilterEvents(ctx context.Context, from, to uint64) ([]Event, error)
	MarketplaceAddress() string
}

// subscriptionFromChain converts the raw getSubscription output.
func subscriptionFromChain(level uint8, expiration *big.Int, now time.Time) *SubscriptionInfo {
	info := &SubscriptionInfo{Level: int(level)}
	if expiration != nil && expiration.Sign() > 0 {
		exp := time.Unix(expiration.Int64(), 0).UTC()
		info.Expiration = &exp
		info.IsActive = exp.After(now)
	}
	return info
}
