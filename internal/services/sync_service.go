package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	// EventsCheckpoint is the sync_state key of the event poller.
	EventsCheckpoint = "events"

	eventLookback    = 24 * time.Hour
	nftStaleAfter    = time.Hour
	expirationSlack  = time.Hour
	defaultWindow    = 2000
	defaultBlockTime = 15 * time.Second
)

type nftStore interface {
	InsertIfAbsent(ctx context.Context, nft *models.NFTCache) (bool, error)
	GetByTokenID(ctx context.Context, tokenID string) (*models.NFTCache, error)
	ApplyTransaction(ctx context.Context, tokenID string, change models.NFTChange, tx models.NFTTransaction) (bool, error)
	UpdateFromChain(ctx context.Context, tokenID string, state models.ChainNFTState) error
}

type syncUserStore interface {
	IncCounter(ctx context.Context, address, field string, delta int64) error
	UpdateSubscription(ctx context.Context, address string, sub models.Subscription) error
	GetSubscribedUsers(ctx context.Context) ([]models.User, error)
}

type checkpointStore interface {
	LastBlock(ctx context.Context, key string) (uint64, bool, error)
	SaveLastBlock(ctx context.Context, key string, block uint64) error
}

type metadataFetcher interface {
	GetJSON(ctx context.Context, uri string, out interface{}) error
}

// SyncService reconciles contract state into the MongoDB caches.
type SyncService struct {
	chain       blockchain.Chain
	nfts        nftStore
	users       syncUserStore
	checkpoints checkpointStore
	content     metadataFetcher
	notifier    Notifier
	cache       *cache.Cache

	window    uint64
	blockTime time.Duration
	now       func() time.Time

	eventsMu sync.Mutex
	dataMu   sync.Mutex
	subsMu   sync.Mutex
}

// NewSyncService builds the service. chain may be nil, which turns every job into a no-op.
func NewSyncService(chain blockchain.Chain, nfts nftStore, users syncUserStore, checkpoints checkpointStore,
	content metadataFetcher, notifier Notifier, c *cache.Cache, window uint64, blockTime time.Duration) *SyncService {
	if window == 0 {
		window = defaultWindow
	}
	if blockTime <= 0 {
		blockTime = defaultBlockTime
	}
	return &SyncService{
		chain:       chain,
		nfts:        nfts,
		users:       users,
		checkpoints: checkpoints,
		content:     content,
		notifier:    notifier,
		cache:       c,
		window:      window,
		blockTime:   blockTime,
		now:         time.Now,
	}
}

// Enabled reports whether a chain client is configured.
func (s *SyncService) Enabled() bool {
	return s.chain != nil
}

func (s *SyncService) lookbackBlocks() uint64 {
	return uint64(eventLookback / s.blockTime)
}

// PollEvents applies every event from the checkpoint up to the head, one
// window at a time, saving the checkpoint after each window. On the first
// run it starts 24 hours of blocks behind the head.
func (s *SyncService) PollEvents(ctx context.Context) error {
	if s.chain == nil {
		return nil
	}
	if !s.eventsMu.TryLock() {
		logrus.Debug("Event sync already running, skipping")
		return nil
	}
	defer s.eventsMu.Unlock()

	head, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return err
	}
	last, ok, err := s.checkpoints.LastBlock(ctx, EventsCheckpoint)
	if err != nil {
		return err
	}

	var from uint64
	if ok {
		from = last + 1
	} else if head > s.lookbackBlocks() {
		from = head - s.lookbackBlocks()
	}

	for from <= head {
		to := from + s.window - 1
		if to > head {
			to = head
		}
		if _, err := s.processRange(ctx, from, to); err != nil {
			return err
		}
		if err := s.checkpoints.SaveLastBlock(ctx, EventsCheckpoint, to); err != nil {
			return err
		}
		from = to + 1
	}
	return nil
}

// SyncRecentEvents rescans the last 24 hours of blocks without moving the checkpoint.
func (s *SyncService) SyncRecentEvents(ctx context.Context) (int, error) {
	if s.chain == nil {
		return 0, nil
	}
	if !s.eventsMu.TryLock() {
		logrus.Debug("Event sync already running, skipping")
		return 0, nil
	}
	defer s.eventsMu.Unlock()

	head, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	var from uint64
	if head > s.lookbackBlocks() {
		from = head - s.lookbackBlocks()
	}

	total := 0
	for from <= head {
		to := from + s.window - 1
		if to > head {
			to = head
		}
		n, err := s.processRange(ctx, from, to)
		if err != nil {
			return total, err
		}
		total += n
		from = to + 1
	}
	logger.Log.WithField("events", total).Info("Recent NFT events synced")
	return total, nil
}

func (s *SyncService) processRange(ctx context.Context, from, to uint64) (int, error) {
	events, err := s.chain.FilterEvents(ctx, from, to)
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		if err := s.HandleEvent(ctx, ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"event": ev.Kind,
				"tx":    ev.TxHash,
				"error": err,
			}).Error("Failed to apply chain event")
		}
	}
	if len(events) > 0 {
		logrus.WithFields(logrus.Fields{
			"from":   from,
			"to":     to,
			"events": len(events),
		}).Info("Chain events processed")
	}
	return len(events), nil
}

// HandleEvent applies one decoded event. Replaying an event is a no-op.
func (s *SyncService) HandleEvent(ctx context.Context, ev blockchain.Event) error {
	switch ev.Kind {
	case blockchain.EventNFTCreated:
		return s.onCreated(ctx, ev)
	case blockchain.EventNFTListed:
		price := ethutil.FormatTokenAmount(ev.Price)
		forSale := true
		_, err := s.apply(ctx, ev, models.NFTChange{ForSale: &forSale, Price: &price},
			models.TxList, ev.Seller, s.marketplace(), price)
		return err
	case blockchain.EventNFTUnlisted:
		price := "0"
		forSale := false
		_, err := s.apply(ctx, ev, models.NFTChange{ForSale: &forSale, Price: &price},
			models.TxUnlist, s.marketplace(), ev.Seller, price)
		return err
	case blockchain.EventNFTSold:
		return s.onSold(ctx, ev)
	case blockchain.EventTransfer:
		if ev.From == ethutil.ZeroAddress || ev.From == s.marketplace() || ev.To == s.marketplace() {
			return nil
		}
		owner := ev.To
		_, err := s.apply(ctx, ev, models.NFTChange{Owner: &owner}, models.TxTransfer, ev.From, ev.To, "0")
		return err
	case blockchain.EventSubscriptionPurchased:
		exp := ev.Expiration
		if err := s.users.UpdateSubscription(ctx, ev.User, models.Subscription{Level: ev.Level, Expiration: &exp}); err != nil {
			return err
		}
		s.cache.Invalidate(subscriptionCacheKey(ev.User))
		logger.Log.WithFields(logrus.Fields{
			"user":  ev.User,
			"level": ev.Level,
		}).Info("Subscription purchase synced")
		return nil
	default:
		return nil
	}
}

func (s *SyncService) marketplace() string {
	return ethutil.NormalizeAddress(s.chain.MarketplaceAddress())
}

func (s *SyncService) blockTimeOf(ctx context.Context, block uint64) time.Time {
	t, err := s.chain.BlockTime(ctx, block)
	if err != nil {
		logrus.WithError(err).Debug("Failed to read block time, using now")
		return s.now()
	}
	return t
}

func (s *SyncService) apply(ctx context.Context, ev blockchain.Event, change models.NFTChange, txType, from, to, price string) (bool, error) {
	tx := models.NFTTransaction{
		Type:      txType,
		From:      from,
		To:        to,
		Price:     price,
		Timestamp: s.blockTimeOf(ctx, ev.BlockNumber),
		TxHash:    ev.TxHash,
	}
	applied, err := s.nfts.ApplyTransaction(ctx, ev.TokenID, change, tx)
	if err != nil {
		return false, err
	}
	if applied {
		logrus.WithFields(logrus.Fields{
			"tokenId": ev.TokenID,
			"type":    txType,
			"tx":      ev.TxHash,
		}).Info("NFT transaction synced")
	}
	return applied, nil
}

func (s *SyncService) onCreated(ctx context.Context, ev blockchain.Event) error {
	mintedAt := s.blockTimeOf(ctx, ev.BlockNumber)
	nft := s.newCacheEntry(ctx, ev.TokenID, ev.Creator, ev.TokenURI, mintedAt)
	nft.Transactions = []models.NFTTransaction{{
		Type:      models.TxMint,
		From:      ethutil.ZeroAddress,
		To:        ev.Creator,
		Price:     "0",
		Timestamp: mintedAt,
		TxHash:    ev.TxHash,
	}}

	inserted, err := s.nfts.InsertIfAbsent(ctx, nft)
	if err != nil || !inserted {
		return err
	}
	if err := s.users.IncCounter(ctx, ev.Creator, "nftCount", 1); err != nil {
		logrus.WithError(err).Warn("Failed to update nft count")
	}
	logger.Log.WithFields(logrus.Fields{
		"tokenId": ev.TokenID,
		"creator": ev.Creator,
	}).Info("NFT creation synced")
	return nil
}

func (s *SyncService) onSold(ctx context.Context, ev blockchain.Event) error {
	price := ethutil.FormatTokenAmount(ev.Price)
	owner := ev.Buyer
	forSale := false
	applied, err := s.apply(ctx, ev, models.NFTChange{Owner: &owner, ForSale: &forSale}, models.TxSale, ev.Seller, ev.Buyer, price)
	if err != nil || !applied {
		return err
	}

	name := s.displayName(ctx, ev.TokenID)
	s.notifier.Notify(ctx, &models.Notification{
		Recipient:  ev.Seller,
		Type:       models.NotifySale,
		Sender:     ev.Buyer,
		Content:    fmt.Sprintf("Your %s sold for %s DX", name, price),
		TargetType: "nft",
		TargetID:   ev.TokenID,
	})
	s.notifier.Notify(ctx, &models.Notification{
		Recipient:  ev.Buyer,
		Type:       models.NotifyPurchase,
		Sender:     ev.Seller,
		Content:    fmt.Sprintf("You purchased %s for %s DX", name, price),
		TargetType: "nft",
		TargetID:   ev.TokenID,
	})
	return nil
}

// displayName is the cached metadata name of a token, or "NFT #<id>".
func (s *SyncService) displayName(ctx context.Context, tokenID string) string {
	nft, err := s.nfts.GetByTokenID(ctx, tokenID)
	if err == nil && strings.TrimSpace(nft.Metadata.Name) != "" {
		return nft.Metadata.Name
	}
	return "NFT #" + tokenID
}

// newCacheEntry builds an NFTCache from the token metadata on IPFS. A
// missing or unreadable metadata document leaves the defaults in place.
func (s *SyncService) newCacheEntry(ctx context.Context, tokenID, creator, tokenURI string, mintedAt time.Time) *models.NFTCache {
	var meta ipfs.NFTMetadata
	if tokenURI != "" {
		if err := s.content.GetJSON(ctx, tokenURI, &meta); err != nil {
			logrus.WithFields(logrus.Fields{
				"tokenId": tokenID,
				"error":   err,
			}).Warn("Failed to fetch NFT metadata")
		}
	}
	if meta.Name == "" {
		meta.Name = "NFT #" + tokenID
	}

	attrs := make([]models.NFTAttribute, 0, len(meta.Attributes))
	for _, a := range meta.Attributes {
		attrs = append(attrs, models.NFTAttribute{TraitType: a.TraitType, Value: a.Value})
	}
	mediaType := "image"
	if strings.Contains(meta.Image, ".mp4") {
		mediaType = "video"
	}

	return &models.NFTCache{
		TokenID:  tokenID,
		Creator:  creator,
		Owner:    creator,
		TokenURI: tokenURI,
		Metadata: models.NFTMetadata{
			Name:        meta.Name,
			Description: meta.Description,
			Image:       meta.Image,
			Attributes:  attrs,
		},
		MediaType: mediaType,
		Price:     "0",
		MintedAt:  mintedAt,
	}
}

// RefreshNFT reads one token from chain and writes it to the cache,
// creating the entry when it is missing.
func (s *SyncService) RefreshNFT(ctx context.Context, tokenID string) error {
	if s.chain == nil {
		return apperr.New(apperr.ErrUnavailable, "Blockchain is not configured")
	}
	if _, err := strconv.ParseUint(tokenID, 10, 64); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "Invalid token ID")
	}

	state, err := s.chain.NFTState(ctx, tokenID)
	if err != nil {
		return err
	}

	_, err = s.nfts.GetByTokenID(ctx, tokenID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		nft := s.newCacheEntry(ctx, tokenID, state.Owner, state.TokenURI, s.now())
		if _, err := s.nfts.InsertIfAbsent(ctx, nft); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	return s.nfts.UpdateFromChain(ctx, tokenID, *state)
}

// SyncNFTData walks every minted token and refreshes entries that are
// missing or older than an hour. It returns the number refreshed.
func (s *SyncService) SyncNFTData(ctx context.Context) (int, error) {
	if s.chain == nil {
		return 0, nil
	}
	if !s.dataMu.TryLock() {
		logrus.Debug("NFT data sync already running, skipping")
		return 0, nil
	}
	defer s.dataMu.Unlock()

	counter, err := s.chain.TokenCounter(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for id := uint64(1); id <= counter; id++ {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		tokenID := strconv.FormatUint(id, 10)

		cached, err := s.nfts.GetByTokenID(ctx, tokenID)
		if err == nil && s.now().Sub(cached.LastUpdated) < nftStaleAfter {
			continue
		}
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			logrus.WithFields(logrus.Fields{"tokenId": tokenID, "error": err}).Warn("Failed to read cached NFT")
			continue
		}

		if err := s.RefreshNFT(ctx, tokenID); err != nil {
			logrus.WithFields(logrus.Fields{"tokenId": tokenID, "error": err}).Warn("Failed to refresh NFT")
			continue
		}
		refreshed++
	}

	logger.Log.WithFields(logrus.Fields{
		"tokens":    counter,
		"refreshed": refreshed,
	}).Info("NFT data synced")
	return refreshed, nil
}

// SyncSubscriptions re-reads subscriptions of users cached above Standard and
// stores the ones whose level or expiration moved.
func (s *SyncService) SyncSubscriptions(ctx context.Context) (int, error) {
	if s.chain == nil {
		return 0, nil
	}
	if !s.subsMu.TryLock() {
		logrus.Debug("Subscription sync already running, skipping")
		return 0, nil
	}
	defer s.subsMu.Unlock()

	users, err := s.users.GetSubscribedUsers(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, u := range users {
		info, err := s.chain.GetSubscription(ctx, u.WalletAddress)
		if err != nil {
			logrus.WithFields(logrus.Fields{"address": u.WalletAddress, "error": err}).Warn("Failed to read subscription")
			continue
		}
		if !subscriptionChanged(u.Subscription, info) {
			continue
		}
		sub := models.Subscription{Level: info.Level, Expiration: info.Expiration}
		if err := s.users.UpdateSubscription(ctx, u.WalletAddress, sub); err != nil {
			logrus.WithFields(logrus.Fields{"address": u.WalletAddress, "error": err}).Warn("Failed to store subscription")
			continue
		}
		s.cache.Invalidate(subscriptionCacheKey(u.WalletAddress))
		updated++
	}

	logger.Log.WithFields(logrus.Fields{
		"users":   len(users),
		"updated": updated,
	}).Info("Subscriptions synced")
	return updated, nil
}

func subscriptionChanged(cached models.Subscription, info *blockchain.SubscriptionInfo) bool {
	if cached.Level != info.Level {
		return true
	}
	switch {
	case cached.Expiration == nil && info.Expiration == nil:
		return false
	case cached.Expiration == nil || info.Expiration == nil:
		return true
	}
	diff := cached.Expiration.Sub(*info.Expiration)
	if diff < 0 {
		diff = -diff
	}
	return diff > expirationSlack
}
