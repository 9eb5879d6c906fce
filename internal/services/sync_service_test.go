package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seller = "0x2222222222222222222222222222222222222222"
	buyer  = "0x3333333333333333333333333333333333333333"
)

type syncFixture struct {
	svc         *SyncService
	chain       *fakeChain
	nfts        *fakeNFTs
	users       *fakeUsers
	checkpoints *fakeCheckpoints
	notifier    *recordingNotifier
	cache       *cache.Cache
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		chain:       newFakeChain(),
		nfts:        newFakeNFTs(),
		users:       newFakeUsers(seller, buyer),
		checkpoints: &fakeCheckpoints{blocks: map[string]uint64{}},
		notifier:    &recordingNotifier{},
		cache:       cache.New(cache.DefaultTTL, cache.CleanupInterval),
	}
	content := &fakeContent{docs: map[string]ipfs.NFTMetadata{
		"ipfs://meta1": {Name: "Sunset", Description: "A sunset", Image: "ipfs://img1"},
	}}
	f.svc = NewSyncService(f.chain, f.nfts, f.users, f.checkpoints, content, f.notifier, f.cache, 100, 15*time.Second)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return f
}

func tokens(n int64) *big.Int {
	return ethutil.TokensToWei(n)
}

func TestHandleCreatedIsIdempotent(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	ev := blockchain.Event{Kind: blockchain.EventNFTCreated, TokenID: "1", Creator: seller, TokenURI: "ipfs://meta1", TxHash: "0xc1", BlockNumber: 10}

	require.NoError(t, f.svc.HandleEvent(ctx, ev))
	require.NoError(t, f.svc.HandleEvent(ctx, ev))

	nft := f.nfts.items["1"]
	require.NotNil(t, nft)
	assert.Equal(t, "Sunset", nft.Metadata.Name)
	assert.Equal(t, seller, nft.Owner)
	assert.Equal(t, f.chain.blockTimeVal, nft.MintedAt)
	require.Len(t, nft.Transactions, 1)
	assert.Equal(t, models.TxMint, nft.Transactions[0].Type)
	assert.Equal(t, int64(1), f.users.users[seller].NFTCount)
}

func TestHandleCreatedWithoutMetadata(t *testing.T) {
	f := newSyncFixture()
	ev := blockchain.Event{Kind: blockchain.EventNFTCreated, TokenID: "7", Creator: seller, TokenURI: "ipfs://missing", TxHash: "0xc7"}

	require.NoError(t, f.svc.HandleEvent(context.Background(), ev))
	assert.Equal(t, "NFT #7", f.nfts.items["7"].Metadata.Name)
}

func TestListingAndSale(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventNFTCreated, TokenID: "1", Creator: seller, TxHash: "0xc1"}))

	listed := blockchain.Event{Kind: blockchain.EventNFTListed, TokenID: "1", Seller: seller, Price: tokens(5), TxHash: "0xl1"}
	require.NoError(t, f.svc.HandleEvent(ctx, listed))
	nft := f.nfts.items["1"]
	assert.True(t, nft.ForSale)
	assert.Equal(t, ethutil.FormatTokenAmount(tokens(5)), nft.Price)

	sold := blockchain.Event{Kind: blockchain.EventNFTSold, TokenID: "1", Seller: seller, Buyer: buyer, Price: tokens(5), TxHash: "0xs1"}
	require.NoError(t, f.svc.HandleEvent(ctx, sold))
	require.NoError(t, f.svc.HandleEvent(ctx, sold))

	assert.Equal(t, buyer, nft.Owner)
	assert.False(t, nft.ForSale)
	assert.Len(t, nft.Transactions, 3)

	require.Len(t, f.notifier.sent, 2, "a replayed sale does not notify twice")
	assert.Equal(t, seller, f.notifier.sent[0].Recipient)
	assert.Equal(t, models.NotifySale, f.notifier.sent[0].Type)
	assert.Equal(t, buyer, f.notifier.sent[1].Recipient)
	assert.Equal(t, models.NotifyPurchase, f.notifier.sent[1].Type)
	assert.Equal(t, "1", f.notifier.sent[1].TargetID)
}

func TestSaleNotificationsUseTokenName(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventNFTCreated, TokenID: "1", Creator: seller, TokenURI: "ipfs://meta1", TxHash: "0xc1"}))
	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventNFTCreated, TokenID: "2", Creator: seller, TxHash: "0xc2"}))
	f.nfts.items["2"].Metadata.Name = ""

	price := ethutil.FormatTokenAmount(tokens(5))
	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventNFTSold, TokenID: "1", Seller: seller, Buyer: buyer, Price: tokens(5), TxHash: "0xs1"}))
	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventNFTSold, TokenID: "2", Seller: seller, Buyer: buyer, Price: tokens(5), TxHash: "0xs2"}))

	require.Len(t, f.notifier.sent, 4)
	assert.Equal(t, "Your Sunset sold for "+price+" DX", f.notifier.sent[0].Content)
	assert.Equal(t, "You purchased Sunset for "+price+" DX", f.notifier.sent[1].Content)
	assert.Equal(t, "Your NFT #2 sold for "+price+" DX", f.notifier.sent[2].Content)
	assert.Equal(t, "You purchased NFT #2 for "+price+" DX", f.notifier.sent[3].Content)
}

func TestTransfersIntoMarketplaceAreSkipped(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventNFTCreated, TokenID: "1", Creator: seller, TxHash: "0xc1"}))

	for _, ev := range []blockchain.Event{
		{Kind: blockchain.EventTransfer, TokenID: "1", From: ethutil.ZeroAddress, To: seller, TxHash: "0xc1"},
		{Kind: blockchain.EventTransfer, TokenID: "1", From: seller, To: f.chain.marketplace, TxHash: "0xl1"},
	} {
		require.NoError(t, f.svc.HandleEvent(ctx, ev))
	}
	assert.Len(t, f.nfts.items["1"].Transactions, 1)

	require.NoError(t, f.svc.HandleEvent(ctx, blockchain.Event{Kind: blockchain.EventTransfer, TokenID: "1", From: seller, To: buyer, TxHash: "0xt1"}))
	assert.Equal(t, buyer, f.nfts.items["1"].Owner)
	assert.Len(t, f.nfts.items["1"].Transactions, 2)
}

func TestSubscriptionPurchaseInvalidatesCache(t *testing.T) {
	f := newSyncFixture()
	f.cache.Set(subscriptionCacheKey(buyer), "stale", 0)
	exp := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	ev := blockchain.Event{Kind: blockchain.EventSubscriptionPurchased, User: buyer, Level: 5, Months: 3, Expiration: exp}
	require.NoError(t, f.svc.HandleEvent(context.Background(), ev))

	sub := f.users.users[buyer].Subscription
	assert.Equal(t, 5, sub.Level)
	assert.Equal(t, exp, *sub.Expiration)
	_, ok := f.cache.Get(subscriptionCacheKey(buyer))
	assert.False(t, ok)
}

func TestPollEventsAdvancesCheckpoint(t *testing.T) {
	f := newSyncFixture()
	ctx := context.Background()
	f.chain.head = 10000
	f.chain.events = []blockchain.Event{
		{Kind: blockchain.EventNFTCreated, TokenID: "1", Creator: seller, TxHash: "0xc1", BlockNumber: 4300},
	}

	require.NoError(t, f.svc.PollEvents(ctx))
	// 24h of 15s blocks is 5760 blocks behind head
	assert.Equal(t, [2]uint64{4240, 4339}, f.chain.filtered[0])
	assert.Equal(t, uint64(10000), f.checkpoints.blocks[EventsCheckpoint])
	assert.Contains(t, f.nfts.items, "1")

	f.chain.filtered = nil
	f.chain.head = 10050
	require.NoError(t, f.svc.PollEvents(ctx))
	require.Len(t, f.chain.filtered, 1)
	assert.Equal(t, [2]uint64{10001, 10050}, f.chain.filtered[0])

	f.chain.filtered = nil
	require.NoError(t, f.svc.PollEvents(ctx))
	assert.Empty(t, f.chain.filtered, "nothing to do at head")
}

func TestRefreshNFTCreatesMissingEntry(t *testing.T) {
	f := newSyncFixture()
	f.chain.tokens["3"] = &models.ChainNFTState{Owner: buyer, TokenURI: "ipfs://meta1", MediaType: "image", ForSale: true, Price: "2"}

	require.NoError(t, f.svc.RefreshNFT(context.Background(), "3"))
	nft := f.nfts.items["3"]
	require.NotNil(t, nft)
	assert.Equal(t, buyer, nft.Owner)
	assert.True(t, nft.ForSale)
	assert.Equal(t, "Sunset", nft.Metadata.Name)

	assert.Error(t, f.svc.RefreshNFT(context.Background(), "abc"))
}

func TestSyncNFTDataSkipsFreshEntries(t *testing.T) {
	f := newSyncFixture()
	f.svc.now = time.Now
	f.chain.tokens["1"] = &models.ChainNFTState{Owner: seller}
	f.chain.tokens["2"] = &models.ChainNFTState{Owner: buyer}
	f.nfts.items["1"] = &models.NFTCache{TokenID: "1", Owner: seller, LastUpdated: time.Now()}

	n, err := f.svc.SyncNFTData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, buyer, f.nfts.items["2"].Owner)
}

func TestSyncWithoutChainIsNoop(t *testing.T) {
	svc := NewSyncService(nil, newFakeNFTs(), newFakeUsers(), &fakeCheckpoints{blocks: map[string]uint64{}},
		&fakeContent{}, &recordingNotifier{}, cache.New(cache.DefaultTTL, cache.CleanupInterval), 0, 0)

	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.PollEvents(context.Background()))
	n, err := svc.SyncSubscriptions(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Error(t, svc.RefreshNFT(context.Background(), "1"))
}

func TestSyncSubscriptions(t *testing.T) {
	f := newSyncFixture()
	cached := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	drift := cached.Add(30 * time.Minute)
	moved := cached.AddDate(0, 1, 0)

	f.users.users[seller].Subscription = models.Subscription{Level: 2, Expiration: &cached}
	f.users.users[buyer].Subscription = models.Subscription{Level: 5, Expiration: &cached}
	f.chain.subs[seller] = &blockchain.SubscriptionInfo{Level: 2, Expiration: &drift, IsActive: true}
	f.chain.subs[buyer] = &blockchain.SubscriptionInfo{Level: 5, Expiration: &moved, IsActive: true}

	n, err := f.svc.SyncSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, cached, *f.users.users[seller].Subscription.Expiration)
	assert.Equal(t, moved, *f.users.users[buyer].Subscription.Expiration)
}

func TestSearchPattern(t *testing.T) {
	_, err := searchPattern(" a ")
	assert.Error(t, err)

	p, err := searchPattern("a.b*")
	require.NoError(t, err)
	assert.Equal(t, `a\.b\*`, p)
}
