package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personalSign(t *testing.T, message string) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestSignatureRoundTrip(t *testing.T) {
	msg := SignMessage("0xabc", "deadbeef")
	assert.Contains(t, msg, "Wallet Address: 0xabc\nNonce: deadbeef")

	address, sig := personalSign(t, msg)
	assert.True(t, VerifySignature(address, msg, sig))

	recovered, err := RecoverAddress(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(address), common.HexToAddress(recovered))
}

func TestSignatureRejectsOtherSigner(t *testing.T) {
	msg := SignMessage("0xabc", "nonce")
	_, sig := personalSign(t, msg)
	other, _ := personalSign(t, msg)

	assert.False(t, VerifySignature(other, msg, sig))
	assert.False(t, VerifySignature(other, SignMessage("0xabc", "other-nonce"), sig))
	assert.False(t, VerifySignature(other, msg, "0x1234"))
	assert.False(t, VerifySignature(other, msg, "not-hex"))
}

func testDecoder(t *testing.T) *eventDecoder {
	abis, err := ParseABIs()
	require.NoError(t, err)
	return &eventDecoder{
		abis:        abis,
		nftMedia:    common.HexToAddress("0x1000000000000000000000000000000000000001"),
		marketplace: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		sub:         common.HexToAddress("0x3000000000000000000000000000000000000003"),
	}
}

func TestDecodeListedAndSold(t *testing.T) {
	d := testDecoder(t)
	seller := common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	buyer := common.HexToAddress("0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb")
	price := new(big.Int).Mul(big.NewInt(25), big.NewInt(1e17))

	listed := d.abis.Marketplace.Events["NFTListed"]
	data, err := listed.Inputs.NonIndexed().Pack(price)
	require.NoError(t, err)

	ev, err := d.decode(types.Log{
		Address:     d.marketplace,
		Topics:      []common.Hash{listed.ID, common.BigToHash(big.NewInt(7)), common.BytesToHash(seller.Bytes())},
		Data:        data,
		BlockNumber: 10,
		Index:       2,
		TxHash:      common.HexToHash("0x01"),
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, EventNFTListed, ev.Kind)
	assert.Equal(t, "7", ev.TokenID)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ev.Seller)
	assert.Equal(t, price.String(), ev.Price.String())

	sold := d.abis.Marketplace.Events["NFTSold"]
	data, err = sold.Inputs.NonIndexed().Pack(price)
	require.NoError(t, err)
	ev, err = d.decode(types.Log{
		Address: d.marketplace,
		Topics: []common.Hash{sold.ID, common.BigToHash(big.NewInt(7)),
			common.BytesToHash(seller.Bytes()), common.BytesToHash(buyer.Bytes())},
		Data: data,
	})
	require.NoError(t, err)
	assert.Equal(t, EventNFTSold, ev.Kind)
	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", ev.Buyer)
}

func TestDecodeCreatedAndSubscription(t *testing.T) {
	d := testDecoder(t)
	creator := common.HexToAddress("0xCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCc")

	created := d.abis.NFTMedia.Events["NFTCreated"]
	data, err := created.Inputs.NonIndexed().Pack("ipfs://meta")
	require.NoError(t, err)
	ev, err := d.decode(types.Log{
		Address: d.nftMedia,
		Topics:  []common.Hash{created.ID, common.BigToHash(big.NewInt(42)), common.BytesToHash(creator.Bytes())},
		Data:    data,
	})
	require.NoError(t, err)
	assert.Equal(t, EventNFTCreated, ev.Kind)
	assert.Equal(t, "42", ev.TokenID)
	assert.Equal(t, "ipfs://meta", ev.TokenURI)

	purchased := d.abis.Subscription.Events["SubscriptionPurchased"]
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err = purchased.Inputs.NonIndexed().Pack(uint8(5), big.NewInt(3), big.NewInt(exp.Unix()))
	require.NoError(t, err)
	ev, err = d.decode(types.Log{
		Address: d.sub,
		Topics:  []common.Hash{purchased.ID, common.BytesToHash(creator.Bytes())},
		Data:    data,
	})
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionPurchased, ev.Kind)
	assert.Equal(t, 5, ev.Level)
	assert.Equal(t, int64(3), ev.Months)
	assert.True(t, exp.Equal(ev.Expiration))
}

func TestDecodeIgnoresForeignLogs(t *testing.T) {
	d := testDecoder(t)
	listed := d.abis.Marketplace.Events["NFTListed"]

	ev, err := d.decode(types.Log{Address: d.nftMedia, Topics: []common.Hash{listed.ID}})
	assert.NoError(t, err)
	assert.Nil(t, ev)

	ev, err = d.decode(types.Log{Address: d.marketplace})
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestSortEvents(t *testing.T) {
	events := []Event{
		{TxHash: "c", BlockNumber: 5, LogIndex: 1},
		{TxHash: "a", BlockNumber: 4, LogIndex: 9},
		{TxHash: "b", BlockNumber: 5, LogIndex: 0},
	}
	SortEvents(events)
	assert.Equal(t, "a", events[0].TxHash)
	assert.Equal(t, "b", events[1].TxHash)
	assert.Equal(t, "c", events[2].TxHash)
}

func TestSubscriptionFromChain(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	info := subscriptionFromChain(1, big.NewInt(0), now)
	assert.Nil(t, info.Expiration)
	assert.False(t, info.IsActive)

	info = subscriptionFromChain(5, big.NewInt(now.Unix()+60), now)
	assert.True(t, info.IsActive)
	assert.Equal(t, 5, info.Level)

	info = subscriptionFromChain(10, big.NewInt(now.Unix()-60), now)
	assert.False(t, info.IsActive)
	assert.NotNil(t, info.Expiration)
}
