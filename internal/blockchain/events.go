package blockchain

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type EventKind string

const (
	EventNFTCreated            EventKind = "NFTCreated"
	EventNFTListed             EventKind = "NFTListed"
	EventNFTSold               EventKind = "NFTSold"
	EventNFTUnlisted           EventKind = "NFTUnlisted"
	EventSubscriptionPurchased EventKind = "SubscriptionPurchased"
	EventTransfer              EventKind = "Transfer"
)

// Event is a decoded contract log. Addresses are lowercase.
type Event struct {
	Kind        EventKind
	BlockNumber uint64
	LogIndex    uint
	TxHash      string

	TokenID  string
	Creator  string
	TokenURI string
	Seller   string
	Buyer    string
	From     string
	To       string
	Price    *big.Int

	User       string
	Level      int
	Months     int64
	Expiration time.Time
}

// unpackLog merges the indexed topics and the data of lg into one map keyed by argument name.
func unpackLog(contract abi.ABI, event string, lg types.Log) (map[string]interface{}, error) {
	ev, ok := contract.Events[event]
	if !ok {
		return nil, fmt.Errorf("event %s not in ABI", event)
	}
	out := make(map[string]interface{})
	if len(lg.Data) > 0 {
		if err := contract.UnpackIntoMap(out, event, lg.Data); err != nil {
			return nil, err
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics) < len(indexed)+1 {
		return nil, fmt.Errorf("%s log has %d topics, want %d", event, len(lg.Topics), len(indexed)+1)
	}
	if err := abi.ParseTopicsIntoMap(out, indexed, lg.Topics[1:]); err != nil {
		return nil, err
	}
	return out, nil
}

func bigField(m map[string]interface{}, key string) *big.Int {
	if v, ok := m[key].(*big.Int); ok {
		return v
	}
	return new(big.Int)
}

func addrField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(common.Address); ok {
		return addr(v)
	}
	return ""
}

func addr(a common.Address) string {
	return ethutil.NormalizeAddress(a.Hex())
}

// eventDecoder recognises logs by topic and contract address.
type eventDecoder struct {
	abis        *ABIs
	nftMedia    common.Address
	marketplace common.Address
	sub         common.Address
}

func (d *eventDecoder) topics() []common.Hash {
	return []common.Hash{
		d.abis.NFTMedia.Events["NFTCreated"].ID,
		d.abis.NFTMedia.Events["Transfer"].ID,
		d.abis.Marketplace.Events["NFTListed"].ID,
		d.abis.Marketplace.Events["NFTSold"].ID,
		d.abis.Marketplace.Events["NFTUnlisted"].ID,
		d.abis.Subscription.Events["SubscriptionPurchased"].ID,
	}
}

// decode returns nil, nil for logs that are not of interest.
func (d *eventDecoder) decode(lg types.Log) (*Event, error) {
	if len(lg.Topics) == 0 {
		return nil, nil
	}
	topic := lg.Topics[0]

	var (
		contract abi.ABI
		kind     EventKind
	)
	switch {
	case lg.Address == d.nftMedia && topic == d.abis.NFTMedia.Events["NFTCreated"].ID:
		contract, kind = d.abis.NFTMedia, EventNFTCreated
	case lg.Address == d.nftMedia && topic == d.abis.NFTMedia.Events["Transfer"].ID:
		contract, kind = d.abis.NFTMedia, EventTransfer
	case lg.Address == d.marketplace && topic == d.abis.Marketplace.Events["NFTListed"].ID:
		contract, kind = d.abis.Marketplace, EventNFTListed
	case lg.Address == d.marketplace && topic == d.abis.Marketplace.Events["NFTSold"].ID:
		contract, kind = d.abis.Marketplace, EventNFTSold
	case lg.Address == d.marketplace && topic == d.abis.Marketplace.Events["NFTUnlisted"].ID:
		contract, kind = d.abis.Marketplace, EventNFTUnlisted
	case lg.Address == d.sub && topic == d.abis.Subscription.Events["SubscriptionPurchased"].ID:
		contract, kind = d.abis.Subscription, EventSubscriptionPurchased
	default:
		return nil, nil
	}

	fields, err := unpackLog(contract, string(kind), lg)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		Kind:        kind,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
		TxHash:      lg.TxHash.Hex(),
	}
	switch kind {
	case EventNFTCreated:
		ev.TokenID = bigField(fields, "tokenId").String()
		ev.Creator = addrField(fields, "creator")
		ev.TokenURI, _ = fields["tokenURI"].(string)
	case EventTransfer:
		ev.TokenID = bigField(fields, "tokenId").String()
		ev.From = addrField(fields, "from")
		ev.To = addrField(fields, "to")
	case EventNFTListed:
		ev.TokenID = bigField(fields, "tokenId").String()
		ev.Seller = addrField(fields, "seller")
		ev.Price = bigField(fields, "price")
	case EventNFTSold:
		ev.TokenID = bigField(fields, "tokenId").String()
		ev.Seller = addrField(fields, "seller")
		ev.Buyer = addrField(fields, "buyer")
		ev.Price = bigField(fields, "price")
	case EventNFTUnlisted:
		ev.TokenID = bigField(fields, "tokenId").String()
		ev.Seller = addrField(fields, "seller")
	case EventSubscriptionPurchased:
		ev.User = addrField(fields, "user")
		level, _ := fields["level"].(uint8)
		ev.Level = int(level)
		ev.Months = bigField(fields, "months").Int64()
		ev.Expiration = time.Unix(bigField(fields, "expiration").Int64(), 0).UTC()
	}
	return ev, nil
}

// SortEvents orders events by block, then log index.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}
