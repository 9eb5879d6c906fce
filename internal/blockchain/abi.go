package blockchain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the contract members the backend touches are declared.

const dxTokenABI = `[
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const nftMediaABI = `[
 {"type":"function","name":"mintNFT","stateMutability":"nonpayable","inputs":[{"name":"tokenURI","type":"string"},{"name":"mediaType","type":"string"},{"name":"royaltyPercent","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"tokenIdCounter","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"mediaNFTs","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"creator","type":"address"},{"name":"mediaType","type":"string"},{"name":"royaltyPercent","type":"uint256"}]},
 {"type":"event","name":"NFTCreated","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"tokenURI","type":"string","indexed":false}]},
 {"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

const marketplaceABI = `[
 {"type":"function","name":"listings","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"seller","type":"address"},{"name":"price","type":"uint256"},{"name":"active","type":"bool"}]},
 {"type":"event","name":"NFTListed","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}]},
 {"type":"event","name":"NFTSold","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}]},
 {"type":"event","name":"NFTUnlisted","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true}]}
]`

const subscriptionABI = `[
 {"type":"function","name":"getSubscription","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"level","type":"uint8"},{"name":"expiration","type":"uint256"}]},
 {"type":"function","name":"feeStandard","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"feePlus","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"feePro","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"feeElite","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"event","name":"SubscriptionPurchased","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"level","type":"uint8","indexed":false},{"name":"months","type":"uint256","indexed":false},{"name":"expiration","type":"uint256","indexed":false}]}
]`

// ABIs holds the parsed contract interfaces.
type ABIs struct {
	DXToken      abi.ABI
	NFTMedia     abi.ABI
	Marketplace  abi.ABI
	Subscription abi.ABI
}

func ParseABIs() (*ABIs, error) {
	var out ABIs
	for _, item := range []struct {
		name string
		src  string
		dst  *abi.ABI
	}{
		{"DXToken", dxTokenABI, &out.DXToken},
		{"NFTMedia", nftMediaABI, &out.NFTMedia},
		{"Marketplace", marketplaceABI, &out.Marketplace},
		{"Subscription", subscriptionABI, &out.Subscription},
	} {
		parsed, err := abi.JSON(strings.NewReader(item.src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %v", item.name, err)
		}
		*item.dst = parsed
	}
	return &out, nil
}

// feeMethods maps subscription levels to their fee getters.
var feeMethods = map[int]string{
	1:  "feeStandard",
	2:  "feePlus",
	5:  "feePro",
	10: "feeElite",
}
