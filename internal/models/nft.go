package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TxMint     = "mint"
	TxTransfer = "transfer"
	TxList     = "list"
	TxUnlist   = "unlist"
	TxSale     = "sale"
)

type NFTAttribute struct {
	TraitType string      `bson:"trait_type" json:"trait_type"`
	Value     interface{} `bson:"value" json:"value"`
}

type NFTMetadata struct {
	Name        string         `bson:"name" json:"name"`
	Description string         `bson:"description" json:"description"`
	Image       string         `bson:"image" json:"image"`
	Attributes  []NFTAttribute `bson:"attributes" json:"attributes"`
}

type NFTTransaction struct {
	Type      string    `bson:"type" json:"type"`
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	Price     string    `bson:"price" json:"price"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	TxHash    string    `bson:"txHash" json:"txHash"`
}

// NFTCache mirrors on-chain NFT state.
type NFTCache struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TokenID        string             `bson:"tokenId" json:"tokenId"`
	Creator        string             `bson:"creator" json:"creator"`
	Owner          string             `bson:"owner" json:"owner"`
	TokenURI       string             `bson:"tokenURI" json:"tokenURI"`
	Metadata       NFTMetadata        `bson:"metadata" json:"metadata"`
	MediaType      string             `bson:"mediaType" json:"mediaType"`
	ForSale        bool               `bson:"forSale" json:"forSale"`
	Price          string             `bson:"price" json:"price"`
	RoyaltyPercent float64            `bson:"royaltyPercent" json:"royaltyPercent"`
	Transactions   []NFTTransaction   `bson:"transactions" json:"transactions"`
	ViewCount      int64              `bson:"viewCount" json:"viewCount"`
	LikeCount      int64              `bson:"likeCount" json:"likeCount"`
	TrendScore     float64            `bson:"trendScore" json:"trendScore"`
	CollectionID   string             `bson:"collectionId,omitempty" json:"collectionId,omitempty"`
	MintedAt       time.Time          `bson:"mintedAt" json:"mintedAt"`
	LastUpdated    time.Time          `bson:"lastUpdated" json:"lastUpdated"`
}

// HasTransaction reports whether a transaction of txType with txHash is already recorded.
func (n *NFTCache) HasTransaction(txType, txHash string) bool {
	for _, tx := range n.Transactions {
		if tx.Type == txType && tx.TxHash == txHash {
			return true
		}
	}
	return false
}

type NFTView struct {
	NFTCache       `bson:",inline"`
	CreatorDetails *AuthorDetails `json:"creatorDetails,omitempty"`
	OwnerDetails   *AuthorDetails `json:"ownerDetails,omitempty"`
}

// NFTChange is the state change an on-chain event applies to a cached NFT.
// Nil fields are left untouched.
type NFTChange struct {
	Owner   *string
	ForSale *bool
	Price   *string
}

// ChainNFTState is the token state read directly from the contracts.
type ChainNFTState struct {
	Owner          string
	TokenURI       string
	MediaType      string
	RoyaltyPercent float64
	ForSale        bool
	Price          string
}
