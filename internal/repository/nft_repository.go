package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dxsocial/backend/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NFTRepository struct {
	collection *mongo.Collection
}

func NewNFTRepository(db *mongo.Database) *NFTRepository {
	return &NFTRepository{
		collection: db.Collection("nft_cache"),
	}
}

// InsertIfAbsent creates the cache entry unless the token is already cached.
func (r *NFTRepository) InsertIfAbsent(ctx context.Context, nft *models.NFTCache) (bool, error) {
	nft.LastUpdated = time.Now()
	if nft.Transactions == nil {
		nft.Transactions = []models.NFTTransaction{}
	}
	doc, err := bson.Marshal(nft)
	if err != nil {
		return false, fmt.Errorf("failed to encode nft: %v", err)
	}
	var fields bson.M
	if err := bson.Unmarshal(doc, &fields); err != nil {
		return false, fmt.Errorf("failed to encode nft: %v", err)
	}
	delete(fields, "_id")

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"tokenId": nft.TokenID},
		bson.M{"$setOnInsert": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"tokenId": nft.TokenID,
			"error":   err,
		}).Error("Failed to insert NFT cache entry")
		return false, fmt.Errorf("failed to insert nft: %v", err)
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		nft.ID = id
	}
	return res.UpsertedCount > 0, nil
}

func (r *NFTRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.NFTCache, error) {
	var nft models.NFTCache
	if err := r.collection.FindOne(ctx, bson.M{"tokenId": tokenID}).Decode(&nft); err != nil {
		return nil, notFound(err, "NFT")
	}
	return &nft, nil
}

func (r *NFTRepository) IncrementViews(ctx context.Context, tokenID string) (*models.NFTCache, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var nft models.NFTCache
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"tokenId": tokenID}, bson.M{"$inc": bson.M{"viewCount": 1}}, opts).Decode(&nft)
	if err != nil {
		return nil, notFound(err, "NFT")
	}
	return &nft, nil
}

// ApplyTransaction records tx and applies change, unless a transaction with the
// same type and hash is already recorded. It reports whether anything changed.
func (r *NFTRepository) ApplyTransaction(ctx context.Context, tokenID string, change models.NFTChange, tx models.NFTTransaction) (bool, error) {
	set := bson.M{"lastUpdated": time.Now()}
	if change.Owner != nil {
		set["owner"] = *change.Owner
	}
	if change.ForSale != nil {
		set["forSale"] = *change.ForSale
	}
	if change.Price != nil {
		set["price"] = *change.Price
	}

	filter := bson.M{
		"tokenId": tokenID,
		"transactions": bson.M{"$not": bson.M{"$elemMatch": bson.M{"type": tx.Type, "txHash": tx.TxHash}}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set, "$push": bson.M{"transactions": tx}})
	if err != nil {
		return false, fmt.Errorf("failed to apply %s transaction: %v", tx.Type, err)
	}
	return res.ModifiedCount > 0, nil
}

// UpdateFromChain overwrites the chain-derived fields.
func (r *NFTRepository) UpdateFromChain(ctx context.Context, tokenID string, state models.ChainNFTState) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"tokenId": tokenID},
		bson.M{"$set": bson.M{
			"owner":          state.Owner,
			"tokenURI":       state.TokenURI,
			"mediaType":      state.MediaType,
			"royaltyPercent": state.RoyaltyPercent,
			"forSale":        state.ForSale,
			"price":          state.Price,
			"lastUpdated":    time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to refresh nft %s: %v", tokenID, err)
	}
	return nil
}

// ListNFTs returns cached NFTs matching filter, newest minted first.
func (r *NFTRepository) ListNFTs(ctx context.Context, filter bson.M, page models.Page) ([]models.NFTCache, int64, error) {
	return findPage[models.NFTCache](ctx, r.collection, filter, bson.D{{Key: "mintedAt", Value: -1}}, page)
}

// All returns every cached NFT.
func (r *NFTRepository) All(ctx context.Context) ([]models.NFTCache, error) {
	return findAll[models.NFTCache](ctx, r.collection, bson.M{})
}

// TopByTrendScore returns the NFTs with the highest stored score.
func (r *NFTRepository) TopByTrendScore(ctx context.Context, page models.Page) ([]models.NFTCache, int64, error) {
	return findPage[models.NFTCache](ctx, r.collection, bson.M{}, bson.D{{Key: "trendScore", Value: -1}, {Key: "mintedAt", Value: -1}}, page)
}

func (r *NFTRepository) SetTrendScores(ctx context.Context, scores map[string]float64) error {
	if len(scores) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(scores))
	for tokenID, score := range scores {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"tokenId": tokenID}).
			SetUpdate(bson.M{"$set": bson.M{"trendScore": score}}))
	}
	if _, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to update nft trend scores: %v", err)
	}
	return nil
}

func (r *NFTRepository) Search(ctx context.Context, pattern string, limit int) ([]models.NFTCache, error) {
	regex := primitive.Regex{Pattern: pattern, Options: "i"}
	filter := bson.M{"$or": bson.A{bson.M{"metadata.name": regex}, bson.M{"metadata.description": regex}}}
	opts := options.Find().SetSort(bson.D{{Key: "mintedAt", Value: -1}}).SetLimit(int64(limit))
	return findAll[models.NFTCache](ctx, r.collection, filter, opts)
}

func (r *NFTRepository) CountByCreator(ctx context.Context, creator string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"creator": creator})
}
