package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/internal/repository"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxRoyaltyPercent = 10
	localDevTxHash    = "local-dev-tx"
)

// NFTService mints media NFTs and serves the NFT cache.
type NFTService struct {
	repo       *repository.NFTRepository
	users      *repository.UserRepository
	activity   *ActivityService
	content    ContentStore
	chain      blockchain.Chain
	sync       *SyncService
	production bool
	authors    authors
}

// NewNFTService builds the service. chain may be nil; outside production a
// local token id is used then.
func NewNFTService(repo *repository.NFTRepository, users *repository.UserRepository, activity *ActivityService, content ContentStore,
	chain blockchain.Chain, sync *SyncService, production bool, gateway string) *NFTService {
	return &NFTService{
		repo:       repo,
		users:      users,
		activity:   activity,
		content:    content,
		chain:      chain,
		sync:       sync,
		production: production,
		authors:    authors{users: users, gateway: gateway},
	}
}

type MintInput struct {
	Name           string
	Description    string
	MediaType      string
	RoyaltyPercent float64
	Tags           []string
}

func validateMint(in *MintInput, file *Upload) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if n := utf8.RuneCountInString(in.Name); n < 3 || n > 100 {
		return apperr.New(apperr.ErrInvalidInput, "Name must be 3-100 characters")
	}
	if n := utf8.RuneCountInString(in.Description); n < 1 || n > 1000 {
		return apperr.New(apperr.ErrInvalidInput, "Description must be 1-1000 characters")
	}
	if in.RoyaltyPercent < 0 || in.RoyaltyPercent > maxRoyaltyPercent {
		return apperr.Newf(apperr.ErrInvalidInput, "Royalty must be between 0 and %d percent", maxRoyaltyPercent)
	}
	if file == nil {
		return apperr.New(apperr.ErrInvalidInput, "Media file is required")
	}
	if in.MediaType == "" {
		in.MediaType = ipfs.MediaType(file.MimeType)
	}
	return nil
}

// MintNFT pins the media and its metadata and mints the token through the platform signer.
func (s *NFTService) MintNFT(ctx context.Context, creator string, in MintInput, file *Upload) (*models.NFTView, error) {
	if err := validateMint(&in, file); err != nil {
		return nil, err
	}
	if s.chain == nil && s.production {
		return nil, apperr.New(apperr.ErrUnavailable, "Blockchain is not configured")
	}

	imageURI, err := s.content.AddFile(ctx, file.Name, file.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	attrs := []ipfs.Attribute{
		{TraitType: "Creator", Value: creator},
		{TraitType: "Media Type", Value: in.MediaType},
	}
	for _, tag := range cleanTags(in.Tags) {
		attrs = append(attrs, ipfs.Attribute{TraitType: "Tag", Value: tag})
	}
	meta := ipfs.NewNFTMetadata(in.Name, in.Description, imageURI, attrs)
	tokenURI, err := s.content.AddJSON(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to upload metadata: %w", err)
	}

	var tokenID, txHash string
	if s.chain != nil {
		res, err := s.chain.MintNFT(ctx, tokenURI, in.MediaType, int64(in.RoyaltyPercent*100))
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"creator": creator,
				"error":   err,
			}).Error("NFT mint failed")
			return nil, fmt.Errorf("failed to mint NFT: %w", err)
		}
		tokenID, txHash = res.TokenID, res.TxHash
	} else {
		tokenID, txHash = "local-"+primitive.NewObjectID().Hex(), localDevTxHash
		logger.Log.WithField("tokenId", tokenID).Warn("No blockchain configured, using a local token id")
	}

	now := time.Now()
	nftAttrs := make([]models.NFTAttribute, 0, len(attrs))
	for _, a := range attrs {
		nftAttrs = append(nftAttrs, models.NFTAttribute{TraitType: a.TraitType, Value: a.Value})
	}
	nft := &models.NFTCache{
		TokenID:  tokenID,
		Creator:  creator,
		Owner:    creator,
		TokenURI: tokenURI,
		Metadata: models.NFTMetadata{
			Name:        meta.Name,
			Description: meta.Description,
			Image:       imageURI,
			Attributes:  nftAttrs,
		},
		MediaType:      in.MediaType,
		Price:          "0",
		RoyaltyPercent: in.RoyaltyPercent,
		Transactions: []models.NFTTransaction{{
			Type:      models.TxMint,
			From:      ethutil.ZeroAddress,
			To:        creator,
			Price:     "0",
			Timestamp: now,
			TxHash:    txHash,
		}},
		MintedAt: now,
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, nft)
	if err != nil {
		return nil, err
	}
	if inserted {
		if err := s.users.IncCounter(ctx, creator, "nftCount", 1); err != nil {
			logrus.WithError(err).Warn("Failed to update nft count")
		}
	}
	s.activity.LogActivity(ctx, creator, models.ActionMintNFT, tokenID)

	logger.Log.WithFields(logrus.Fields{
		"tokenId": tokenID,
		"creator": creator,
		"tx":      txHash,
	}).Info("NFT minted")
	return s.GetNFT(ctx, tokenID, false)
}

// NFTFilter narrows ListNFTs. Empty fields match everything.
type NFTFilter struct {
	Creator   string
	Owner     string
	MediaType string
	ForSale   *bool
}

type NFTList struct {
	NFTs       []models.NFTView  `json:"nfts"`
	Pagination models.Pagination `json:"pagination"`
}

func (s *NFTService) ListNFTs(ctx context.Context, f NFTFilter, page models.Page) (*NFTList, error) {
	filter := bson.M{}
	if f.Creator != "" {
		filter["creator"] = ethutil.NormalizeAddress(f.Creator)
	}
	if f.Owner != "" {
		filter["owner"] = ethutil.NormalizeAddress(f.Owner)
	}
	if f.MediaType != "" {
		filter["mediaType"] = f.MediaType
	}
	if f.ForSale != nil {
		filter["forSale"] = *f.ForSale
	}

	nfts, total, err := s.repo.ListNFTs(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &NFTList{NFTs: s.decorate(ctx, nfts), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// GetNFT returns one cached NFT, counting the view when countView is set.
func (s *NFTService) GetNFT(ctx context.Context, tokenID string, countView bool) (*models.NFTView, error) {
	var (
		nft *models.NFTCache
		err error
	)
	if countView {
		nft, err = s.repo.IncrementViews(ctx, tokenID)
	} else {
		nft, err = s.repo.GetByTokenID(ctx, tokenID)
	}
	if err != nil {
		return nil, err
	}
	views := s.decorate(ctx, []models.NFTCache{*nft})
	return &views[0], nil
}

// Trending returns NFTs by stored trend score.
func (s *NFTService) Trending(ctx context.Context, page models.Page) (*NFTList, error) {
	nfts, total, err := s.repo.TopByTrendScore(ctx, page)
	if err != nil {
		return nil, err
	}
	return &NFTList{NFTs: s.decorate(ctx, nfts), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// RefreshNFT reconciles one token with chain and returns the cached result.
func (s *NFTService) RefreshNFT(ctx context.Context, tokenID string) (*models.NFTView, error) {
	if err := s.sync.RefreshNFT(ctx, tokenID); err != nil {
		return nil, err
	}
	return s.GetNFT(ctx, tokenID, false)
}

func (s *NFTService) decorate(ctx context.Context, nfts []models.NFTCache) []models.NFTView {
	addrs := make([]string, 0, 2*len(nfts))
	for _, n := range nfts {
		addrs = append(addrs, n.Creator, n.Owner)
	}
	details := s.authors.details(ctx, addrs)

	views := make([]models.NFTView, 0, len(nfts))
	for _, n := range nfts {
		n.Metadata.Image = ipfs.ToGatewayURL(n.Metadata.Image, s.authors.gateway)
		views = append(views, models.NFTView{
			NFTCache:       n,
			CreatorDetails: details[n.Creator],
			OwnerDetails:   details[n.Owner],
		})
	}
	return views
}
