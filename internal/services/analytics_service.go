package services

import (
	"context"
	"math"
	"time"

	"github.com/dxsocial/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrendingWindow is how far back stored post scores are recomputed.
const TrendingWindow = 7 * 24 * time.Hour

func hoursSince(t, now time.Time) float64 {
	h := now.Sub(t).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// PostTrendScore is (likes·3 + comments·2 + saves + views/10) / (hours+2)^1.5.
func PostTrendScore(likes, comments, saves, views int64, createdAt, now time.Time) float64 {
	engagement := float64(likes)*3 + float64(comments)*2 + float64(saves) + float64(views)/10
	return engagement / math.Pow(hoursSince(createdAt, now)+2, 1.5)
}

// NFTTrendScore is (views/5 + likes·2 + forSale·10) / (hours+2)^1.3.
// A zero mintedAt counts as minted now.
func NFTTrendScore(views, likes int64, forSale bool, mintedAt, now time.Time) float64 {
	if mintedAt.IsZero() {
		mintedAt = now
	}
	engagement := float64(views)/5 + float64(likes)*2
	if forSale {
		engagement += 10
	}
	return engagement / math.Pow(hoursSince(mintedAt, now)+2, 1.3)
}

type AnalyticsService struct {
	posts    *repository.PostRepository
	nfts     *repository.NFTRepository
	comments *repository.CommentRepository
	users    *repository.UserRepository
}

func NewAnalyticsService(posts *repository.PostRepository, nfts *repository.NFTRepository, comments *repository.CommentRepository, users *repository.UserRepository) *AnalyticsService {
	return &AnalyticsService{posts: posts, nfts: nfts, comments: comments, users: users}
}

// UpdateTrendingScores recomputes stored scores of recent posts and of all NFTs.
func (s *AnalyticsService) UpdateTrendingScores(ctx context.Context) error {
	start := time.Now()
	now := start

	posts, err := s.posts.ActiveSince(ctx, now.Add(-TrendingWindow))
	if err != nil {
		return err
	}
	postScores := make(map[primitive.ObjectID]float64, len(posts))
	for _, p := range posts {
		postScores[p.ID] = PostTrendScore(p.LikeCount, p.CommentCount, p.SaveCount, p.ViewCount, p.CreatedAt, now)
	}
	if err := s.posts.SetTrendScores(ctx, postScores); err != nil {
		return err
	}

	nfts, err := s.nfts.All(ctx)
	if err != nil {
		return err
	}
	nftScores := make(map[string]float64, len(nfts))
	for _, n := range nfts {
		nftScores[n.TokenID] = NFTTrendScore(n.ViewCount, n.LikeCount, n.ForSale, n.MintedAt, now)
	}
	if err := s.nfts.SetTrendScores(ctx, nftScores); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"posts":    len(postScores),
		"nfts":     len(nftScores),
		"duration": time.Since(start).String(),
	}).Info("Trending scores updated")
	return nil
}

type UserStats struct {
	Address      string `json:"address"`
	PostCount    int64  `json:"postCount"`
	NFTCount     int64  `json:"nftCount"`
	CommentCount int64  `json:"commentCount"`
}

// CalculateUserStats recounts the user's content and stores the counters.
func (s *AnalyticsService) CalculateUserStats(ctx context.Context, address string) (*UserStats, error) {
	if _, err := s.users.GetUserByAddress(ctx, address); err != nil {
		return nil, err
	}
	posts, err := s.posts.CountByAuthor(ctx, address)
	if err != nil {
		return nil, err
	}
	nfts, err := s.nfts.CountByCreator(ctx, address)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.CountByAuthor(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetStats(ctx, address, posts, nfts, comments); err != nil {
		return nil, err
	}
	return &UserStats{Address: address, PostCount: posts, NFTCount: nfts, CommentCount: comments}, nil
}
