package services

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	maxBioLength = 500
	balanceTTL   = 60 * time.Second
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

type profileStore interface {
	authorStore
	GetUserByAddress(ctx context.Context, address string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, address string, set bson.M) (*models.User, error)
	IncCounter(ctx context.Context, address, field string, delta int64) error
	Leaderboard(ctx context.Context, page models.Page) ([]models.User, int64, error)
}

type followStore interface {
	Follow(ctx context.Context, follower, following string) error
	Unfollow(ctx context.Context, follower, following string) (bool, error)
	IsFollowing(ctx context.Context, follower, following string) (bool, error)
	Followers(ctx context.Context, address string, page models.Page) ([]models.Follow, int64, error)
	Following(ctx context.Context, address string, page models.Page) ([]models.Follow, int64, error)
}

type subscriptionReader interface {
	GetSubscription(ctx context.Context, address string) (*blockchain.SubscriptionInfo, error)
}

// UserService encapsulates the business logic for profiles and follows.
type UserService struct {
	repo     profileStore
	follows  followStore
	rewards  subscriptionReader
	activity *ActivityService
	notifier Notifier
	content  ContentStore
	chain    blockchain.Chain
	cache    *cache.Cache
	authors  authors
}

// NewUserService creates a new instance of UserService. chain may be nil.
func NewUserService(repo profileStore, follows followStore, rewards subscriptionReader,
	activity *ActivityService, notifier Notifier, content ContentStore, chain blockchain.Chain, c *cache.Cache, gateway string) *UserService {
	return &UserService{
		repo:     repo,
		follows:  follows,
		rewards:  rewards,
		activity: activity,
		notifier: notifier,
		content:  content,
		chain:    chain,
		cache:    c,
		authors:  authors{users: repo, gateway: gateway},
	}
}

func parseAddress(address string) (string, error) {
	if !ethutil.IsValidAddress(address) {
		return "", apperr.New(apperr.ErrInvalidInput, "Invalid wallet address")
	}
	return ethutil.NormalizeAddress(address), nil
}

// Profile is a user as shown to a viewer.
type Profile struct {
	*models.User
	AvatarURL    string                       `json:"avatarURL,omitempty"`
	CoverURL     string                       `json:"coverURL,omitempty"`
	IsFollowing  bool                         `json:"isFollowing"`
	Subscription *blockchain.SubscriptionInfo `json:"subscriptionInfo,omitempty"`
}

// GetProfile retrieves a user by wallet address. viewer may be empty.
func (s *UserService) GetProfile(ctx context.Context, address, viewer string) (*Profile, error) {
	address, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		User:      user,
		AvatarURL: ipfs.ToGatewayURL(user.AvatarURI, s.authors.gateway),
		CoverURL:  ipfs.ToGatewayURL(user.CoverURI, s.authors.gateway),
	}

	if sub, err := s.rewards.GetSubscription(ctx, address); err != nil {
		logrus.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Warn("Failed to load subscription for profile")
	} else {
		profile.Subscription = sub
	}

	if viewer != "" && viewer != address {
		following, err := s.follows.IsFollowing(ctx, viewer, address)
		if err != nil {
			return nil, err
		}
		profile.IsFollowing = following
	}
	return profile, nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are kept.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	ENSName  *string `json:"ensName"`
}

// UpdateProfile validates the update, pins new images and the profile metadata,
// and stores the result.
func (s *UserService) UpdateProfile(ctx context.Context, address string, upd ProfileUpdate, avatar, cover *Upload) (*models.User, error) {
	user, err := s.repo.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if !usernamePattern.MatchString(username) {
			return nil, apperr.New(apperr.ErrInvalidInput, "Username must be 3-30 characters of letters, numbers and underscores")
		}
		if username != user.Username {
			if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
				return nil, apperr.New(apperr.ErrAlreadyExists, "Username already taken")
			}
		}
		user.Username = username
		set["username"] = username
	}
	if upd.Bio != nil {
		if utf8.RuneCountInString(*upd.Bio) > maxBioLength {
			return nil, apperr.Newf(apperr.ErrInvalidInput, "Bio must be at most %d characters", maxBioLength)
		}
		user.Bio = *upd.Bio
		set["bio"] = user.Bio
	}
	if upd.ENSName != nil {
		user.ENSName = strings.TrimSpace(*upd.ENSName)
		set["ensName"] = user.ENSName
	}

	if avatar != nil {
		uri, err := s.content.AddFile(ctx, avatar.Name, avatar.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload avatar: %w", err)
		}
		user.AvatarURI = uri
		set["avatarURI"] = uri
	}
	if cover != nil {
		uri, err := s.content.AddFile(ctx, cover.Name, cover.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload cover: %w", err)
		}
		user.CoverURI = uri
		set["coverURI"] = uri
	}
	if len(set) == 0 {
		return user, nil
	}

	meta := ipfs.NewProfileMetadata(user.Username, user.Bio, user.AvatarURI, user.CoverURI)
	metadataURI, err := s.content.AddJSON(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to upload profile metadata: %w", err)
	}
	set["metadataURI"] = metadataURI

	updated, err := s.repo.UpdateUser(ctx, address, set)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("address", address).Info("Profile updated")
	return updated, nil
}

// Follow makes follower follow target.
func (s *UserService) Follow(ctx context.Context, follower, target string) error {
	target, err := parseAddress(target)
	if err != nil {
		return err
	}
	if follower == target {
		return apperr.New(apperr.ErrInvalidInput, "Cannot follow yourself")
	}
	if _, err := s.repo.GetUserByAddress(ctx, target); err != nil {
		return err
	}

	if err := s.follows.Follow(ctx, follower, target); err != nil {
		return err
	}
	if err := s.repo.IncCounter(ctx, follower, "followingCount", 1); err != nil {
		logrus.WithError(err).Warn("Failed to update following count")
	}
	if err := s.repo.IncCounter(ctx, target, "followerCount", 1); err != nil {
		logrus.WithError(err).Warn("Failed to update follower count")
	}

	s.activity.LogActivity(ctx, follower, models.ActionFollow, target)
	s.notifier.Notify(ctx, &models.Notification{
		Recipient:  target,
		Type:       models.NotifyFollow,
		Sender:     follower,
		Content:    fmt.Sprintf("%s started following you", ethutil.ShortenAddress(follower, 6, 4)),
		TargetType: "user",
		TargetID:   follower,
	})
	return nil
}

// Unfollow removes the edge; counters only move when it existed.
func (s *UserService) Unfollow(ctx context.Context, follower, target string) error {
	target, err := parseAddress(target)
	if err != nil {
		return err
	}
	removed, err := s.follows.Unfollow(ctx, follower, target)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.New(apperr.ErrNotFound, "Not following this user")
	}
	if err := s.repo.IncCounter(ctx, follower, "followingCount", -1); err != nil {
		logrus.WithError(err).Warn("Failed to update following count")
	}
	if err := s.repo.IncCounter(ctx, target, "followerCount", -1); err != nil {
		logrus.WithError(err).Warn("Failed to update follower count")
	}
	return nil
}

type FollowEntry struct {
	Address    string                `json:"address"`
	User       *models.AuthorDetails `json:"user,omitempty"`
	FollowedAt time.Time             `json:"followedAt"`
}

type FollowList struct {
	Users      []FollowEntry     `json:"users"`
	Pagination models.Pagination `json:"pagination"`
}

// Followers lists who follows address, newest first.
func (s *UserService) Followers(ctx context.Context, address string, page models.Page) (*FollowList, error) {
	return s.followList(ctx, address, page, true)
}

// Following lists who address follows, newest first.
func (s *UserService) Following(ctx context.Context, address string, page models.Page) (*FollowList, error) {
	return s.followList(ctx, address, page, false)
}

func (s *UserService) followList(ctx context.Context, address string, page models.Page, followers bool) (*FollowList, error) {
	address, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	var (
		edges []models.Follow
		total int64
	)
	if followers {
		edges, total, err = s.follows.Followers(ctx, address, page)
	} else {
		edges, total, err = s.follows.Following(ctx, address, page)
	}
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(edges))
	for _, e := range edges {
		if followers {
			addrs = append(addrs, e.Follower)
		} else {
			addrs = append(addrs, e.Following)
		}
	}
	details := s.authors.details(ctx, addrs)

	list := &FollowList{Users: make([]FollowEntry, 0, len(edges)), Pagination: models.NewPagination(total, page.Page, page.Limit)}
	for i, e := range edges {
		list.Users = append(list.Users, FollowEntry{Address: addrs[i], User: details[addrs[i]], FollowedAt: e.CreatedAt})
	}
	return list, nil
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	Address       string `json:"address"`
	Username      string `json:"username"`
	AvatarURI     string `json:"avatarURI"`
	Points        int64  `json:"points"`
	CheckInStreak int    `json:"checkInStreak"`
	IsVerified    bool   `json:"isVerified"`
}

type Leaderboard struct {
	Users      []LeaderboardEntry `json:"users"`
	Pagination models.Pagination  `json:"pagination"`
}

// GetLeaderboard ranks active users by points.
func (s *UserService) GetLeaderboard(ctx context.Context, page models.Page) (*Leaderboard, error) {
	users, total, err := s.repo.Leaderboard(ctx, page)
	if err != nil {
		return nil, err
	}
	board := &Leaderboard{Users: make([]LeaderboardEntry, 0, len(users)), Pagination: models.NewPagination(total, page.Page, page.Limit)}
	for i, u := range users {
		board.Users = append(board.Users, LeaderboardEntry{
			Rank:          int(page.Skip()) + i + 1,
			Address:       u.WalletAddress,
			Username:      u.Username,
			AvatarURI:     ipfs.ToGatewayURL(u.AvatarURI, s.authors.gateway),
			Points:        u.Points,
			CheckInStreak: u.CheckInStreak,
			IsVerified:    u.IsVerified,
		})
	}
	return board, nil
}

// TokenBalance is a wallet's DX balance in wei and in DX.
type TokenBalance struct {
	Address string `json:"address"`
	Wei     string `json:"wei"`
	Balance string `json:"balance"`
}

// GetBalance reads the DX balance from chain, cached briefly.
func (s *UserService) GetBalance(ctx context.Context, address string) (*TokenBalance, error) {
	address, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	if s.chain == nil {
		return nil, apperr.New(apperr.ErrUnavailable, "Blockchain is not configured")
	}

	v, err := s.cache.GetOrFetch(balanceCacheKey(address), balanceTTL, func() (interface{}, error) {
		return s.chain.BalanceOf(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	wei := v.(*big.Int)
	return &TokenBalance{Address: address, Wei: wei.String(), Balance: ethutil.FormatTokenAmount(wei)}, nil
}
