package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/internal/repository"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/sirupsen/logrus"
)

const (
	minQueryLength     = 2
	defaultSearchLimit = 10
	userSearchLimit    = 20
)

var searchTypes = map[string]bool{"users": true, "posts": true, "nfts": true, "tags": true}

type SearchService struct {
	users   *repository.UserRepository
	postRep *repository.PostRepository
	nftRep  *repository.NFTRepository
	posts   *PostService
	nfts    *NFTService
	gateway string
}

func NewSearchService(users *repository.UserRepository, postRep *repository.PostRepository, nftRep *repository.NFTRepository,
	posts *PostService, nfts *NFTService, gateway string) *SearchService {
	return &SearchService{users: users, postRep: postRep, nftRep: nftRep, posts: posts, nfts: nfts, gateway: gateway}
}

// UserHit is a user as shown in search results.
type UserHit struct {
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
	ENSName       string `json:"ensName,omitempty"`
	Bio           string `json:"bio"`
	AvatarURL     string `json:"avatarURL,omitempty"`
	FollowerCount int64  `json:"followerCount"`
	IsVerified    bool   `json:"isVerified"`
}

type SearchResults struct {
	Users []UserHit             `json:"users,omitempty"`
	Posts []models.PostView     `json:"posts,omitempty"`
	NFTs  []models.NFTView      `json:"nfts,omitempty"`
	Tags  []repository.TagCount `json:"tags,omitempty"`
}

// searchPattern validates a free-text query and escapes it for a regex match.
func searchPattern(query string) (string, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < minQueryLength {
		return "", apperr.Newf(apperr.ErrInvalidInput, "Search query must be at least %d characters", minQueryLength)
	}
	return regexp.QuoteMeta(q), nil
}

// Search runs the query against one type, or every type when searchType is empty.
func (s *SearchService) Search(ctx context.Context, query, searchType, viewer string, limit int) (*SearchResults, error) {
	pattern, err := searchPattern(query)
	if err != nil {
		return nil, err
	}
	if searchType != "" && !searchTypes[searchType] {
		return nil, apperr.Newf(apperr.ErrInvalidInput, "Invalid search type: %s", searchType)
	}
	if limit < 1 || limit > models.MaxPageLimit {
		limit = defaultSearchLimit
	}
	all := searchType == ""

	res := &SearchResults{}
	if all || searchType == "users" {
		users, err := s.users.Search(ctx, pattern, limit, false)
		if err != nil {
			return nil, err
		}
		res.Users = s.userHits(users)
	}
	if all || searchType == "posts" {
		posts, err := s.postRep.Search(ctx, pattern, limit)
		if err != nil {
			return nil, err
		}
		res.Posts = s.posts.decorate(ctx, viewer, posts)
	}
	if all || searchType == "nfts" {
		nfts, err := s.nftRep.Search(ctx, pattern, limit)
		if err != nil {
			return nil, err
		}
		res.NFTs = s.nfts.decorate(ctx, nfts)
	}
	if all || searchType == "tags" {
		tags, err := s.postRep.SearchTags(ctx, strings.TrimPrefix(pattern, "#"), limit)
		if err != nil {
			return nil, err
		}
		res.Tags = tags
	}

	logrus.WithFields(logrus.Fields{
		"query": query,
		"type":  searchType,
	}).Debug("Search executed")
	return res, nil
}

// SearchUsers returns up to 20 matching users, most followed first.
func (s *SearchService) SearchUsers(ctx context.Context, query string) ([]UserHit, error) {
	pattern, err := searchPattern(query)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Search(ctx, pattern, userSearchLimit, true)
	if err != nil {
		return nil, err
	}
	return s.userHits(users), nil
}

// PostsByTag returns the active posts carrying tag.
func (s *SearchService) PostsByTag(ctx context.Context, tag, viewer string, page models.Page) (*PostList, error) {
	return s.posts.ListByTag(ctx, tag, viewer, page)
}

func (s *SearchService) userHits(users []models.User) []UserHit {
	hits := make([]UserHit, 0, len(users))
	for _, u := range users {
		hits = append(hits, UserHit{
			WalletAddress: u.WalletAddress,
			Username:      u.Username,
			ENSName:       u.ENSName,
			Bio:           u.Bio,
			AvatarURL:     ipfs.ToGatewayURL(u.AvatarURI, s.gateway),
			FollowerCount: u.FollowerCount,
			IsVerified:    u.IsVerified,
		})
	}
	return hits
}
