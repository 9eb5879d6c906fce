package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxPostLength = 5000
	// trendingLookback bounds the live trending query.
	trendingLookback = 3 * 24 * time.Hour
)

type postStore interface {
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error
	ListPosts(ctx context.Context, filter bson.M, page models.Page) ([]models.Post, int64, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)
	TrendingPosts(ctx context.Context, since time.Time, now time.Time, page models.Page) ([]models.Post, int64, error)
}

// postMarks is a per-user set of posts, such as likes or saves.
type postMarks interface {
	Add(ctx context.Context, user string, postID primitive.ObjectID) error
	Remove(ctx context.Context, user string, postID primitive.ObjectID) (bool, error)
	Marked(ctx context.Context, user string, postIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	PostIDs(ctx context.Context, user string, page models.Page) ([]primitive.ObjectID, int64, error)
}

type followingLister interface {
	FollowingAddresses(ctx context.Context, address string) ([]string, error)
}

// PostService encapsulates the business logic for posts, likes and saves.
type PostService struct {
	repo     postStore
	likes    postMarks
	saves    postMarks
	follows  followingLister
	users    userCounters
	activity *ActivityService
	notifier Notifier
	content  ContentStore
	authors  authors
}

func NewPostService(repo postStore, likes, saves postMarks, follows followingLister,
	users userCounters, activity *ActivityService, notifier Notifier, content ContentStore, gateway string) *PostService {
	return &PostService{
		repo:     repo,
		likes:    likes,
		saves:    saves,
		follows:  follows,
		users:    users,
		activity: activity,
		notifier: notifier,
		content:  content,
		authors:  authors{users: users, gateway: gateway},
	}
}

type PostInput struct {
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Mentions []string `json:"mentions"`
}

type PostList struct {
	Posts      []models.PostView `json:"posts"`
	Pagination models.Pagination `json:"pagination"`
}

func parsePostID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.ErrInvalidInput, "Invalid post ID")
	}
	return objID, nil
}

// cleanMentions keeps valid, distinct addresses other than the author.
func cleanMentions(mentions []string, author string) []string {
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if !ethutil.IsValidAddress(m) {
			continue
		}
		if m = ethutil.NormalizeAddress(m); m != author {
			out = append(out, m)
		}
	}
	return unique(out)
}

// CreatePost pins media and metadata to IPFS and stores the post.
func (s *PostService) CreatePost(ctx context.Context, author string, in PostInput, files []Upload) (*models.PostView, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		logger.Log.Warn("Post content is empty during creation")
		return nil, apperr.New(apperr.ErrInvalidInput, "Post content is required")
	}
	if utf8.RuneCountInString(content) > maxPostLength {
		return nil, apperr.Newf(apperr.ErrInvalidInput, "Post content must be at most %d characters", maxPostLength)
	}
	tags := cleanTags(in.Tags)
	mentions := cleanMentions(in.Mentions, author)

	media, err := pin(ctx, s.content, files)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}
	contentURI, err := s.content.AddJSON(ctx, ipfs.NewPostMetadata(content, mediaURIs(media), tags, mentions))
	if err != nil {
		return nil, fmt.Errorf("failed to upload post metadata: %w", err)
	}

	post, err := s.repo.CreatePost(ctx, &models.Post{
		Author:     author,
		Content:    content,
		ContentURI: contentURI,
		Media:      media,
		Tags:       tags,
		Mentions:   mentions,
	})
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create post")
		return nil, err
	}

	if err := s.users.IncCounter(ctx, author, "postCount", 1); err != nil {
		logrus.WithError(err).Warn("Failed to update post count")
	}
	s.activity.LogActivity(ctx, author, models.ActionPost, post.ID.Hex())
	for _, m := range mentions {
		s.notifier.Notify(ctx, &models.Notification{
			Recipient:  m,
			Type:       models.NotifyMention,
			Sender:     author,
			Content:    fmt.Sprintf("%s mentioned you in a post", ethutil.ShortenAddress(author, 6, 4)),
			TargetType: "post",
			TargetID:   post.ID.Hex(),
		})
	}

	views := s.decorate(ctx, author, []models.Post{*post})
	return &views[0], nil
}

// GetPost returns an active post and counts the view.
func (s *PostService) GetPost(ctx context.Context, id, viewer string) (*models.PostView, error) {
	objID, err := parsePostID(id)
	if err != nil {
		return nil, err
	}
	post, err := s.repo.IncrementViews(ctx, objID)
	if err != nil {
		return nil, err
	}
	views := s.decorate(ctx, viewer, []models.Post{*post})
	return &views[0], nil
}

// DeletePost soft-deletes the author's own post.
func (s *PostService) DeletePost(ctx context.Context, id, author string) error {
	objID, err := parsePostID(id)
	if err != nil {
		return err
	}
	post, err := s.repo.GetPostByID(ctx, objID)
	if err != nil {
		return err
	}
	if post.Author != author {
		return apperr.New(apperr.ErrForbidden, "You can only delete your own posts")
	}

	deleted, err := s.repo.SoftDelete(ctx, objID)
	if err != nil {
		return err
	}
	if deleted {
		if err := s.users.IncCounter(ctx, author, "postCount", -1); err != nil {
			logrus.WithError(err).Warn("Failed to update post count")
		}
	}
	logger.Log.WithField("postID", id).Info("Post deleted")
	return nil
}

func (s *PostService) list(ctx context.Context, viewer string, filter bson.M, page models.Page) (*PostList, error) {
	posts, total, err := s.repo.ListPosts(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &PostList{Posts: s.decorate(ctx, viewer, posts), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// ListPosts returns all active posts, newest first.
func (s *PostService) ListPosts(ctx context.Context, viewer string, page models.Page) (*PostList, error) {
	return s.list(ctx, viewer, bson.M{}, page)
}

// ListByAuthor returns an author's active posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, author, viewer string, page models.Page) (*PostList, error) {
	author, err := parseAddress(author)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, viewer, bson.M{"author": author}, page)
}

// ListByTag returns active posts carrying tag.
func (s *PostService) ListByTag(ctx context.Context, tag, viewer string, page models.Page) (*PostList, error) {
	tags := cleanTags([]string{tag})
	if len(tags) == 0 {
		return nil, apperr.New(apperr.ErrInvalidInput, "Tag is required")
	}
	return s.list(ctx, viewer, bson.M{"tags": tags[0]}, page)
}

// Feed returns posts from the accounts the viewer follows.
func (s *PostService) Feed(ctx context.Context, viewer string, page models.Page) (*PostList, error) {
	following, err := s.follows.FollowingAddresses(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if len(following) == 0 {
		return &PostList{Posts: []models.PostView{}, Pagination: models.NewPagination(0, page.Page, page.Limit)}, nil
	}
	return s.list(ctx, viewer, bson.M{"author": bson.M{"$in": following}}, page)
}

// Trending scores the last three days of posts live in the database.
func (s *PostService) Trending(ctx context.Context, viewer string, page models.Page) (*PostList, error) {
	now := time.Now()
	posts, total, err := s.repo.TrendingPosts(ctx, now.Add(-trendingLookback), now, page)
	if err != nil {
		return nil, err
	}
	return &PostList{Posts: s.decorate(ctx, viewer, posts), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// LikePost records the like, bumps likeCount and notifies the author.
func (s *PostService) LikePost(ctx context.Context, user, id string) error {
	objID, err := parsePostID(id)
	if err != nil {
		return err
	}
	post, err := s.repo.GetPostByID(ctx, objID)
	if err != nil {
		return err
	}
	if err := s.likes.Add(ctx, user, objID); err != nil {
		return err
	}
	if err := s.repo.IncCounter(ctx, objID, "likeCount", 1); err != nil {
		return err
	}

	s.activity.LogActivity(ctx, user, models.ActionLike, id)
	s.notifier.Notify(ctx, &models.Notification{
		Recipient:  post.Author,
		Type:       models.NotifyLike,
		Sender:     user,
		Content:    fmt.Sprintf("%s liked your post", ethutil.ShortenAddress(user, 6, 4)),
		TargetType: "post",
		TargetID:   id,
	})
	return nil
}

func (s *PostService) UnlikePost(ctx context.Context, user, id string) error {
	objID, err := parsePostID(id)
	if err != nil {
		return err
	}
	removed, err := s.likes.Remove(ctx, user, objID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.New(apperr.ErrNotFound, "Post not liked")
	}
	return s.repo.IncCounter(ctx, objID, "likeCount", -1)
}

func (s *PostService) SavePost(ctx context.Context, user, id string) error {
	objID, err := parsePostID(id)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetPostByID(ctx, objID); err != nil {
		return err
	}
	if err := s.saves.Add(ctx, user, objID); err != nil {
		return err
	}
	return s.repo.IncCounter(ctx, objID, "saveCount", 1)
}

func (s *PostService) UnsavePost(ctx context.Context, user, id string) error {
	objID, err := parsePostID(id)
	if err != nil {
		return err
	}
	removed, err := s.saves.Remove(ctx, user, objID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.New(apperr.ErrNotFound, "Post not saved")
	}
	return s.repo.IncCounter(ctx, objID, "saveCount", -1)
}

// SavedPosts returns the user's saved posts in the order they were saved.
func (s *PostService) SavedPosts(ctx context.Context, user string, page models.Page) (*PostList, error) {
	ids, total, err := s.saves.PostIDs(ctx, user, page)
	if err != nil {
		return nil, err
	}
	posts, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return &PostList{Posts: s.decorate(ctx, user, ordered), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// decorate embeds author details and the viewer's like/save marks.
func (s *PostService) decorate(ctx context.Context, viewer string, posts []models.Post) []models.PostView {
	ids := make([]primitive.ObjectID, 0, len(posts))
	addrs := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		addrs = append(addrs, p.Author)
	}
	details := s.authors.details(ctx, addrs)

	liked, err := s.likes.Marked(ctx, viewer, ids)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load likes")
	}
	saved, err := s.saves.Marked(ctx, viewer, ids)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load saves")
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, models.PostView{
			Post:          p,
			AuthorDetails: details[p.Author],
			IsLiked:       liked[p.ID],
			IsSaved:       saved[p.ID],
		})
	}
	return views
}
