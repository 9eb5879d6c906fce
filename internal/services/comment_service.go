package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxCommentLength = 1000

type commentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID primitive.ObjectID, page models.Page) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID primitive.ObjectID, page models.Page) ([]models.Comment, int64, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error
}

// commentedPosts is the part of the post store comments touch.
type commentedPosts interface {
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error
}

type CommentService struct {
	repo     commentStore
	posts    commentedPosts
	users    userCounters
	activity *ActivityService
	notifier Notifier
	content  ContentStore
	authors  authors
}

func NewCommentService(repo commentStore, posts commentedPosts, users userCounters,
	activity *ActivityService, notifier Notifier, content ContentStore, gateway string) *CommentService {
	return &CommentService{
		repo:     repo,
		posts:    posts,
		users:    users,
		activity: activity,
		notifier: notifier,
		content:  content,
		authors:  authors{users: users, gateway: gateway},
	}
}

type CommentInput struct {
	Content  string   `json:"content"`
	ParentID string   `json:"parentId"`
	Mentions []string `json:"mentions"`
}

type CommentList struct {
	Comments   []models.CommentView `json:"comments"`
	Pagination models.Pagination    `json:"pagination"`
}

func parseCommentID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.ErrInvalidInput, "Invalid comment ID")
	}
	return objID, nil
}

// CreateComment adds a comment or a reply and updates the counters it touches.
func (s *CommentService) CreateComment(ctx context.Context, author, postID string, in CommentInput, files []Upload) (*models.CommentView, error) {
	postObjID, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, apperr.Newf(apperr.ErrInvalidInput, "Comment must be at most %d characters", maxCommentLength)
	}

	post, err := s.posts.GetPostByID(ctx, postObjID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postObjID, Author: author, Content: content}
	var parent *models.Comment
	if in.ParentID != "" {
		parentID, err := parseCommentID(in.ParentID)
		if err != nil {
			return nil, err
		}
		parent, err = s.repo.GetCommentByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postObjID {
			return nil, apperr.New(apperr.ErrInvalidInput, "Parent comment belongs to another post")
		}
		comment.ParentID = &parentID
		comment.Depth = parent.Depth + 1
	}

	media, err := pin(ctx, s.content, files)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}
	mentions := cleanMentions(in.Mentions, author)
	comment.Media = media
	comment.ContentURI, err = s.content.AddJSON(ctx, ipfs.NewCommentMetadata(content, mediaURIs(media), mentions))
	if err != nil {
		return nil, fmt.Errorf("failed to upload comment metadata: %w", err)
	}

	comment, err = s.repo.CreateComment(ctx, comment)
	if err != nil {
		return nil, err
	}

	if parent != nil {
		if err := s.repo.IncCounter(ctx, parent.ID, "replyCount", 1); err != nil {
			logrus.WithError(err).Warn("Failed to update reply count")
		}
	}
	if err := s.posts.IncCounter(ctx, postObjID, "commentCount", 1); err != nil {
		logrus.WithError(err).Warn("Failed to update comment count")
	}
	if err := s.users.IncCounter(ctx, author, "commentCount", 1); err != nil {
		logrus.WithError(err).Warn("Failed to update user comment count")
	}

	s.activity.LogActivity(ctx, author, models.ActionComment, comment.ID.Hex())
	s.notifier.Notify(ctx, &models.Notification{
		Recipient:  post.Author,
		Type:       models.NotifyComment,
		Sender:     author,
		Content:    fmt.Sprintf("%s commented on your post", ethutil.ShortenAddress(author, 6, 4)),
		TargetType: "post",
		TargetID:   postID,
	})
	for _, m := range mentions {
		s.notifier.Notify(ctx, &models.Notification{
			Recipient:  m,
			Type:       models.NotifyMention,
			Sender:     author,
			Content:    fmt.Sprintf("%s mentioned you in a comment", ethutil.ShortenAddress(author, 6, 4)),
			TargetType: "comment",
			TargetID:   comment.ID.Hex(),
		})
	}

	views := s.decorate(ctx, []models.Comment{*comment})
	return &views[0], nil
}

// ListComments returns the top-level comments of a post, newest first.
func (s *CommentService) ListComments(ctx context.Context, postID string, page models.Page) (*CommentList, error) {
	objID, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.GetPostByID(ctx, objID); err != nil {
		return nil, err
	}
	comments, total, err := s.repo.ListByPost(ctx, objID, page)
	if err != nil {
		return nil, err
	}
	return &CommentList{Comments: s.decorate(ctx, comments), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// ListReplies returns the replies to a comment, oldest first.
func (s *CommentService) ListReplies(ctx context.Context, commentID string, page models.Page) (*CommentList, error) {
	objID, err := parseCommentID(commentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCommentByID(ctx, objID); err != nil {
		return nil, err
	}
	replies, total, err := s.repo.ListReplies(ctx, objID, page)
	if err != nil {
		return nil, err
	}
	return &CommentList{Comments: s.decorate(ctx, replies), Pagination: models.NewPagination(total, page.Page, page.Limit)}, nil
}

// DeleteComment soft-deletes the author's own comment.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, author string) error {
	objID, err := parseCommentID(commentID)
	if err != nil {
		return err
	}
	comment, err := s.repo.GetCommentByID(ctx, objID)
	if err != nil {
		return err
	}
	if comment.Author != author {
		return apperr.New(apperr.ErrForbidden, "You can only delete your own comments")
	}

	deleted, err := s.repo.SoftDelete(ctx, objID)
	if err != nil || !deleted {
		return err
	}

	if comment.ParentID != nil {
		if err := s.repo.IncCounter(ctx, *comment.ParentID, "replyCount", -1); err != nil {
			logrus.WithError(err).Warn("Failed to update reply count")
		}
	}
	if err := s.posts.IncCounter(ctx, comment.PostID, "commentCount", -1); err != nil {
		logrus.WithError(err).Warn("Failed to update comment count")
	}
	if err := s.users.IncCounter(ctx, author, "commentCount", -1); err != nil {
		logrus.WithError(err).Warn("Failed to update user comment count")
	}
	return nil
}

func (s *CommentService) decorate(ctx context.Context, comments []models.Comment) []models.CommentView {
	addrs := make([]string, 0, len(comments))
	for _, c := range comments {
		addrs = append(addrs, c.Author)
	}
	details := s.authors.details(ctx, addrs)

	views := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, models.CommentView{Comment: c, AuthorDetails: details[c.Author], Replies: c.ReplyCount})
	}
	return views
}
