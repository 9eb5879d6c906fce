package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commentFixture struct {
	svc      *CommentService
	comments *fakeComments
	posts    *fakePosts
	users    *fakeUsers
	notifier *recordingNotifier
	post     *models.Post
}

func newCommentFixture() *commentFixture {
	f := &commentFixture{
		comments: newFakeComments(),
		post:     &models.Post{Author: alice, Content: "gm"},
		users:    newFakeUsers(alice, bob),
		notifier: &recordingNotifier{},
	}
	f.posts = newFakePosts(f.post)
	f.svc = NewCommentService(f.comments, f.posts, f.users, NewActivityService(&fakeActivities{}),
		f.notifier, &fakeContent{}, "https://ipfs.io/ipfs/")
	return f
}

func TestReplyDepthFollowsParent(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	postID := f.post.ID.Hex()

	top, err := f.svc.CreateComment(ctx, bob, postID, CommentInput{Content: "first"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, top.Depth)
	assert.Nil(t, top.ParentID)

	reply, err := f.svc.CreateComment(ctx, alice, postID, CommentInput{Content: "reply", ParentID: top.ID.Hex()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Depth)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, top.ID, *reply.ParentID)

	nested, err := f.svc.CreateComment(ctx, bob, postID, CommentInput{Content: "nested", ParentID: reply.ID.Hex()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, nested.Depth)

	assert.Equal(t, int64(1), f.comments.items[top.ID].ReplyCount)
	assert.Equal(t, int64(1), f.comments.items[reply.ID].ReplyCount)
	assert.Equal(t, int64(3), f.post.CommentCount)
	assert.Equal(t, int64(2), f.users.users[bob].CommentCount)
	assert.Equal(t, int64(1), f.users.users[alice].CommentCount)

	replies, err := f.svc.ListReplies(ctx, top.ID.Hex(), models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, replies.Comments, 1)
	assert.Equal(t, reply.ID, replies.Comments[0].ID)
}

func TestReplyToCommentOnAnotherPost(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	other := &models.Post{Author: bob, Content: "other"}
	_, err := f.posts.CreatePost(ctx, other)
	require.NoError(t, err)

	parent, err := f.svc.CreateComment(ctx, bob, other.ID.Hex(), CommentInput{Content: "elsewhere"}, nil)
	require.NoError(t, err)

	_, err = f.svc.CreateComment(ctx, bob, f.post.ID.Hex(), CommentInput{Content: "reply", ParentID: parent.ID.Hex()}, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, int64(0), f.post.CommentCount)
	assert.Equal(t, int64(0), f.comments.items[parent.ID].ReplyCount)
}

func TestCommentNotifiesPostAuthor(t *testing.T) {
	f := newCommentFixture()

	_, err := f.svc.CreateComment(context.Background(), bob, f.post.ID.Hex(), CommentInput{Content: "nice"}, nil)
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotifyComment, f.notifier.sent[0].Type)
	assert.Equal(t, alice, f.notifier.sent[0].Recipient)

	_, err = f.svc.CreateComment(context.Background(), bob, f.post.ID.Hex(), CommentInput{Content: ""}, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestDeleteCommentDecrementsOnce(t *testing.T) {
	f := newCommentFixture()
	ctx := context.Background()
	postID := f.post.ID.Hex()

	top, err := f.svc.CreateComment(ctx, bob, postID, CommentInput{Content: "first"}, nil)
	require.NoError(t, err)
	reply, err := f.svc.CreateComment(ctx, bob, postID, CommentInput{Content: "reply", ParentID: top.ID.Hex()}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), f.post.CommentCount)

	err = f.svc.DeleteComment(ctx, reply.ID.Hex(), alice)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	require.NoError(t, f.svc.DeleteComment(ctx, reply.ID.Hex(), bob))
	assert.Equal(t, int64(0), f.comments.items[top.ID].ReplyCount)
	assert.Equal(t, int64(1), f.post.CommentCount)
	assert.Equal(t, int64(1), f.users.users[bob].CommentCount)

	err = f.svc.DeleteComment(ctx, reply.ID.Hex(), bob)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, int64(1), f.post.CommentCount)
	assert.Equal(t, int64(1), f.users.users[bob].CommentCount)
}
