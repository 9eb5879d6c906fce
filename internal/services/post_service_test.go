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

const bob = "0x4444444444444444444444444444444444444444"

type postFixture struct {
	svc        *PostService
	posts      *fakePosts
	likes      *fakeMarks
	saves      *fakeMarks
	follows    *fakeFollows
	users      *fakeUsers
	activities *fakeActivities
	notifier   *recordingNotifier
	post       *models.Post
}

func newPostFixture() *postFixture {
	f := &postFixture{
		post:       &models.Post{Author: alice, Content: "gm"},
		likes:      &fakeMarks{duplicate: "Post already liked"},
		saves:      &fakeMarks{duplicate: "Post already saved"},
		follows:    &fakeFollows{},
		users:      newFakeUsers(alice, bob),
		activities: &fakeActivities{},
		notifier:   &recordingNotifier{},
	}
	f.posts = newFakePosts(f.post)
	f.svc = NewPostService(f.posts, f.likes, f.saves, f.follows, f.users, NewActivityService(f.activities),
		f.notifier, &fakeContent{}, "https://ipfs.io/ipfs/")
	return f
}

func TestLikePostCountsOnlyNewLikes(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	id := f.post.ID.Hex()

	require.NoError(t, f.svc.LikePost(ctx, bob, id))
	assert.Equal(t, int64(1), f.post.LikeCount)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, alice, f.notifier.sent[0].Recipient)

	err := f.svc.LikePost(ctx, bob, id)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Equal(t, int64(1), f.post.LikeCount)
	assert.Len(t, f.notifier.sent, 1)

	require.NoError(t, f.svc.UnlikePost(ctx, bob, id))
	assert.Equal(t, int64(0), f.post.LikeCount)

	err = f.svc.UnlikePost(ctx, bob, id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, int64(0), f.post.LikeCount)
}

func TestLikePostMissingPost(t *testing.T) {
	f := newPostFixture()

	err := f.svc.LikePost(context.Background(), bob, "not-an-id")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.posts.SoftDelete(context.Background(), f.post.ID)
	require.NoError(t, err)
	err = f.svc.LikePost(context.Background(), bob, f.post.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Empty(t, f.likes.pairs)
}

func TestSavePostCountsOnlyNewSaves(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	id := f.post.ID.Hex()

	require.NoError(t, f.svc.SavePost(ctx, bob, id))
	err := f.svc.SavePost(ctx, bob, id)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Equal(t, int64(1), f.post.SaveCount)

	saved, err := f.svc.SavedPosts(ctx, bob, models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, saved.Posts, 1)
	assert.True(t, saved.Posts[0].IsSaved)
	assert.False(t, saved.Posts[0].IsLiked)

	require.NoError(t, f.svc.UnsavePost(ctx, bob, id))
	err = f.svc.UnsavePost(ctx, bob, id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, int64(0), f.post.SaveCount)
}

func TestCreatePostBumpsAuthorCount(t *testing.T) {
	f := newPostFixture()

	view, err := f.svc.CreatePost(context.Background(), alice, PostInput{
		Content:  "  hello world  ",
		Tags:     []string{"#Go", "go"},
		Mentions: []string{bob, alice, "nope"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", view.Content)
	assert.Equal(t, []string{bob}, view.Mentions)
	assert.NotEmpty(t, view.ContentURI)
	assert.Equal(t, int64(1), f.users.users[alice].PostCount)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, models.NotifyMention, f.notifier.sent[0].Type)
	assert.Equal(t, bob, f.notifier.sent[0].Recipient)

	_, err = f.svc.CreatePost(context.Background(), alice, PostInput{Content: "   "}, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestDeletePostDecrementsOnce(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	f.users.users[alice].PostCount = 1
	id := f.post.ID.Hex()

	err := f.svc.DeletePost(ctx, id, bob)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	assert.Equal(t, int64(1), f.users.users[alice].PostCount)

	require.NoError(t, f.svc.DeletePost(ctx, id, alice))
	assert.Equal(t, models.StatusDeleted, f.post.Status)
	assert.Equal(t, int64(0), f.users.users[alice].PostCount)

	err = f.svc.DeletePost(ctx, id, alice)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, int64(0), f.users.users[alice].PostCount)
}

func TestFeedOnlyFollowedAuthors(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()

	feed, err := f.svc.Feed(ctx, bob, models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)

	require.NoError(t, f.follows.Follow(ctx, bob, alice))
	feed, err = f.svc.Feed(ctx, bob, models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, f.post.ID, feed.Posts[0].ID)
	require.NotNil(t, feed.Posts[0].AuthorDetails)
}
