package services

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/ipfs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeChain struct {
	mu           sync.Mutex
	subs         map[string]*blockchain.SubscriptionInfo
	subErr       error
	head         uint64
	events       []blockchain.Event
	filtered     [][2]uint64
	tokens       map[string]*models.ChainNFTState
	minted       map[string]*big.Int
	marketplace  string
	blockTimeVal time.Time
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		subs:         map[string]*blockchain.SubscriptionInfo{},
		tokens:       map[string]*models.ChainNFTState{},
		minted:       map[string]*big.Int{},
		marketplace:  "0x00000000000000000000000000000000000000aa",
		blockTimeVal: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (c *fakeChain) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *fakeChain) GetSubscription(ctx context.Context, address string) (*blockchain.SubscriptionInfo, error) {
	if c.subErr != nil {
		return nil, c.subErr
	}
	if s, ok := c.subs[address]; ok {
		return s, nil
	}
	return &blockchain.SubscriptionInfo{}, nil
}

func (c *fakeChain) SubscriptionFee(ctx context.Context, level int) (*big.Int, error) {
	return big.NewInt(int64(level)), nil
}

func (c *fakeChain) TokenCounter(ctx context.Context) (uint64, error) {
	return uint64(len(c.tokens)), nil
}

func (c *fakeChain) NFTState(ctx context.Context, tokenID string) (*models.ChainNFTState, error) {
	s, ok := c.tokens[tokenID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "token not found")
	}
	return s, nil
}

func (c *fakeChain) MintNFT(ctx context.Context, tokenURI, mediaType string, royaltyBps int64) (*blockchain.MintResult, error) {
	return &blockchain.MintResult{TokenID: "1", TokenURI: tokenURI, TxHash: "0xmint"}, nil
}

func (c *fakeChain) MintTokens(ctx context.Context, to string, amount *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total, ok := c.minted[to]
	if !ok {
		total = new(big.Int)
		c.minted[to] = total
	}
	total.Add(total, amount)
	return "0xreward", nil
}

func (c *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return c.head, nil
}

func (c *fakeChain) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	return c.blockTimeVal, nil
}

func (c *fakeChain) FilterEvents(ctx context.Context, from, to uint64) ([]blockchain.Event, error) {
	c.filtered = append(c.filtered, [2]uint64{from, to})
	var out []blockchain.Event
	for _, ev := range c.events {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (c *fakeChain) MarketplaceAddress() string {
	return c.marketplace
}

type fakeTasks struct {
	tasks map[primitive.ObjectID]*models.Task
}

func newFakeTasks(tasks ...*models.Task) *fakeTasks {
	f := &fakeTasks{tasks: map[primitive.ObjectID]*models.Task{}}
	for _, t := range tasks {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.ID = primitive.NewObjectID()
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTasks) GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "Task not found")
	}
	return t, nil
}

func (f *fakeTasks) GetActiveTaskByName(ctx context.Context, name string) (*models.Task, error) {
	for _, t := range f.tasks {
		if t.Name == name && t.IsActive {
			return t, nil
		}
	}
	return nil, apperr.New(apperr.ErrNotFound, "Task not found")
}

func (f *fakeTasks) ListActive(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) UpdateTask(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "Task not found")
	}
	if v, ok := set["isActive"].(bool); ok {
		t.IsActive = v
	}
	return t, nil
}

type fakeCompletions struct {
	done []models.CompletedTask
}

func (f *fakeCompletions) Insert(ctx context.Context, c *models.CompletedTask) error {
	for _, d := range f.done {
		if d.User == c.User && d.TaskID == c.TaskID && d.CompletedForDate.Equal(c.CompletedForDate) {
			return apperr.New(apperr.ErrAlreadyExists, "Task already completed today")
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	f.done = append(f.done, *c)
	return nil
}

func (f *fakeCompletions) Find(ctx context.Context, user string, taskID primitive.ObjectID, period time.Time) (*models.CompletedTask, error) {
	for i, d := range f.done {
		if d.User == user && d.TaskID == taskID && d.CompletedForDate.Equal(period) {
			return &f.done[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCompletions) ListSince(ctx context.Context, user string, since time.Time) ([]models.CompletedTask, error) {
	var out []models.CompletedTask
	for _, d := range f.done {
		if d.User == user && !d.CreatedAt.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeCompletions) DeleteRecurringBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := f.done[:0]
	var n int64
	for _, d := range f.done {
		if d.CreatedAt.Before(cutoff) && d.CompletedForDate.After(models.OneTimePeriod) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.done = kept
	return n, nil
}

type fakeCheckIns struct {
	items []models.CheckIn
}

func (f *fakeCheckIns) Insert(ctx context.Context, c *models.CheckIn) error {
	f.items = append(f.items, *c)
	return nil
}

func (f *fakeCheckIns) Latest(ctx context.Context, user string) (*models.CheckIn, error) {
	var latest *models.CheckIn
	for i, c := range f.items {
		if c.User == user && (latest == nil || c.Date.After(latest.Date)) {
			latest = &f.items[i]
		}
	}
	return latest, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func newFakeUsers(addresses ...string) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for _, a := range addresses {
		f.users[a] = &models.User{ID: primitive.NewObjectID(), WalletAddress: a, Status: models.UserStatusActive, Role: models.RoleUser}
	}
	return f
}

func (f *fakeUsers) GetUserByAddress(ctx context.Context, address string) (*models.User, error) {
	u, ok := f.users[address]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "User not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) AddPoints(ctx context.Context, address string, points int64) error {
	f.users[address].Points += points
	return nil
}

func (f *fakeUsers) RecordCheckIn(ctx context.Context, address string, points int64, streak int, at time.Time) error {
	u := f.users[address]
	u.Points += points
	u.CheckInStreak = streak
	u.LastCheckIn = &at
	return nil
}

func (f *fakeUsers) UpdateSubscription(ctx context.Context, address string, sub models.Subscription) error {
	u, ok := f.users[address]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "User not found")
	}
	u.Subscription = sub
	return nil
}

func (f *fakeUsers) IncCounter(ctx context.Context, address, field string, delta int64) error {
	u, ok := f.users[address]
	if !ok {
		return nil
	}
	switch field {
	case "nftCount":
		u.NFTCount += delta
	case "postCount":
		u.PostCount += delta
	case "commentCount":
		u.CommentCount += delta
	case "followerCount":
		u.FollowerCount += delta
	case "followingCount":
		u.FollowingCount += delta
	}
	return nil
}

func (f *fakeUsers) GetUsersByAddresses(ctx context.Context, addresses []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(addresses))
	for _, a := range addresses {
		if u, ok := f.users[a]; ok {
			cp := *u
			out[a] = &cp
		}
	}
	return out, nil
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.ErrNotFound, "User not found")
}

func (f *fakeUsers) UpdateUser(ctx context.Context, address string, set bson.M) (*models.User, error) {
	u, ok := f.users[address]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "User not found")
	}
	if v, ok := set["username"].(string); ok {
		u.Username = v
	}
	if v, ok := set["bio"].(string); ok {
		u.Bio = v
	}
	if v, ok := set["metadataURI"].(string); ok {
		u.MetadataURI = v
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Leaderboard(ctx context.Context, page models.Page) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	return out, int64(len(out)), nil
}

func (f *fakeUsers) GetSubscribedUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.Subscription.Level > 1 {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletAddress < out[j].WalletAddress })
	return out, nil
}

func (f *fakeUsers) SetNonce(ctx context.Context, address, nonce string, expiry time.Time) error {
	u, ok := f.users[address]
	if !ok {
		u = &models.User{ID: primitive.NewObjectID(), WalletAddress: address, Status: models.UserStatusActive, Role: models.RoleUser}
		f.users[address] = u
	}
	u.Nonce = nonce
	u.NonceExpiry = &expiry
	return nil
}

func (f *fakeUsers) CompleteLogin(ctx context.Context, address, refreshToken, role, defaultUsername string) (*models.User, error) {
	u := f.users[address]
	u.Nonce = ""
	u.NonceExpiry = nil
	u.RefreshToken = refreshToken
	u.Role = role
	if u.Username == "" {
		u.Username = defaultUsername
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetRefreshToken(ctx context.Context, address, token string) error {
	f.users[address].RefreshToken = token
	return nil
}

func (f *fakeUsers) ClearRefreshToken(ctx context.Context, token string) error {
	for _, u := range f.users {
		if u.RefreshToken == token {
			u.RefreshToken = ""
		}
	}
	return nil
}

type fakeActivities struct {
	items []models.Activity
}

func (f *fakeActivities) CreateActivity(ctx context.Context, a *models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	f.items = append(f.items, *a)
	return nil
}

func (f *fakeActivities) CountSince(ctx context.Context, user, action string, since time.Time) (int64, error) {
	var n int64
	for _, a := range f.items {
		if a.User == user && a.Action == action && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeActivities) GetUserActivities(ctx context.Context, user string, limit int) ([]models.Activity, error) {
	var out []models.Activity
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if f.items[i].User == user {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeActivities) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := f.items[:0]
	var n int64
	for _, a := range f.items {
		if a.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	f.items = kept
	return n, nil
}

type fakeNFTs struct {
	items map[string]*models.NFTCache
}

func newFakeNFTs() *fakeNFTs {
	return &fakeNFTs{items: map[string]*models.NFTCache{}}
}

func (f *fakeNFTs) InsertIfAbsent(ctx context.Context, nft *models.NFTCache) (bool, error) {
	if _, ok := f.items[nft.TokenID]; ok {
		return false, nil
	}
	cp := *nft
	cp.LastUpdated = time.Now()
	f.items[nft.TokenID] = &cp
	return true, nil
}

func (f *fakeNFTs) GetByTokenID(ctx context.Context, tokenID string) (*models.NFTCache, error) {
	n, ok := f.items[tokenID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "NFT not found")
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNFTs) ApplyTransaction(ctx context.Context, tokenID string, change models.NFTChange, tx models.NFTTransaction) (bool, error) {
	n, ok := f.items[tokenID]
	if !ok || n.HasTransaction(tx.Type, tx.TxHash) {
		return false, nil
	}
	if change.Owner != nil {
		n.Owner = *change.Owner
	}
	if change.ForSale != nil {
		n.ForSale = *change.ForSale
	}
	if change.Price != nil {
		n.Price = *change.Price
	}
	n.Transactions = append(n.Transactions, tx)
	n.LastUpdated = time.Now()
	return true, nil
}

func (f *fakeNFTs) UpdateFromChain(ctx context.Context, tokenID string, state models.ChainNFTState) error {
	n, ok := f.items[tokenID]
	if !ok {
		return nil
	}
	n.Owner = state.Owner
	n.TokenURI = state.TokenURI
	n.MediaType = state.MediaType
	n.RoyaltyPercent = state.RoyaltyPercent
	n.ForSale = state.ForSale
	n.Price = state.Price
	n.LastUpdated = time.Now()
	return nil
}

type fakeCheckpoints struct {
	blocks map[string]uint64
}

func (f *fakeCheckpoints) LastBlock(ctx context.Context, key string) (uint64, bool, error) {
	b, ok := f.blocks[key]
	return b, ok, nil
}

func (f *fakeCheckpoints) SaveLastBlock(ctx context.Context, key string, block uint64) error {
	f.blocks[key] = block
	return nil
}

type fakeContent struct {
	docs   map[string]ipfs.NFTMetadata
	pinned int
}

func (f *fakeContent) AddFile(ctx context.Context, name string, r io.Reader) (string, error) {
	f.pinned++
	return fmt.Sprintf("ipfs://file-%d", f.pinned), nil
}

func (f *fakeContent) AddJSON(ctx context.Context, v interface{}) (string, error) {
	f.pinned++
	return fmt.Sprintf("ipfs://json-%d", f.pinned), nil
}

func (f *fakeContent) GetJSON(ctx context.Context, uri string, out interface{}) error {
	doc, ok := f.docs[uri]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "not pinned")
	}
	if meta, ok := out.(*ipfs.NFTMetadata); ok {
		*meta = doc
	}
	return nil
}

type recordingNotifier struct {
	sent []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n *models.Notification) {
	r.sent = append(r.sent, *n)
}

type fakePosts struct {
	items map[primitive.ObjectID]*models.Post
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{items: map[primitive.ObjectID]*models.Post{}}
	for _, p := range posts {
		f.CreatePost(context.Background(), p)
	}
	return f
}

func (f *fakePosts) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.Status == "" {
		post.Status = models.StatusActive
	}
	post.CreatedAt = time.Now()
	f.items[post.ID] = post
	cp := *post
	return &cp, nil
}

func (f *fakePosts) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	p, ok := f.items[id]
	if !ok || p.Status != models.StatusActive {
		return nil, apperr.New(apperr.ErrNotFound, "Post not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	if _, err := f.GetPostByID(ctx, id); err != nil {
		return nil, err
	}
	f.items[id].ViewCount++
	return f.GetPostByID(ctx, id)
}

func (f *fakePosts) SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	p, ok := f.items[id]
	if !ok || p.Status == models.StatusDeleted {
		return false, nil
	}
	p.Status = models.StatusDeleted
	return true, nil
}

func (f *fakePosts) IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error {
	p, ok := f.items[id]
	if !ok {
		return nil
	}
	switch field {
	case "likeCount":
		p.LikeCount += delta
	case "saveCount":
		p.SaveCount += delta
	case "commentCount":
		p.CommentCount += delta
	}
	return nil
}

func (f *fakePosts) ListPosts(ctx context.Context, filter bson.M, page models.Page) ([]models.Post, int64, error) {
	var out []models.Post
	for _, p := range f.items {
		if p.Status != models.StatusActive {
			continue
		}
		if author, ok := filter["author"].(string); ok && p.Author != author {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out, int64(len(out)), nil
}

func (f *fakePosts) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	var out []models.Post
	for _, id := range ids {
		if p, ok := f.items[id]; ok && p.Status == models.StatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePosts) TrendingPosts(ctx context.Context, since time.Time, now time.Time, page models.Page) ([]models.Post, int64, error) {
	return f.ListPosts(ctx, bson.M{}, page)
}

// fakeMarks is an in-memory likes or saves collection with a unique (user, post) pair.
type fakeMarks struct {
	pairs     []models.SavedPost
	duplicate string
}

func (f *fakeMarks) index(user string, postID primitive.ObjectID) int {
	for i, p := range f.pairs {
		if p.User == user && p.PostID == postID {
			return i
		}
	}
	return -1
}

func (f *fakeMarks) Add(ctx context.Context, user string, postID primitive.ObjectID) error {
	if f.index(user, postID) >= 0 {
		return apperr.New(apperr.ErrAlreadyExists, f.duplicate)
	}
	f.pairs = append(f.pairs, models.SavedPost{User: user, PostID: postID, CreatedAt: time.Now()})
	return nil
}

func (f *fakeMarks) Remove(ctx context.Context, user string, postID primitive.ObjectID) (bool, error) {
	i := f.index(user, postID)
	if i < 0 {
		return false, nil
	}
	f.pairs = append(f.pairs[:i], f.pairs[i+1:]...)
	return true, nil
}

func (f *fakeMarks) Marked(ctx context.Context, user string, postIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := map[primitive.ObjectID]bool{}
	for _, id := range postIDs {
		if f.index(user, id) >= 0 {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeMarks) PostIDs(ctx context.Context, user string, page models.Page) ([]primitive.ObjectID, int64, error) {
	var ids []primitive.ObjectID
	for i := len(f.pairs) - 1; i >= 0; i-- {
		if f.pairs[i].User == user {
			ids = append(ids, f.pairs[i].PostID)
		}
	}
	return ids, int64(len(ids)), nil
}

type fakeFollows struct {
	edges []models.Follow
}

func (f *fakeFollows) index(follower, following string) int {
	for i, e := range f.edges {
		if e.Follower == follower && e.Following == following {
			return i
		}
	}
	return -1
}

func (f *fakeFollows) Follow(ctx context.Context, follower, following string) error {
	if f.index(follower, following) >= 0 {
		return apperr.New(apperr.ErrAlreadyExists, "Already following this user")
	}
	f.edges = append(f.edges, models.Follow{Follower: follower, Following: following, CreatedAt: time.Now()})
	return nil
}

func (f *fakeFollows) Unfollow(ctx context.Context, follower, following string) (bool, error) {
	i := f.index(follower, following)
	if i < 0 {
		return false, nil
	}
	f.edges = append(f.edges[:i], f.edges[i+1:]...)
	return true, nil
}

func (f *fakeFollows) IsFollowing(ctx context.Context, follower, following string) (bool, error) {
	return f.index(follower, following) >= 0, nil
}

func (f *fakeFollows) Followers(ctx context.Context, address string, page models.Page) ([]models.Follow, int64, error) {
	var out []models.Follow
	for _, e := range f.edges {
		if e.Following == address {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeFollows) Following(ctx context.Context, address string, page models.Page) ([]models.Follow, int64, error) {
	var out []models.Follow
	for _, e := range f.edges {
		if e.Follower == address {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeFollows) FollowingAddresses(ctx context.Context, address string) ([]string, error) {
	edges, _, err := f.Following(ctx, address, models.Page{})
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Following)
	}
	return out, err
}

type fakeComments struct {
	items map[primitive.ObjectID]*models.Comment
}

func newFakeComments() *fakeComments {
	return &fakeComments{items: map[primitive.ObjectID]*models.Comment{}}
}

func (f *fakeComments) CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	c.ID = primitive.NewObjectID()
	c.Status = models.StatusActive
	c.CreatedAt = time.Now()
	f.items[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeComments) GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	c, ok := f.items[id]
	if !ok || c.Status != models.StatusActive {
		return nil, apperr.New(apperr.ErrNotFound, "Comment not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeComments) list(match func(c *models.Comment) bool) ([]models.Comment, int64, error) {
	var out []models.Comment
	for _, c := range f.items {
		if c.Status == models.StatusActive && match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, int64(len(out)), nil
}

func (f *fakeComments) ListByPost(ctx context.Context, postID primitive.ObjectID, page models.Page) ([]models.Comment, int64, error) {
	return f.list(func(c *models.Comment) bool { return c.PostID == postID && c.ParentID == nil })
}

func (f *fakeComments) ListReplies(ctx context.Context, parentID primitive.ObjectID, page models.Page) ([]models.Comment, int64, error) {
	return f.list(func(c *models.Comment) bool { return c.ParentID != nil && *c.ParentID == parentID })
}

func (f *fakeComments) SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	c, ok := f.items[id]
	if !ok || c.Status == models.StatusDeleted {
		return false, nil
	}
	c.Status = models.StatusDeleted
	return true, nil
}

func (f *fakeComments) IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error {
	if c, ok := f.items[id]; ok && field == "replyCount" {
		c.ReplyCount += delta
	}
	return nil
}
