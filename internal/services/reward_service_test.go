package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice = "0x1111111111111111111111111111111111111111"

type rewardFixture struct {
	svc         *RewardService
	chain       *fakeChain
	tasks       *fakeTasks
	completions *fakeCompletions
	checkIns    *fakeCheckIns
	users       *fakeUsers
	activities  *fakeActivities
}

func newRewardFixture(withChain bool, tasks ...*models.Task) *rewardFixture {
	f := &rewardFixture{
		chain:       newFakeChain(),
		tasks:       newFakeTasks(tasks...),
		completions: &fakeCompletions{},
		checkIns:    &fakeCheckIns{},
		users:       newFakeUsers(alice),
		activities:  &fakeActivities{},
	}
	var chain blockchain.Chain
	if withChain {
		chain = f.chain
	}
	f.svc = NewRewardService(f.tasks, f.completions, f.checkIns, f.users, f.activities, chain,
		cache.New(cache.DefaultTTL, cache.CleanupInterval), true)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC) }
	return f
}

func TestCheckInStreakAndMultiplier(t *testing.T) {
	f := newRewardFixture(true)
	exp := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f.chain.subs[alice] = &blockchain.SubscriptionInfo{Level: 2, Expiration: &exp, IsActive: true}
	f.checkIns.items = []models.CheckIn{{User: alice, Date: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), Streak: 6}}

	res, err := f.svc.CheckIn(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, 7, res.Streak)
	assert.Equal(t, int64(2), res.Multiplier)
	assert.Equal(t, int64(14), res.PointsEarned)
	assert.Equal(t, int64(2), res.TokensEarned)
	assert.Equal(t, "0xreward", res.TxHash)
	assert.Equal(t, 0, f.chain.minted[alice].Cmp(ethutil.TokensToWei(2)))

	u := f.users.users[alice]
	assert.Equal(t, int64(14), u.Points)
	assert.Equal(t, 7, u.CheckInStreak)
	assert.Equal(t, 2, u.Subscription.Level, "active subscription is written back to the user")

	_, err = f.svc.CheckIn(context.Background(), alice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Equal(t, "Already checked in today", err.Error())
}

func TestCheckInCompletesDailyTask(t *testing.T) {
	task := &models.Task{
		Name:         DailyCheckInTask,
		Type:         models.TaskDaily,
		RewardPoints: 10,
		Requirements: models.TaskRequirement{Action: models.ActionCheckIn, Count: 1},
		IsActive:     true,
	}
	f := newRewardFixture(false, task)

	res, err := f.svc.CheckIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, int64(5), res.PointsEarned)
	assert.Empty(t, res.TxHash)

	require.Len(t, f.completions.done, 1)
	assert.Equal(t, task.ID, f.completions.done[0].TaskID)
	assert.Equal(t, int64(15), f.users.users[alice].Points)
}

func TestCompleteTask(t *testing.T) {
	task := &models.Task{
		Name:         "Write three posts",
		Type:         models.TaskWeekly,
		RewardPoints: 30,
		RewardTokens: 2,
		Requirements: models.TaskRequirement{Action: models.ActionPost, Count: 3},
		IsActive:     true,
	}
	f := newRewardFixture(true, task)
	ctx := context.Background()

	_, err := f.svc.CompleteTask(ctx, alice, "not-an-id")
	assert.EqualError(t, err, "Invalid task ID")

	// Monday of the same week counts, the previous Sunday does not.
	f.activities.items = []models.Activity{
		{User: alice, Action: models.ActionPost, CreatedAt: time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)},
		{User: alice, Action: models.ActionPost, CreatedAt: time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC)},
		{User: alice, Action: models.ActionPost, CreatedAt: time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC)},
	}
	_, err = f.svc.CompleteTask(ctx, alice, task.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, "Task requirements not met: 2/3 post", err.Error())
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	f.activities.items = append(f.activities.items,
		models.Activity{User: alice, Action: models.ActionPost, CreatedAt: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)})

	res, err := f.svc.CompleteTask(ctx, alice, task.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Multiplier)
	assert.Equal(t, int64(30), res.PointsEarned)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), f.completions.done[0].CompletedForDate)

	_, err = f.svc.CompleteTask(ctx, alice, task.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Equal(t, int64(30), f.users.users[alice].Points)
}

func TestCompleteInactiveTask(t *testing.T) {
	task := &models.Task{Name: "Old", Type: models.TaskSpecial, RewardPoints: 1, IsActive: false}
	f := newRewardFixture(false, task)

	_, err := f.svc.CompleteTask(context.Background(), alice, task.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMultiplierFallsBackToOneOnChainError(t *testing.T) {
	f := newRewardFixture(true)
	f.chain.subErr = errors.New("rpc down")

	assert.Equal(t, int64(1), f.svc.GetMultiplier(context.Background(), alice))
}

func TestSubscriptionWithoutChainUsesCachedUser(t *testing.T) {
	f := newRewardFixture(false)
	exp := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	f.users.users[alice].Subscription = models.Subscription{Level: 5, Expiration: &exp}

	status, err := f.svc.SubscriptionStatus(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "Pro", status.LevelName)
	assert.True(t, status.IsActive)
	assert.Equal(t, int64(5), status.Multiplier)
	assert.Nil(t, status.Fees)
}

func TestSubscriptionStatusIncludesFees(t *testing.T) {
	f := newRewardFixture(true)

	status, err := f.svc.SubscriptionStatus(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, status.IsActive)
	assert.Equal(t, int64(1), status.Multiplier)
	assert.Equal(t, ethutil.FormatTokenAmount(big.NewInt(10)), status.Fees["elite"])
	assert.Len(t, status.Fees, 4)
}

func TestGetUserTasksGroupsByType(t *testing.T) {
	daily := &models.Task{Name: "Like", Type: models.TaskDaily, RewardPoints: 1, IsActive: true}
	special := &models.Task{Name: "Mint", Type: models.TaskSpecial, RewardPoints: 50, IsActive: true}
	f := newRewardFixture(false, daily, special)
	f.completions.done = []models.CompletedTask{{User: alice, TaskID: special.ID, CompletedForDate: time.Unix(0, 0).UTC()}}

	grouped, err := f.svc.GetUserTasks(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, grouped[models.TaskDaily], 1)
	require.Len(t, grouped[models.TaskSpecial], 1)
	assert.Empty(t, grouped[models.TaskWeekly])
	assert.False(t, grouped[models.TaskDaily][0].IsCompleted)
	assert.True(t, grouped[models.TaskSpecial][0].IsCompleted)
}

func TestPurgeHistoryKeepsOneTimeCompletions(t *testing.T) {
	special := &models.Task{Name: "Mint your first NFT", Type: models.TaskSpecial, RewardPoints: 100, IsActive: true}
	daily := &models.Task{Name: "Like", Type: models.TaskDaily, RewardPoints: 1, IsActive: true}
	f := newRewardFixture(false, special, daily)
	ctx := context.Background()

	_, err := f.svc.CompleteTask(ctx, alice, special.ID.Hex())
	require.NoError(t, err)
	_, err = f.svc.CompleteTask(ctx, alice, daily.ID.Hex())
	require.NoError(t, err)
	require.Len(t, f.completions.done, 2)
	assert.Equal(t, int64(101), f.users.users[alice].Points)

	later := time.Date(2024, 6, 19, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return later }
	require.NoError(t, f.svc.PurgeHistory(ctx))

	require.Len(t, f.completions.done, 1)
	assert.Equal(t, special.ID, f.completions.done[0].TaskID)

	_, err = f.svc.CompleteTask(ctx, alice, special.ID.Hex())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Equal(t, int64(101), f.users.users[alice].Points)

	_, err = f.svc.CompleteTask(ctx, alice, daily.ID.Hex())
	require.NoError(t, err, "daily tasks open again in a new period")
}
