package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DailyCheckInTask is auto-completed by a check-in when it exists and is active.
	DailyCheckInTask = "Daily Check-in"

	subscriptionTTL = 60 * time.Second
	retentionPeriod = 30 * 24 * time.Hour
)

type taskStore interface {
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	GetActiveTaskByName(ctx context.Context, name string) (*models.Task, error)
	ListActive(ctx context.Context) ([]models.Task, error)
	UpdateTask(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Task, error)
}

type completionStore interface {
	Insert(ctx context.Context, c *models.CompletedTask) error
	Find(ctx context.Context, user string, taskID primitive.ObjectID, period time.Time) (*models.CompletedTask, error)
	ListSince(ctx context.Context, user string, since time.Time) ([]models.CompletedTask, error)
	DeleteRecurringBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type checkInStore interface {
	Insert(ctx context.Context, c *models.CheckIn) error
	Latest(ctx context.Context, user string) (*models.CheckIn, error)
}

type rewardUserStore interface {
	GetUserByAddress(ctx context.Context, address string) (*models.User, error)
	AddPoints(ctx context.Context, address string, points int64) error
	RecordCheckIn(ctx context.Context, address string, points int64, streak int, at time.Time) error
	UpdateSubscription(ctx context.Context, address string, sub models.Subscription) error
}

type activityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	CountSince(ctx context.Context, user, action string, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RewardService implements tasks, check-ins and subscription multipliers.
type RewardService struct {
	tasks        taskStore
	completions  completionStore
	checkIns     checkInStore
	users        rewardUserStore
	activities   activityStore
	chain        blockchain.Chain
	cache        *cache.Cache
	tokenRewards bool
	now          func() time.Time
}

// NewRewardService builds the service. chain may be nil when no RPC is configured.
func NewRewardService(tasks taskStore, completions completionStore, checkIns checkInStore, users rewardUserStore,
	activities activityStore, chain blockchain.Chain, c *cache.Cache, tokenRewards bool) *RewardService {
	return &RewardService{
		tasks:        tasks,
		completions:  completions,
		checkIns:     checkIns,
		users:        users,
		activities:   activities,
		chain:        chain,
		cache:        c,
		tokenRewards: tokenRewards,
		now:          time.Now,
	}
}

// GetSubscription reads the wallet's subscription from chain through the TTL
// cache, or from the cached user document when no chain is configured.
func (s *RewardService) GetSubscription(ctx context.Context, address string) (*blockchain.SubscriptionInfo, error) {
	if s.chain == nil {
		user, err := s.users.GetUserByAddress(ctx, address)
		if err != nil {
			return nil, err
		}
		return &blockchain.SubscriptionInfo{
			Level:      user.Subscription.Level,
			Expiration: user.Subscription.Expiration,
			IsActive:   user.Subscription.Active(s.now()),
		}, nil
	}

	v, err := s.cache.GetOrFetch(subscriptionCacheKey(address), subscriptionTTL, func() (interface{}, error) {
		info, err := s.chain.GetSubscription(ctx, address)
		if err != nil {
			return nil, err
		}
		if info.IsActive {
			sub := models.Subscription{Level: info.Level, Expiration: info.Expiration}
			if err := s.users.UpdateSubscription(ctx, address, sub); err != nil {
				logrus.WithError(err).Warn("Failed to cache subscription")
			}
		}
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*blockchain.SubscriptionInfo), nil
}

// GetMultiplier returns the active subscription level, or 1 when there is none
// or the chain cannot be read.
func (s *RewardService) GetMultiplier(ctx context.Context, address string) int64 {
	info, err := s.GetSubscription(ctx, address)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Warn("Failed to read subscription, using multiplier 1")
		return 1
	}
	return Multiplier(info.Level, info.IsActive)
}

type SubscriptionStatus struct {
	Level      int               `json:"level"`
	LevelName  string            `json:"levelName"`
	Expiration *time.Time        `json:"expiration"`
	IsActive   bool              `json:"isActive"`
	Multiplier int64             `json:"multiplier"`
	Fees       map[string]string `json:"fees,omitempty"`
}

// SubscriptionStatus combines the wallet's subscription with the current level fees.
func (s *RewardService) SubscriptionStatus(ctx context.Context, address string) (*SubscriptionStatus, error) {
	info, err := s.GetSubscription(ctx, address)
	if err != nil {
		return nil, err
	}
	status := &SubscriptionStatus{
		Level:      info.Level,
		LevelName:  SubscriptionLevels[info.Level],
		Expiration: info.Expiration,
		IsActive:   info.IsActive,
		Multiplier: Multiplier(info.Level, info.IsActive),
	}
	if s.chain != nil {
		status.Fees = s.subscriptionFees(ctx)
	}
	return status, nil
}

func (s *RewardService) subscriptionFees(ctx context.Context) map[string]string {
	v, err := s.cache.GetOrFetch("subscription:fees", 10*time.Minute, func() (interface{}, error) {
		fees := make(map[string]string, len(SubscriptionLevels))
		for level, name := range SubscriptionLevels {
			fee, err := s.chain.SubscriptionFee(ctx, level)
			if err != nil {
				return nil, err
			}
			fees[strings.ToLower(name)] = ethutil.FormatTokenAmount(fee)
		}
		return fees, nil
	})
	if err != nil {
		logrus.WithError(err).Warn("Failed to read subscription fees")
		return nil
	}
	return v.(map[string]string)
}

// ListTasks returns active tasks, by type and then by reward.
func (s *RewardService) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.tasks.ListActive(ctx)
}

// GetUserTasks groups active tasks by type with the caller's progress in the current period.
func (s *RewardService) GetUserTasks(ctx context.Context, address string) (map[string][]models.UserTask, error) {
	tasks, err := s.tasks.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grouped := map[string][]models.UserTask{
		models.TaskDaily:   {},
		models.TaskWeekly:  {},
		models.TaskSpecial: {},
	}
	for _, task := range tasks {
		ut := models.UserTask{Task: task}
		done, err := s.completions.Find(ctx, address, task.ID, PeriodStart(task.Type, now))
		if err != nil {
			return nil, err
		}
		if done != nil {
			ut.IsCompleted = true
			at := done.CreatedAt
			ut.CompletedAt = &at
		}
		grouped[task.Type] = append(grouped[task.Type], ut)
	}
	return grouped, nil
}

type TaskCompletion struct {
	Task         *models.Task `json:"task"`
	PointsEarned int64        `json:"pointsEarned"`
	TokensEarned int64        `json:"tokensEarned"`
	Multiplier   int64        `json:"multiplier"`
	TxHash       string       `json:"txHash,omitempty"`
}

// CompleteTask credits a task once per period after checking its requirement.
func (s *RewardService) CompleteTask(ctx context.Context, address, taskID string) (*TaskCompletion, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, apperr.New(apperr.ErrInvalidInput, "Invalid task ID")
	}
	task, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsActive {
		return nil, apperr.New(apperr.ErrNotFound, "Task not found")
	}

	now := s.now()
	period := PeriodStart(task.Type, now)

	done, err := s.completions.Find(ctx, address, task.ID, period)
	if err != nil {
		return nil, err
	}
	if done != nil {
		return nil, apperr.New(apperr.ErrAlreadyExists, "Task already completed today")
	}

	req := task.Requirements
	if req.Action != "" && req.Count > 0 {
		n, err := s.activities.CountSince(ctx, address, req.Action, period)
		if err != nil {
			return nil, err
		}
		if n < int64(req.Count) {
			return nil, apperr.Newf(apperr.ErrInvalidInput, "Task requirements not met: %d/%d %s", n, req.Count, req.Action)
		}
	}

	mult := s.GetMultiplier(ctx, address)
	result := &TaskCompletion{
		Task:         task,
		PointsEarned: task.RewardPoints * mult,
		TokensEarned: task.RewardTokens * mult,
		Multiplier:   mult,
	}

	err = s.completions.Insert(ctx, &models.CompletedTask{
		User:             address,
		TaskID:           task.ID,
		CompletedForDate: period,
		PointsEarned:     result.PointsEarned,
		TokensEarned:     result.TokensEarned,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.users.AddPoints(ctx, address, result.PointsEarned); err != nil {
		return nil, err
	}
	result.TxHash = s.awardTokens(ctx, address, result.TokensEarned)

	logger.Log.WithFields(logrus.Fields{
		"address":    address,
		"task":       task.Name,
		"points":     result.PointsEarned,
		"tokens":     result.TokensEarned,
		"multiplier": mult,
	}).Info("Task completed")
	return result, nil
}

type CheckInResult struct {
	Date         time.Time `json:"date"`
	Streak       int       `json:"streak"`
	PointsEarned int64     `json:"pointsEarned"`
	TokensEarned int64     `json:"tokensEarned"`
	Multiplier   int64     `json:"multiplier"`
	TxHash       string    `json:"txHash,omitempty"`
}

// CheckIn records the daily check-in and credits the streak reward.
func (s *RewardService) CheckIn(ctx context.Context, address string) (*CheckInResult, error) {
	now := s.now()
	today := StartOfDay(now)

	last, err := s.checkIns.Latest(ctx, address)
	if err != nil {
		return nil, err
	}
	if last != nil && StartOfDay(last.Date).Equal(today) {
		return nil, apperr.New(apperr.ErrAlreadyExists, "Already checked in today")
	}

	streak := NextStreak(last, today)
	mult := s.GetMultiplier(ctx, address)
	points, tokens := CheckInReward(streak)
	result := &CheckInResult{
		Date:         today,
		Streak:       streak,
		PointsEarned: points * mult,
		TokensEarned: tokens * mult,
		Multiplier:   mult,
	}

	err = s.checkIns.Insert(ctx, &models.CheckIn{
		User:         address,
		Date:         today,
		Streak:       streak,
		PointsEarned: result.PointsEarned,
		TokensEarned: result.TokensEarned,
	})
	if err != nil {
		return nil, err
	}
	if err := s.users.RecordCheckIn(ctx, address, result.PointsEarned, streak, now); err != nil {
		return nil, err
	}
	if err := s.activities.CreateActivity(ctx, &models.Activity{User: address, Action: models.ActionCheckIn, CreatedAt: now}); err != nil {
		logrus.WithError(err).Warn("Failed to log check-in activity")
	}
	result.TxHash = s.awardTokens(ctx, address, result.TokensEarned)

	s.completeCheckInTask(ctx, address)
	return result, nil
}

func (s *RewardService) completeCheckInTask(ctx context.Context, address string) {
	task, err := s.tasks.GetActiveTaskByName(ctx, DailyCheckInTask)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logrus.WithError(err).Warn("Failed to look up check-in task")
		}
		return
	}
	if _, err := s.CompleteTask(ctx, address, task.ID.Hex()); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
		logrus.WithError(err).Warn("Failed to complete check-in task")
	}
}

// awardTokens mints DX to the wallet when token rewards are on. A failed
// mint is logged and the points stay credited.
func (s *RewardService) awardTokens(ctx context.Context, address string, tokens int64) string {
	if !s.tokenRewards || s.chain == nil || tokens <= 0 {
		return ""
	}
	txHash, err := s.chain.MintTokens(ctx, address, ethutil.TokensToWei(tokens))
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"address": address,
			"tokens":  tokens,
			"error":   err,
		}).Error("Failed to award token reward")
		return ""
	}
	return txHash
}

type PointsSummary struct {
	TotalPoints int64      `json:"totalPoints"`
	TodayPoints int64      `json:"todayPoints"`
	Streak      int        `json:"streak"`
	LastCheckIn *time.Time `json:"lastCheckIn"`
}

func (s *RewardService) GetPoints(ctx context.Context, address string) (*PointsSummary, error) {
	user, err := s.users.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	today := StartOfDay(s.now())

	completed, err := s.completions.ListSince(ctx, address, today)
	if err != nil {
		return nil, err
	}
	var todayPoints int64
	for _, c := range completed {
		todayPoints += c.PointsEarned
	}

	last, err := s.checkIns.Latest(ctx, address)
	if err != nil {
		return nil, err
	}
	if last != nil && StartOfDay(last.Date).Equal(today) {
		todayPoints += last.PointsEarned
	}

	return &PointsSummary{
		TotalPoints: user.Points,
		TodayPoints: todayPoints,
		Streak:      user.CheckInStreak,
		LastCheckIn: user.LastCheckIn,
	}, nil
}

var validActions = map[string]bool{
	models.ActionPost:    true,
	models.ActionLike:    true,
	models.ActionComment: true,
	models.ActionFollow:  true,
	models.ActionCheckIn: true,
	models.ActionMintNFT: true,
}

var validTaskTypes = map[string]bool{
	models.TaskDaily:   true,
	models.TaskWeekly:  true,
	models.TaskSpecial: true,
}

func validateTask(task *models.Task) error {
	switch {
	case strings.TrimSpace(task.Name) == "":
		return apperr.New(apperr.ErrInvalidInput, "Task name is required")
	case !validTaskTypes[task.Type]:
		return apperr.New(apperr.ErrInvalidInput, "Task type must be daily, weekly or special")
	case task.RewardPoints < 0 || task.RewardTokens < 0:
		return apperr.New(apperr.ErrInvalidInput, "Rewards cannot be negative")
	case task.Requirements.Action != "" && !validActions[task.Requirements.Action]:
		return apperr.Newf(apperr.ErrInvalidInput, "Unknown requirement action %q", task.Requirements.Action)
	case task.Requirements.Count < 0:
		return apperr.New(apperr.ErrInvalidInput, "Requirement count cannot be negative")
	}
	return nil
}

// CreateTask stores a new active task.
func (s *RewardService) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	if err := validateTask(task); err != nil {
		return nil, err
	}
	task.IsActive = true
	return s.tasks.CreateTask(ctx, task)
}

// TaskUpdate carries the fields an admin may change. Nil fields are kept.
type TaskUpdate struct {
	Name         *string                 `json:"name"`
	Description  *string                 `json:"description"`
	Type         *string                 `json:"type"`
	RewardPoints *int64                  `json:"rewardPoints"`
	RewardTokens *int64                  `json:"rewardTokens"`
	Requirements *models.TaskRequirement `json:"requirements"`
	IsActive     *bool                   `json:"isActive"`
}

func (s *RewardService) UpdateTask(ctx context.Context, taskID string, upd TaskUpdate) (*models.Task, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, apperr.New(apperr.ErrInvalidInput, "Invalid task ID")
	}
	task, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if upd.Name != nil {
		task.Name = strings.TrimSpace(*upd.Name)
		set["name"] = task.Name
	}
	if upd.Description != nil {
		task.Description = *upd.Description
		set["description"] = task.Description
	}
	if upd.Type != nil {
		task.Type = *upd.Type
		set["type"] = task.Type
	}
	if upd.RewardPoints != nil {
		task.RewardPoints = *upd.RewardPoints
		set["rewardPoints"] = task.RewardPoints
	}
	if upd.RewardTokens != nil {
		task.RewardTokens = *upd.RewardTokens
		set["rewardTokens"] = task.RewardTokens
	}
	if upd.Requirements != nil {
		task.Requirements = *upd.Requirements
		set["requirements"] = task.Requirements
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	return s.tasks.UpdateTask(ctx, id, set)
}

// DeactivateTask hides the task from users; completions are kept.
func (s *RewardService) DeactivateTask(ctx context.Context, taskID string) error {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return apperr.New(apperr.ErrInvalidInput, "Invalid task ID")
	}
	_, err = s.tasks.UpdateTask(ctx, id, bson.M{"isActive": false})
	return err
}

// PurgeHistory drops daily and weekly completions and activities older than the
// retention period. Special task completions are kept, they block a second claim.
// Period windows decide eligibility, so nothing has to be reset at midnight.
func (s *RewardService) PurgeHistory(ctx context.Context) error {
	cutoff := s.now().Add(-retentionPeriod)
	completed, err := s.completions.DeleteRecurringBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge completions: %w", err)
	}
	activities, err := s.activities.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge activities: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{
		"completions": completed,
		"activities":  activities,
	}).Info("Reward history purged")
	return nil
}
