package cron

import (
	"context"
	"testing"

	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobNames(jobs []Job) []string {
	var names []string
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	return names
}

func testConfig(scheduled bool) *config.Config {
	return &config.Config{
		Features: config.Features{ScheduledTasks: scheduled, Trending: true},
		Cron: config.CronSchedule{
			SyncNFTEvents:        "*/30 * * * *",
			SyncNFTData:          "*/5 * * * *",
			SyncSubscriptionData: "0 * * * *",
			UpdateTrending:       "*/15 * * * *",
			ResetDailyTasks:      "0 0 * * *",
			CleanupNotifications: "30 0 * * *",
		},
	}
}

func TestBuildJobsWithoutScheduledTasks(t *testing.T) {
	jobs := BuildJobs(testConfig(false), Deps{
		Limiters:  middleware.NewLimiters(100),
		Analytics: &services.AnalyticsService{},
	})
	assert.Equal(t, []string{"sweep-rate-limits"}, jobNames(jobs))
}

func TestBuildJobsSkipsSyncWithoutChain(t *testing.T) {
	syncer := services.NewSyncService(nil, nil, nil, nil, nil, nil, cache.New(cache.DefaultTTL, cache.CleanupInterval), 0, 0)
	jobs := BuildJobs(testConfig(true), Deps{
		Sync:          syncer,
		Analytics:     &services.AnalyticsService{},
		Rewards:       &services.RewardService{},
		Notifications: &services.NotificationService{},
	})
	assert.Equal(t, []string{"update-trending", "reset-daily-tasks", "cleanup-notifications"}, jobNames(jobs))
}

func TestStartCronJobsRejectsBadSpec(t *testing.T) {
	_, err := StartCronJobs([]Job{{Name: "broken", Spec: "every tuesday", Run: func(ctx context.Context) error { return nil }}})
	assert.Error(t, err)
}

func TestStartCronJobsSchedulesAll(t *testing.T) {
	c, err := StartCronJobs(BuildJobs(testConfig(false), Deps{Limiters: middleware.NewLimiters(100)}))
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}
