package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// sweepSchedule drops idle rate-limit buckets.
const sweepSchedule = "@every 5m"

// Job is one scheduled task.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Deps are the services the scheduled jobs call. Sync may be disabled.
type Deps struct {
	Sync          *services.SyncService
	Analytics     *services.AnalyticsService
	Rewards       *services.RewardService
	Notifications *services.NotificationService
	Limiters      *middleware.Limiters
}

func counted(run func(ctx context.Context) (int, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := run(ctx)
		return err
	}
}

// BuildJobs lists the jobs enabled by cfg.
func BuildJobs(cfg *config.Config, d Deps) []Job {
	var jobs []Job
	if d.Limiters != nil {
		jobs = append(jobs, Job{Name: "sweep-rate-limits", Spec: sweepSchedule, Run: func(ctx context.Context) error {
			d.Limiters.Sweep()
			return nil
		}})
	}
	if !cfg.Features.ScheduledTasks {
		return jobs
	}

	if d.Sync != nil && d.Sync.Enabled() {
		jobs = append(jobs,
			Job{Name: "sync-nft-events", Spec: cfg.Cron.SyncNFTEvents, Run: counted(d.Sync.SyncRecentEvents)},
			Job{Name: "sync-nft-data", Spec: cfg.Cron.SyncNFTData, Run: counted(d.Sync.SyncNFTData)},
			Job{Name: "sync-subscriptions", Spec: cfg.Cron.SyncSubscriptionData, Run: counted(d.Sync.SyncSubscriptions)},
		)
	}
	if cfg.Features.Trending && d.Analytics != nil {
		jobs = append(jobs, Job{Name: "update-trending", Spec: cfg.Cron.UpdateTrending, Run: d.Analytics.UpdateTrendingScores})
	}
	if d.Rewards != nil {
		jobs = append(jobs, Job{Name: "reset-daily-tasks", Spec: cfg.Cron.ResetDailyTasks, Run: d.Rewards.PurgeHistory})
	}
	if d.Notifications != nil {
		jobs = append(jobs, Job{Name: "cleanup-notifications", Spec: cfg.Cron.CleanupNotifications, Run: func(ctx context.Context) error {
			n, err := d.Notifications.DeleteExpiredNotifications(ctx)
			if err == nil && n > 0 {
				logrus.WithField("deleted", n).Info("Expired notifications removed")
			}
			return err
		}})
	}
	return jobs
}

// StartCronJobs schedules jobs and starts the scheduler. Stop it on shutdown.
func StartCronJobs(jobs []Job) (*cron.Cron, error) {
	l := cron.PrintfLogger(logrus.StandardLogger())
	c := cron.New(cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)))

	for _, job := range jobs {
		job := job
		_, err := c.AddFunc(job.Spec, func() {
			start := time.Now()
			if err := job.Run(context.Background()); err != nil {
				logrus.WithFields(logrus.Fields{
					"job":   job.Name,
					"error": err,
				}).Error("Scheduled job failed")
				return
			}
			logrus.WithFields(logrus.Fields{
				"job":      job.Name,
				"duration": time.Since(start).String(),
			}).Debug("Scheduled job finished")
		})
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", job.Spec, job.Name, err)
		}
	}

	c.Start()
	logrus.WithField("jobs", len(jobs)).Info("Cron jobs scheduled")
	return c, nil
}
