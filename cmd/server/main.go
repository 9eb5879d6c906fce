package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/database"
	"github.com/dxsocial/backend/internal/handlers"
	"github.com/dxsocial/backend/internal/jobs"
	"github.com/dxsocial/backend/internal/repository"
	cronjobs "github.com/dxsocial/backend/internal/scheduler"
	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/cache"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger(cfg.LogLevel)
	logger.Log.WithField("env", cfg.Env).Info("Logger initialized")

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		logger.Log.WithError(err).Warn("Failed to ensure indexes")
	}
	cancelIndexes()

	appCache := cache.New(cache.DefaultTTL, cache.CleanupInterval)
	ipfsClient := ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSGateway, cfg.IPFSProjectID, cfg.IPFSProjectSecret)

	// Chain stays nil when the contracts are not configured; chain-backed features report 503.
	var chain blockchain.Chain
	var chainClient *blockchain.Client
	if cfg.Contracts.Complete() {
		key, err := blockchain.LoadSigner(cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to load platform signer, continuing read-only")
		}
		dialCtx, cancelDial := context.WithTimeout(context.Background(), 15*time.Second)
		chainClient, err = blockchain.NewClient(dialCtx, cfg, key)
		cancelDial()
		if err != nil {
			logger.Log.WithError(err).Error("Blockchain client unavailable")
		} else {
			chain = chainClient
		}
	} else {
		logger.Log.Warn("Contract addresses not configured, blockchain features disabled")
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	nftRepo := repository.NewNFTRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	syncStateRepo := repository.NewSyncStateRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	completedRepo := repository.NewCompletedTaskRepository(db)
	checkInRepo := repository.NewCheckInRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	savedRepo := repository.NewSavedPostRepository(db)
	followRepo := repository.NewFollowRepository(db)

	// --- Services ---
	gateway := ipfsClient.Gateway()
	hub := handlers.NewNotificationHub(cfg.JWTSecret)

	notificationService := services.NewNotificationService(notificationRepo, userRepo, cfg.Features.Notifications)
	notificationService.SetPusher(hub)
	activityService := services.NewActivityService(activityRepo)
	rewardService := services.NewRewardService(taskRepo, completedRepo, checkInRepo, userRepo, activityRepo,
		chain, appCache, cfg.Features.TokenRewards)
	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo, followRepo, rewardService, activityService,
		notificationService, ipfsClient, chain, appCache, gateway)
	postService := services.NewPostService(postRepo, likeRepo, savedRepo, followRepo, userRepo,
		activityService, notificationService, ipfsClient, gateway)
	commentService := services.NewCommentService(commentRepo, postRepo, userRepo, activityService,
		notificationService, ipfsClient, gateway)
	syncService := services.NewSyncService(chain, nftRepo, userRepo, syncStateRepo, ipfsClient,
		notificationService, appCache, cfg.EventBlockWindow, cfg.BlockTime)
	nftService := services.NewNFTService(nftRepo, userRepo, activityService, ipfsClient, chain, syncService,
		cfg.IsProduction(), gateway)
	analyticsService := services.NewAnalyticsService(postRepo, nftRepo, commentRepo, userRepo)
	searchService := services.NewSearchService(userRepo, postRepo, nftRepo, postService, nftService, gateway)

	limiters := middleware.NewLimiters(cfg.RateLimitMax, cfg.TrustedProxies...)

	router := newRouter(cfg, routeHandlers{
		auth:         handlers.NewAuthHandler(authService),
		user:         handlers.NewUserHandler(userService, analyticsService, activityService, cfg),
		post:         handlers.NewPostHandler(postService, cfg.MaxFileSize),
		comment:      handlers.NewCommentHandler(commentService, cfg.MaxFileSize),
		nft:          handlers.NewNFTHandler(nftService, cfg.MaxFileSize),
		reward:       handlers.NewRewardHandler(rewardService),
		admin:        handlers.NewAdminHandler(rewardService, syncService, analyticsService),
		notification: handlers.NewNotificationHandler(notificationService),
		search:       handlers.NewSearchHandler(searchService),
		health:       handlers.NewHealthHandler(handlers.PingerFunc(func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }), chain != nil, cfg.Env),
		hub:          hub,
		limiters:     limiters,
		lastActive:   middleware.UpdateLastActiveMiddleware(userRepo),
	})

	// --- Background work ---
	if cfg.Features.Trending {
		go func() {
			if err := analyticsService.UpdateTrendingScores(context.Background()); err != nil {
				logger.Log.WithError(err).Warn("Initial trending computation failed")
			}
		}()
	}

	listenerCtx, stopListener := context.WithCancel(context.Background())
	if cfg.Features.BlockchainEvents && syncService.Enabled() {
		go jobs.NewEventListener(syncService, cfg.EventPollInterval).Run(listenerCtx)
	}

	scheduler, err := cronjobs.StartCronJobs(cronjobs.BuildJobs(cfg, cronjobs.Deps{
		Sync:          syncService,
		Analytics:     analyticsService,
		Rewards:       rewardService,
		Notifications: notificationService,
		Limiters:      limiters,
	}))
	if err != nil {
		logger.Log.Fatalf("Failed to schedule cron jobs: %v", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithFields(logrus.Fields{
			"port":       cfg.Port,
			"prefix":     cfg.APIPrefix,
			"blockchain": chain != nil,
		}).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Log.WithField("signal", sig.String()).Info("Shutting down")

	<-scheduler.Stop().Done()
	stopListener()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server shutdown failed")
	}
	hub.Close()

	if chainClient != nil {
		chainClient.Close()
	}
	if err := database.Disconnect(db); err != nil {
		logger.Log.WithError(err).Error("Database disconnect failed")
	}
	logger.Log.Info("Server stopped")
}
