package main

import (
	"net/http"

	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/handlers"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/gorilla/mux"
)

type routeHandlers struct {
	auth         *handlers.AuthHandler
	user         *handlers.UserHandler
	post         *handlers.PostHandler
	comment      *handlers.CommentHandler
	nft          *handlers.NFTHandler
	reward       *handlers.RewardHandler
	admin        *handlers.AdminHandler
	notification *handlers.NotificationHandler
	search       *handlers.SearchHandler
	health       *handlers.HealthHandler
	hub          *handlers.NotificationHub
	limiters     *middleware.Limiters
	lastActive   func(http.Handler) http.Handler
}

func newRouter(cfg *config.Config, h routeHandlers) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handlers.NotFoundHandler)
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/ws/notifications", h.hub.ServeWS).Methods("GET")

	api := router.PathPrefix(cfg.APIPrefix).Subrouter()
	api.Use(h.limiters.Global.Middleware)

	auth := func(fn http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(cfg.JWTSecret)(h.lastActive(fn))
	}
	optional := func(fn http.HandlerFunc) http.Handler {
		return middleware.OptionalAuth(cfg.JWTSecret)(h.lastActive(fn))
	}

	api.HandleFunc("/health", h.health.HealthHandler).Methods("GET")

	// Auth routes
	api.HandleFunc("/auth/connect", h.auth.ConnectHandler).Methods("POST")
	api.HandleFunc("/auth/verify", h.auth.VerifyHandler).Methods("POST")
	api.HandleFunc("/auth/refresh", h.auth.RefreshHandler).Methods("POST")
	api.HandleFunc("/auth/logout", h.auth.LogoutHandler).Methods("POST")

	// User routes
	api.HandleFunc("/users/leaderboard", h.user.LeaderboardHandler).Methods("GET")
	api.Handle("/users/profile", auth(h.user.UpdateProfileHandler)).Methods("PUT")
	api.Handle("/users/{address}", optional(h.user.GetProfileHandler)).Methods("GET")
	api.Handle("/users/{address}/follow", auth(h.user.FollowHandler)).Methods("POST")
	api.Handle("/users/{address}/follow", auth(h.user.UnfollowHandler)).Methods("DELETE")
	api.HandleFunc("/users/{address}/followers", h.user.FollowersHandler).Methods("GET")
	api.HandleFunc("/users/{address}/following", h.user.FollowingHandler).Methods("GET")
	api.HandleFunc("/users/{address}/balance", h.user.BalanceHandler).Methods("GET")
	api.HandleFunc("/users/{address}/stats", h.user.StatsHandler).Methods("GET")
	api.HandleFunc("/users/{address}/activity", h.user.ActivityHandler).Methods("GET")

	// Post routes
	api.Handle("/posts", optional(h.post.ListPostsHandler)).Methods("GET")
	api.Handle("/posts", auth(h.limiters.Post.Limit(h.post.CreatePostHandler))).Methods("POST")
	api.Handle("/posts/trending", optional(h.post.TrendingHandler)).Methods("GET")
	api.Handle("/posts/feed", auth(h.post.FeedHandler)).Methods("GET")
	api.Handle("/posts/saved", auth(h.post.SavedHandler)).Methods("GET")
	api.Handle("/posts/{id}", optional(h.post.GetPostHandler)).Methods("GET")
	api.Handle("/posts/{id}", auth(h.post.DeletePostHandler)).Methods("DELETE")
	api.Handle("/posts/{id}/like", auth(h.post.LikeHandler())).Methods("POST")
	api.Handle("/posts/{id}/like", auth(h.post.UnlikeHandler())).Methods("DELETE")
	api.Handle("/posts/{id}/save", auth(h.post.SaveHandler())).Methods("POST")
	api.Handle("/posts/{id}/save", auth(h.post.UnsaveHandler())).Methods("DELETE")

	// Comment routes
	api.HandleFunc("/posts/{id}/comments", h.comment.ListCommentsHandler).Methods("GET")
	api.Handle("/posts/{id}/comments", auth(h.limiters.Comment.Limit(h.comment.CreateCommentHandler))).Methods("POST")
	api.HandleFunc("/comments/{id}/replies", h.comment.ListRepliesHandler).Methods("GET")
	api.Handle("/comments/{id}", auth(h.comment.DeleteCommentHandler)).Methods("DELETE")

	// NFT routes
	api.HandleFunc("/nfts", h.nft.ListNFTsHandler).Methods("GET")
	api.HandleFunc("/nfts/trending", h.nft.TrendingHandler).Methods("GET")
	api.Handle("/nfts/mint", auth(h.limiters.Mint.Limit(h.nft.MintHandler))).Methods("POST")
	api.HandleFunc("/nfts/{tokenId}", h.nft.GetNFTHandler).Methods("GET")
	api.Handle("/nfts/{tokenId}/refresh", auth(h.nft.RefreshHandler)).Methods("POST")

	// Reward routes
	rewardRoutes := api.PathPrefix("/rewards").Subrouter()
	rewardRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	rewardRoutes.Use(h.lastActive)
	rewardRoutes.HandleFunc("/tasks", h.reward.ListTasksHandler).Methods("GET")
	rewardRoutes.HandleFunc("/tasks/me", h.reward.UserTasksHandler).Methods("GET")
	rewardRoutes.HandleFunc("/tasks/{taskId}/complete", h.reward.CompleteTaskHandler).Methods("POST")
	rewardRoutes.HandleFunc("/checkin", h.reward.CheckInHandler).Methods("POST")
	rewardRoutes.HandleFunc("/points", h.reward.PointsHandler).Methods("GET")
	rewardRoutes.HandleFunc("/subscription", h.reward.SubscriptionHandler).Methods("GET")

	// Notification routes
	notificationRoutes := api.PathPrefix("/notifications").Subrouter()
	notificationRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	notificationRoutes.Use(h.lastActive)
	notificationRoutes.HandleFunc("", h.notification.GetUserNotificationsHandler).Methods("GET")
	notificationRoutes.HandleFunc("/read-all", h.notification.MarkAllAsReadHandler).Methods("PUT")
	notificationRoutes.HandleFunc("/{id}/read", h.notification.MarkAsReadHandler).Methods("PUT")
	notificationRoutes.HandleFunc("/{id}", h.notification.DeleteNotificationHandler).Methods("DELETE")

	// Search routes
	api.Handle("/search", optional(h.search.SearchHandler)).Methods("GET")
	api.HandleFunc("/search/users", h.search.SearchUsersHandler).Methods("GET")
	api.Handle("/search/tags/{tag}", optional(h.search.TagPostsHandler)).Methods("GET")

	// Admin routes
	adminRoutes := api.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
	adminRoutes.HandleFunc("/tasks", h.admin.CreateTaskHandler).Methods("POST")
	adminRoutes.HandleFunc("/tasks/{id}", h.admin.UpdateTaskHandler).Methods("PUT")
	adminRoutes.HandleFunc("/tasks/{id}", h.admin.DeactivateTaskHandler).Methods("DELETE")
	adminRoutes.HandleFunc("/sync/{job}", h.admin.SyncHandler).Methods("POST")

	return router
}
