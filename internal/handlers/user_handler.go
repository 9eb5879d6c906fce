package handlers

import (
	"net/http"

	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/services"
	"github.com/dxsocial/backend/pkg/ethutil"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const recentActivityLimit = 20

// UserHandler handles HTTP requests related to profiles and follows.
type UserHandler struct {
	Service   *services.UserService
	Analytics *services.AnalyticsService
	Activity  *services.ActivityService
	Config    *config.Config
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service *services.UserService, analytics *services.AnalyticsService, activity *services.ActivityService, cfg *config.Config) *UserHandler {
	return &UserHandler{
		Service:   service,
		Analytics: analytics,
		Activity:  activity,
		Config:    cfg,
	}
}

// GetProfileHandler returns a user profile. GET /users/{address}
func (h *UserHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	profile, err := h.Service.GetProfile(r.Context(), address, middleware.ViewerAddress(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfileHandler accepts JSON or a multipart form with avatar and cover files.
// PUT /users/profile
func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var upd services.ProfileUpdate
	if !isMultipart(r) {
		if err := decodeJSON(r, &upd); err != nil {
			writeError(w, r, err)
			return
		}
		user, err := h.Service.UpdateProfile(r.Context(), claims.Address, upd, nil, nil)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	}

	if err := parseMultipart(w, r, h.Config.MaxFileSize); err != nil {
		writeError(w, r, err)
		return
	}
	if v, ok := formValue(r, "username"); ok {
		upd.Username = &v
	}
	if v, ok := formValue(r, "bio"); ok {
		upd.Bio = &v
	}
	if v, ok := formValue(r, "ensName"); ok {
		upd.ENSName = &v
	}

	avatar, closeAvatar, err := singleUpload(r, "avatar", h.Config.MaxFileSize)
	defer closeAvatar()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cover, closeCover, err := singleUpload(r, "cover", h.Config.MaxFileSize)
	defer closeCover()
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), claims.Address, upd, avatar, cover)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithField("address", claims.Address).Info("Profile updated")
	writeJSON(w, http.StatusOK, user)
}

// FollowHandler follows the user in the path. POST /users/{address}/follow
func (h *UserHandler) FollowHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.Follow(r.Context(), claims.Address, mux.Vars(r)["address"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "User followed successfully")
}

// UnfollowHandler stops following the user in the path. DELETE /users/{address}/follow
func (h *UserHandler) UnfollowHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.Unfollow(r.Context(), claims.Address, mux.Vars(r)["address"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "User unfollowed successfully")
}

func (h *UserHandler) FollowersHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Followers(r.Context(), mux.Vars(r)["address"], pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UserHandler) FollowingHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Following(r.Context(), mux.Vars(r)["address"], pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// LeaderboardHandler ranks users by points. GET /users/leaderboard
func (h *UserHandler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	board, err := h.Service.GetLeaderboard(r.Context(), pageFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// BalanceHandler returns the DX balance. GET /users/{address}/balance
func (h *UserHandler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Service.GetBalance(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// StatsHandler recounts and returns the user's content counters. GET /users/{address}/stats
func (h *UserHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !ethutil.IsValidAddress(address) {
		writeError(w, r, errInvalidAddress)
		return
	}

	stats, err := h.Analytics.CalculateUserStats(r.Context(), ethutil.NormalizeAddress(address))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ActivityHandler lists the user's recent tracked actions. GET /users/{address}/activity
func (h *UserHandler) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !ethutil.IsValidAddress(address) {
		writeError(w, r, errInvalidAddress)
		return
	}

	activities, err := h.Activity.GetRecentActivities(r.Context(), ethutil.NormalizeAddress(address), recentActivityLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}
