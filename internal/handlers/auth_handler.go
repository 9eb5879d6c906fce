package handlers

import (
	"net/http"

	"github.com/dxsocial/backend/internal/services"
	"github.com/sirupsen/logrus"
)

// AuthHandler serves the wallet login endpoints.
type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ConnectHandler issues a login challenge. POST /auth/connect
func (h *AuthHandler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	challenge, err := h.Service.Connect(r.Context(), req.WalletAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// VerifyHandler checks the signed challenge and returns tokens. POST /auth/verify
func (h *AuthHandler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Service.Verify(r.Context(), req.WalletAddress, req.Signature)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"address": req.WalletAddress,
			"error":   err,
		}).Warn("Wallet verification failed")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RefreshHandler rotates the token pair. POST /auth/refresh
func (h *AuthHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// LogoutHandler forgets the refresh token. POST /auth/logout
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Logged out successfully")
}
