package services

import (
	"context"
	"strings"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/blockchain"
	"github.com/dxsocial/backend/internal/config"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/ethutil"
	jwtutil "github.com/dxsocial/backend/pkg/jwt"
	"github.com/dxsocial/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NonceTTL is how long a login challenge stays valid.
const NonceTTL = 15 * time.Minute

type authUserStore interface {
	GetUserByAddress(ctx context.Context, address string) (*models.User, error)
	SetNonce(ctx context.Context, address, nonce string, expiry time.Time) error
	CompleteLogin(ctx context.Context, address, refreshToken, role, defaultUsername string) (*models.User, error)
	SetRefreshToken(ctx context.Context, address, token string) error
	ClearRefreshToken(ctx context.Context, token string) error
}

// AuthService implements the wallet challenge/response login.
type AuthService struct {
	users authUserStore
	cfg   *config.Config
	now   func() time.Time
}

func NewAuthService(users authUserStore, cfg *config.Config) *AuthService {
	return &AuthService{users: users, cfg: cfg, now: time.Now}
}

type Challenge struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

type LoginResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Connect issues a fresh nonce for the wallet and returns the message to sign.
func (s *AuthService) Connect(ctx context.Context, walletAddress string) (*Challenge, error) {
	if !ethutil.IsValidAddress(walletAddress) {
		return nil, apperr.New(apperr.ErrInvalidInput, "Invalid wallet address")
	}
	address := ethutil.NormalizeAddress(walletAddress)

	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.users.SetNonce(ctx, address, nonce, s.now().Add(NonceTTL)); err != nil {
		return nil, err
	}

	logger.Log.WithField("address", address).Info("Login challenge issued")
	return &Challenge{Message: blockchain.SignMessage(address, nonce), Nonce: nonce}, nil
}

// Verify checks the signed challenge and logs the wallet in.
func (s *AuthService) Verify(ctx context.Context, walletAddress, signature string) (*LoginResult, error) {
	if !ethutil.IsValidAddress(walletAddress) {
		return nil, apperr.New(apperr.ErrInvalidInput, "Invalid wallet address")
	}
	if signature == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Signature is required")
	}
	address := ethutil.NormalizeAddress(walletAddress)

	user, err := s.users.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if user.Nonce == "" || user.NonceExpiry == nil {
		return nil, apperr.New(apperr.ErrInvalidInput, "No login challenge found, connect first")
	}
	if s.now().After(*user.NonceExpiry) {
		return nil, apperr.New(apperr.ErrInvalidInput, "Login challenge expired, connect again")
	}
	if user.Status == models.UserStatusSuspended || user.Status == models.UserStatusDeleted {
		return nil, apperr.New(apperr.ErrForbidden, "Account is not active")
	}

	message := blockchain.SignMessage(address, user.Nonce)
	if !blockchain.VerifySignature(address, message, signature) {
		logger.Log.WithField("address", address).Warn("Signature verification failed")
		return nil, apperr.New(apperr.ErrUnauthorized, "Invalid signature")
	}

	role := models.RoleUser
	if s.cfg.IsAdmin(address) {
		role = models.RoleAdmin
	}

	pair, err := jwtutil.GeneratePair(address, user.ID.Hex(), role,
		s.cfg.JWTSecret, s.cfg.JWTRefreshSecret, s.cfg.TokenExpiry, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	user, err = s.users.CompleteLogin(ctx, address, pair.RefreshToken, role, DefaultUsername(address))
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"address": address,
		"role":    role,
	}).Info("User logged in")
	return &LoginResult{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Refresh rotates both tokens when the refresh token is valid and still stored.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwtutil.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "Refresh token is required")
	}
	claims, err := jwtutil.ValidateToken(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil {
		return nil, apperr.New(apperr.ErrUnauthorized, "Invalid refresh token")
	}

	user, err := s.users.GetUserByAddress(ctx, claims.Address)
	if err != nil || user.RefreshToken != refreshToken {
		return nil, apperr.New(apperr.ErrUnauthorized, "Invalid refresh token")
	}

	pair, err := jwtutil.GeneratePair(user.WalletAddress, user.ID.Hex(), user.Role,
		s.cfg.JWTSecret, s.cfg.JWTRefreshSecret, s.cfg.TokenExpiry, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.WalletAddress, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout forgets the refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperr.New(apperr.ErrInvalidInput, "Refresh token is required")
	}
	return s.users.ClearRefreshToken(ctx, refreshToken)
}

// DefaultUsername is user_ followed by the first six hex digits of the address.
func DefaultUsername(address string) string {
	address = ethutil.NormalizeAddress(address)
	if len(address) < 8 {
		return "user_" + strings.TrimPrefix(address, "0x")
	}
	return "user_" + address[2:8]
}
