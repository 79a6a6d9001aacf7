package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"libraryhub/internal/config"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
	"libraryhub/internal/security"
)

const tokenTypeAccess = "access"

// Claims is the payload of an access token.
type Claims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Type     string      `json:"type"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Address  string
	// Role defaults to MEMBER.
	Role models.Role
}

type AuthService interface {
	// Register creates the account and, for members, the borrower profile.
	// The returned token verifies the email address.
	Register(ctx context.Context, in RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *models.User, err error)
	// RefreshAccessToken rotates the refresh token: the old one is revoked.
	RefreshAccessToken(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(tokenString string) (*Claims, error)
	VerifyEmail(ctx context.Context, token string) error
	// RequestPasswordReset returns an empty token for unknown emails so the
	// caller cannot tell which addresses exist.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	store           repository.Store
	guard           *security.Guard
	logger          *zap.Logger
	clock           Clock
	jwtSecret       string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewAuthService(store repository.Store, guard *security.Guard, cfg *config.Config, logger *zap.Logger, clock Clock) AuthService {
	return &authService{
		store:           store,
		guard:           guard,
		logger:          logger,
		clock:           clock,
		jwtSecret:       cfg.JWTSecret,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" {
		return nil, "", ErrInvalidInput.withf("username and email are required")
	}
	if err := security.CheckPassword(in.Password); err != nil {
		return nil, "", ErrInvalidInput.withf("%s", err.Error())
	}
	if in.Role == "" {
		in.Role = models.RoleMember
	}
	if !in.Role.Valid() {
		return nil, "", ErrInvalidInput.withf("unknown role %q", in.Role)
	}

	hashedPassword, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, "", systemError("hash password", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: in.Username,
		Email:    in.Email,
		FullName: strings.TrimSpace(in.FullName),
		Password: hashedPassword,
		Role:     in.Role,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().FindByUsername(ctx, user.Username); err == nil {
			return ErrNameInUse
		} else if !errors.Is(err, repository.ErrNotFound) {
			return systemError("register: check username", err)
		}
		if _, err := tx.Users().FindByEmail(ctx, user.Email); err == nil {
			return ErrEmailInUse
		} else if !errors.Is(err, repository.ErrNotFound) {
			return systemError("register: check email", err)
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrNameInUse
			}
			return systemError("register: create user", err)
		}
		if user.Role != models.RoleMember {
			return nil
		}
		member := &models.Member{
			UserID:              user.ID,
			MembershipStartDate: s.clock.today(),
			Address:             strings.TrimSpace(in.Address),
			Active:              true,
		}
		return systemError("register: create member", tx.Members().Create(ctx, member))
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.guard.IssueVerificationToken(ctx, user.ID)
	if err != nil {
		// the account exists; the user can ask for a new token later
		s.logger.Warn("verification_token_failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.logger.Info("user_registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	locked, err := s.guard.IsLocked(ctx, username)
	if err != nil {
		return "", "", nil, systemError("login: check lock", err)
	}
	if locked {
		return "", "", nil, ErrAccountLocked
	}

	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", "", nil, systemError("login: find user", err)
	}
	if user == nil {
		security.BurnCompare(password)
		return "", "", nil, s.loginFailed(ctx, username)
	}
	if !security.PasswordMatches(user.Password, password) {
		return "", "", nil, s.loginFailed(ctx, username)
	}

	if err := s.guard.ClearFailedLogins(ctx, username); err != nil {
		s.logger.Warn("clear_failed_logins_failed", zap.String("username", username), zap.Error(err))
	}
	if err := s.store.Users().TouchLastLogin(ctx, user.ID, s.clock.now()); err != nil {
		s.logger.Warn("touch_last_login_failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, systemError("login: sign token", err)
	}
	refreshToken, err := s.generateRefreshToken(ctx, s.store, user)
	if err != nil {
		return "", "", nil, err
	}

	s.logger.Info("user_logged_in", zap.String("user_id", user.ID))
	return accessToken, refreshToken, user, nil
}

func (s *authService) loginFailed(ctx context.Context, username string) error {
	locked, err := s.guard.RecordFailedLogin(ctx, username)
	if err != nil {
		s.logger.Warn("record_failed_login_failed", zap.String("username", username), zap.Error(err))
		return ErrInvalidCredentials
	}
	if locked {
		s.logger.Warn("account_locked", zap.String("username", username))
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	now := s.clock.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateRefreshToken(ctx context.Context, store repository.Store, user *models.User) (string, error) {
	refreshToken := &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: s.clock.now().Add(s.refreshTokenTTL),
	}
	if err := store.RefreshTokens().Create(ctx, refreshToken); err != nil {
		return "", systemError("store refresh token", err)
	}
	return refreshToken.Token, nil
}

func (s *authService) RefreshAccessToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	rt, err := s.store.RefreshTokens().FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", systemError("refresh: find token", err)
	}
	if rt.Revoked {
		return "", "", ErrInvalidToken
	}
	if rt.Expired(s.clock.now()) {
		if err := s.store.RefreshTokens().Delete(ctx, rt.ID); err != nil {
			s.logger.Warn("expired_refresh_token_delete_failed", zap.String("token_id", rt.ID), zap.Error(err))
		}
		return "", "", ErrExpiredToken
	}

	var access, refresh string
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, rt.UserID)
		if err != nil {
			return lookupError("refresh: find user", err, ErrMemberNotFound)
		}
		if err := tx.RefreshTokens().Revoke(ctx, rt.ID); err != nil {
			return systemError("refresh: revoke old token", err)
		}
		refresh, err = s.generateRefreshToken(ctx, tx, user)
		if err != nil {
			return err
		}
		access, err = s.generateAccessToken(user)
		return systemError("refresh: sign token", err)
	})
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *authService) Logout(ctx context.Context, refreshTokenString string) error {
	rt, err := s.store.RefreshTokens().FindByToken(ctx, refreshTokenString)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return systemError("logout: find token", err)
	}
	return systemError("logout: delete token", s.store.RefreshTokens().Delete(ctx, rt.ID))
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.clock.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Type != tokenTypeAccess || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.guard.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, security.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return systemError("verify email: consume token", err)
	}
	if err := s.store.Users().MarkVerified(ctx, userID); err != nil {
		return lookupError("verify email", err, ErrMemberNotFound)
	}
	s.logger.Info("email_verified", zap.String("user_id", userID))
	return nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", systemError("password reset: find user", err)
	}
	token, err := s.guard.IssueResetToken(ctx, user.ID)
	if err != nil {
		return "", systemError("password reset: issue token", err)
	}
	s.logger.Info("password_reset_requested", zap.String("user_id", user.ID))
	return token, nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := security.CheckPassword(newPassword); err != nil {
		return ErrInvalidInput.withf("%s", err.Error())
	}
	userID, err := s.guard.ConsumeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, security.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return systemError("password reset: consume token", err)
	}
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return lookupError("password reset: find user", err, ErrMemberNotFound)
	}
	hashed, err := security.HashPassword(newPassword)
	if err != nil {
		return systemError("password reset: hash", err)
	}
	if err := s.store.Users().UpdatePassword(ctx, user.ID, hashed); err != nil {
		return systemError("password reset: update", err)
	}
	if err := s.guard.Unlock(ctx, user.Username); err != nil {
		s.logger.Warn("unlock_after_reset_failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.logger.Info("password_reset", zap.String("user_id", user.ID))
	return nil
}
