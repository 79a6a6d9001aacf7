package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/service"
	"libraryhub/internal/notify"
)

type AuthHandler struct {
	authService service.AuthService
	dispatcher  notify.Dispatcher
	accessTTL   time.Duration
	// exposeTokens echoes verification and reset tokens in responses so
	// the flows can be driven without a mail relay.
	exposeTokens bool
}

func NewAuthHandler(authService service.AuthService, dispatcher notify.Dispatcher, accessTTL time.Duration, exposeTokens bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		dispatcher:   dispatcher,
		accessTTL:    accessTTL,
		exposeTokens: exposeTokens,
	}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.RefreshToken)
	rg.POST("/logout", requireAuth, h.Logout)
	rg.POST("/verify", h.VerifyEmail)
	rg.POST("/password-reset", h.RequestPasswordReset)
	rg.POST("/password-reset/confirm", h.ResetPassword)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, token, err := h.authService.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Address:  req.Address,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Message:  "account created, check your email to verify the address",
	}
	if token != "" {
		h.dispatcher.Dispatch(notify.Message{
			Type:   "EMAIL_VERIFICATION",
			UserID: user.ID,
			Email:  user.Email,
			Title:  "Verify your email address",
			Body:   "Your verification code is " + token,
			SentAt: time.Now(),
		})
		if h.exposeTokens {
			resp.VerificationToken = token
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	accessToken, refreshToken, user, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		UserID:       user.ID,
		Username:     user.Username,
		Role:         string(user.Role),
		ExpiresIn:    int64(h.accessTTL.Seconds()),
	})
}

// RefreshToken rotates both tokens; the presented refresh token stops working.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	access, refresh, err := h.authService.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RefreshResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.accessTTL.Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.authService.Logout(ctx, req.RefreshToken); err != nil {
		writeError(c, err)
		return
	}
	// always succeed for unknown tokens to avoid token fishing
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.authService.VerifyEmail(ctx, req.Token); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "email verified"})
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, err := h.authService.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.MessageResponse{Message: "if the address is registered, a reset code has been sent"}
	if token != "" {
		h.dispatcher.Dispatch(notify.Message{
			Type:   "PASSWORD_RESET",
			Email:  req.Email,
			Title:  "Password reset",
			Body:   "Your password reset code is " + token,
			SentAt: time.Now(),
		})
		if h.exposeTokens {
			resp.Token = token
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.authService.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "password updated"})
}
