package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libraryhub/internal/microservices/http-api/handler"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

func setupAuthRouter(exposeTokens bool) (*gin.Engine, *MockAuthService, *recordingDispatcher) {
	gin.SetMode(gin.TestMode)
	svc := new(MockAuthService)
	dispatcher := &recordingDispatcher{}
	r := gin.New()
	h := handler.NewAuthHandler(svc, dispatcher, 15*time.Minute, exposeTokens)
	h.RegisterRoutes(r.Group("/api/auth"), asUser(memberID, models.RoleMember))
	return r, svc, dispatcher
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("success sends the verification code", func(t *testing.T) {
		r, svc, dispatcher := setupAuthRouter(false)
		svc.On("Register", mock.Anything, service.RegisterInput{
			Username: "ada",
			Password: "password123",
			Email:    "ada@example.com",
		}).Return(&models.User{ID: memberID, Username: "ada", Email: "ada@example.com"}, "verify-token", nil)

		w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "ada",
			"password": "password123",
			"email":    "ada@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.Equal(t, memberID, body["user_id"])
		assert.NotContains(t, body, "verification_token")

		sent := dispatcher.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "EMAIL_VERIFICATION", sent[0].Type)
		assert.Contains(t, sent[0].Body, "verify-token")
	})

	t.Run("token echoed in development", func(t *testing.T) {
		r, svc, _ := setupAuthRouter(true)
		svc.On("Register", mock.Anything, mock.Anything).
			Return(&models.User{ID: memberID, Username: "ada"}, "verify-token", nil)

		w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "ada",
			"password": "password123",
			"email":    "ada@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "verify-token", decode(t, w)["verification_token"])
	})

	t.Run("taken username does not say which field", func(t *testing.T) {
		r, svc, _ := setupAuthRouter(false)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, "", service.ErrNameInUse)

		w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "ada",
			"password": "password123",
			"email":    "ada@example.com",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "account creation failed", decode(t, w)["error"])
	})

	t.Run("short password", func(t *testing.T) {
		r, _, _ := setupAuthRouter(false)

		w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "ada",
			"password": "short",
			"email":    "ada@example.com",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"bad password", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"locked", service.ErrAccountLocked, http.StatusLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc, _ := setupAuthRouter(false)
			if tt.err == nil {
				svc.On("Login", mock.Anything, "ada", "password123").
					Return("access", "refresh", &models.User{ID: memberID, Username: "ada", Role: models.RoleMember}, nil)
			} else {
				svc.On("Login", mock.Anything, "ada", "password123").Return("", "", nil, tt.err)
			}

			w := doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{"username": "ada", "password": "password123"})

			assert.Equal(t, tt.status, w.Code)
			if tt.err == nil {
				body := decode(t, w)
				assert.Equal(t, "access", body["access_token"])
				assert.Equal(t, "Bearer", body["token_type"])
				assert.Equal(t, "MEMBER", body["role"])
				assert.Equal(t, float64(900), body["expires_in"])
			}
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	r, svc, _ := setupAuthRouter(false)
	svc.On("RefreshAccessToken", mock.Anything, "old").Return("new-access", "new-refresh", nil)
	svc.On("RefreshAccessToken", mock.Anything, "stale").Return("", "", service.ErrInvalidToken)

	w := doJSON(t, r, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": "old"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new-refresh", decode(t, w)["refresh_token"])

	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": "stale"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	t.Run("unknown email looks the same", func(t *testing.T) {
		r, svc, dispatcher := setupAuthRouter(false)
		svc.On("RequestPasswordReset", mock.Anything, "nobody@example.com").Return("", nil)

		w := doJSON(t, r, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": "nobody@example.com"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, dispatcher.messages())
	})

	t.Run("known email gets a code", func(t *testing.T) {
		r, svc, dispatcher := setupAuthRouter(false)
		svc.On("RequestPasswordReset", mock.Anything, "ada@example.com").Return("reset-token", nil)

		w := doJSON(t, r, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": "ada@example.com"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, decode(t, w), "token")
		sent := dispatcher.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "PASSWORD_RESET", sent[0].Type)
	})

	t.Run("expired token", func(t *testing.T) {
		r, svc, _ := setupAuthRouter(false)
		svc.On("ResetPassword", mock.Anything, "old-token", "newpassword1").Return(service.ErrExpiredToken)

		w := doJSON(t, r, http.MethodPost, "/api/auth/password-reset/confirm", map[string]string{
			"token":        "old-token",
			"new_password": "newpassword1",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
