package repository

import (
	"context"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

// RefreshTokenRepository handles persistence of refresh tokens
type RefreshTokenRepository interface {
	Create(ctx context.Context, refreshToken *models.RefreshToken) error
	FindByToken(ctx context.Context, tokenString string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, tokenID string) error
	Delete(ctx context.Context, tokenID string) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, refreshToken *models.RefreshToken) error {
	return translate("create refresh token", r.db.WithContext(ctx).Create(refreshToken).Error)
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, tokenString string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", tokenString).First(&refreshToken).Error; err != nil {
		return nil, translate("find refresh token", err)
	}
	return &refreshToken, nil
}

// Revoke marks a refresh token as revoked; rotation revokes the old token
// before issuing the new one.
func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenID string) error {
	err := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ?", tokenID).
		Update("revoked", true).Error
	return translate("revoke refresh token", err)
}

// Delete removes a token row, used by logout.
func (r *refreshTokenRepository) Delete(ctx context.Context, tokenID string) error {
	err := r.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&models.RefreshToken{}).Error
	return translate("delete refresh token", err)
}
