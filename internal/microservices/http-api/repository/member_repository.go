package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libraryhub/internal/microservices/http-api/models"
)

type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	// GetByID loads the member with its User row.
	GetByID(ctx context.Context, userID string) (*models.Member, error)
	List(ctx context.Context) ([]models.Member, error)
	// AdjustFineBalance adds delta (possibly negative) and floors the result
	// at zero. It returns the new balance.
	AdjustFineBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error)
	SetActive(ctx context.Context, userID string, active bool) error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return translate("create member", r.db.WithContext(ctx).Create(member).Error)
}

func (r *memberRepository) GetByID(ctx context.Context, userID string) (*models.Member, error) {
	var m models.Member
	if err := r.db.WithContext(ctx).Preload("User").First(&m, "user_id = ?", userID).Error; err != nil {
		return nil, translate("get member", err)
	}
	return &m, nil
}

func (r *memberRepository) List(ctx context.Context) ([]models.Member, error) {
	var list []models.Member
	err := r.db.WithContext(ctx).Preload("User").Order("created_at asc").Find(&list).Error
	return list, translate("list members", err)
}

// AdjustFineBalance updates in SQL so concurrent fines on the same member
// never lose an increment.
func (r *memberRepository) AdjustFineBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var m models.Member
	res := r.db.WithContext(ctx).
		Model(&m).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "fine_balance"}}}).
		Where("user_id = ?", userID).
		Update("fine_balance", gorm.Expr("GREATEST(fine_balance + ?, 0)", delta))
	if res.Error != nil {
		return decimal.Zero, translate("adjust fine balance", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrNotFound
	}
	return m.FineBalance, nil
}

func (r *memberRepository) SetActive(ctx context.Context, userID string, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Member{}).Where("user_id = ?", userID).Update("active", active)
	if res.Error != nil {
		return translate("set member active", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
