package repository

import (
	"context"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

// LoanHistoryRepository is append-only; rows are never updated.
type LoanHistoryRepository interface {
	Create(ctx context.Context, entry *models.LoanHistory) error
	// ListByMember returns the member's events, newest first.
	ListByMember(ctx context.Context, memberID string) ([]models.LoanHistory, error)
	ListByLoan(ctx context.Context, loanID int64) ([]models.LoanHistory, error)
}

type loanHistoryRepository struct {
	db *gorm.DB
}

func NewLoanHistoryRepository(db *gorm.DB) LoanHistoryRepository {
	return &loanHistoryRepository{db: db}
}

func (r *loanHistoryRepository) Create(ctx context.Context, entry *models.LoanHistory) error {
	return translate("create loan history", r.db.WithContext(ctx).Create(entry).Error)
}

func (r *loanHistoryRepository) ListByMember(ctx context.Context, memberID string) ([]models.LoanHistory, error) {
	var list []models.LoanHistory
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("action_date desc, id desc").
		Find(&list).Error
	return list, translate("list loan history", err)
}

func (r *loanHistoryRepository) ListByLoan(ctx context.Context, loanID int64) ([]models.LoanHistory, error) {
	var list []models.LoanHistory
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("id").Find(&list).Error
	return list, translate("list loan history", err)
}
