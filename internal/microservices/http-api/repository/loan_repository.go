package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id int64) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	// CountOpenByMember counts ACTIVE and OVERDUE loans.
	CountOpenByMember(ctx context.Context, memberID string) (int64, error)
	// ListByMember filters by statuses when any are given.
	ListByMember(ctx context.Context, memberID string, statuses ...models.LoanStatus) ([]models.Loan, error)
	ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.Loan, error)
	// ListDueBefore returns loans in status whose due date is strictly before day.
	ListDueBefore(ctx context.Context, status models.LoanStatus, day time.Time) ([]models.Loan, error)
	TransitionStatus(ctx context.Context, id int64, from, to models.LoanStatus) (bool, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return translate("create loan", r.db.WithContext(ctx).Create(loan).Error)
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*models.Loan, error) {
	var l models.Loan
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, translate("get loan", err)
	}
	return &l, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return translate("update loan", r.db.WithContext(ctx).Save(loan).Error)
}

func (r *loanRepository) CountOpenByMember(ctx context.Context, memberID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("member_id = ? AND status IN ?", memberID, []models.LoanStatus{models.LoanActive, models.LoanOverdue}).
		Count(&n).Error
	return n, translate("count open loans", err)
}

func (r *loanRepository) ListByMember(ctx context.Context, memberID string, statuses ...models.LoanStatus) ([]models.Loan, error) {
	var list []models.Loan
	q := r.db.WithContext(ctx).Where("member_id = ?", memberID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Order("checkout_date desc, id desc").Find(&list).Error
	return list, translate("list member loans", err)
}

func (r *loanRepository) ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.Loan, error) {
	var list []models.Loan
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("due_date asc, id asc").Find(&list).Error
	return list, translate("list loans by status", err)
}

func (r *loanRepository) ListDueBefore(ctx context.Context, status models.LoanStatus, day time.Time) ([]models.Loan, error) {
	var list []models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", status, day).
		Order("due_date asc, id asc").
		Find(&list).Error
	return list, translate("list loans due before", err)
}

func (r *loanRepository) TransitionStatus(ctx context.Context, id int64, from, to models.LoanStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate("transition loan status", res.Error)
	}
	return res.RowsAffected == 1, nil
}
