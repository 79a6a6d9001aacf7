package repository

import (
	"context"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

type FineRepository interface {
	Create(ctx context.Context, fine *models.Fine) error
	GetByID(ctx context.Context, id int64) (*models.Fine, error)
	Update(ctx context.Context, fine *models.Fine) error
	ListByMember(ctx context.Context, memberID string) ([]models.Fine, error)
	// ListByStatus returns every fine when status is empty.
	ListByStatus(ctx context.Context, status models.FineStatus) ([]models.Fine, error)
	ListByLoan(ctx context.Context, loanID int64, reason models.FineReason) ([]models.Fine, error)
	TransitionStatus(ctx context.Context, id int64, to models.FineStatus, from ...models.FineStatus) (bool, error)
}

type fineRepository struct {
	db *gorm.DB
}

func NewFineRepository(db *gorm.DB) FineRepository {
	return &fineRepository{db: db}
}

func (r *fineRepository) Create(ctx context.Context, fine *models.Fine) error {
	return translate("create fine", r.db.WithContext(ctx).Create(fine).Error)
}

func (r *fineRepository) GetByID(ctx context.Context, id int64) (*models.Fine, error) {
	var f models.Fine
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, translate("get fine", err)
	}
	return &f, nil
}

func (r *fineRepository) Update(ctx context.Context, fine *models.Fine) error {
	return translate("update fine", r.db.WithContext(ctx).Save(fine).Error)
}

func (r *fineRepository) ListByMember(ctx context.Context, memberID string) ([]models.Fine, error) {
	var list []models.Fine
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Order("issue_date desc, id desc").Find(&list).Error
	return list, translate("list member fines", err)
}

func (r *fineRepository) ListByStatus(ctx context.Context, status models.FineStatus) ([]models.Fine, error) {
	var list []models.Fine
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("issue_date desc, id desc").Find(&list).Error
	return list, translate("list fines", err)
}

func (r *fineRepository) ListByLoan(ctx context.Context, loanID int64, reason models.FineReason) ([]models.Fine, error) {
	var list []models.Fine
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND reason = ?", loanID, reason).
		Order("id asc").
		Find(&list).Error
	return list, translate("list loan fines", err)
}

func (r *fineRepository) TransitionStatus(ctx context.Context, id int64, to models.FineStatus, from ...models.FineStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate("transition fine status", res.Error)
	}
	return res.RowsAffected == 1, nil
}
