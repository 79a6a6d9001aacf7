package repository

import (
	"context"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

type CopyRepository interface {
	Create(ctx context.Context, bookCopy *models.BookCopy) error
	GetByID(ctx context.Context, id int64) (*models.BookCopy, error)
	ListByBook(ctx context.Context, bookID int64) ([]models.BookCopy, error)
	// ListAvailable returns AVAILABLE copies ordered by id.
	ListAvailable(ctx context.Context, bookID int64) ([]models.BookCopy, error)
	CountByStatus(ctx context.Context, bookID int64, status models.CopyStatus) (int64, error)
	// TransitionStatus sets status=to only while the copy is still in one of
	// from. It reports false when no row matched.
	TransitionStatus(ctx context.Context, id int64, to models.CopyStatus, from ...models.CopyStatus) (bool, error)
}

type copyRepository struct {
	db *gorm.DB
}

func NewCopyRepository(db *gorm.DB) CopyRepository {
	return &copyRepository{db: db}
}

func (r *copyRepository) Create(ctx context.Context, bookCopy *models.BookCopy) error {
	return translate("create copy", r.db.WithContext(ctx).Create(bookCopy).Error)
}

func (r *copyRepository) GetByID(ctx context.Context, id int64) (*models.BookCopy, error) {
	var c models.BookCopy
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate("get copy", err)
	}
	return &c, nil
}

func (r *copyRepository) ListByBook(ctx context.Context, bookID int64) ([]models.BookCopy, error) {
	var list []models.BookCopy
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Order("id asc").Find(&list).Error
	return list, translate("list copies", err)
}

func (r *copyRepository) ListAvailable(ctx context.Context, bookID int64) ([]models.BookCopy, error) {
	var list []models.BookCopy
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND status = ?", bookID, models.CopyAvailable).
		Order("id asc").
		Find(&list).Error
	return list, translate("list available copies", err)
}

func (r *copyRepository) CountByStatus(ctx context.Context, bookID int64, status models.CopyStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.BookCopy{}).
		Where("book_id = ? AND status = ?", bookID, status).
		Count(&n).Error
	return n, translate("count copies", err)
}

// TransitionStatus is a conditional update: two concurrent checkouts racing
// for the same copy both issue it, and only one sees a matched row.
func (r *copyRepository) TransitionStatus(ctx context.Context, id int64, to models.CopyStatus, from ...models.CopyStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BookCopy{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate("transition copy status", res.Error)
	}
	return res.RowsAffected == 1, nil
}
