package repository

import (
	"context"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListByMember(ctx context.Context, memberID string) ([]models.Transaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return translate("create transaction", r.db.WithContext(ctx).Create(tx).Error)
}

func (r *transactionRepository) ListByMember(ctx context.Context, memberID string) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Order("date desc, id desc").Find(&list).Error
	return list, translate("list transactions", err)
}
