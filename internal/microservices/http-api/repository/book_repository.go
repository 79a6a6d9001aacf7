package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"libraryhub/internal/microservices/http-api/models"
)

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	// List returns one page of the catalog and the total row count.
	List(ctx context.Context, page, pageSize int) ([]models.Book, int64, error)
	Search(ctx context.Context, query string) ([]models.Book, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	return translate("create book", r.db.WithContext(ctx).Create(book).Error)
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate("get book", err)
	}
	return &b, nil
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&b).Error; err != nil {
		return nil, translate("get book by isbn", err)
	}
	return &b, nil
}

func (r *bookRepository) List(ctx context.Context, page, pageSize int) ([]models.Book, int64, error) {
	var list []models.Book
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, translate("count books", err)
	}

	offset := (page - 1) * pageSize
	if err := r.db.WithContext(ctx).
		Order("title asc, id asc").
		Limit(pageSize).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, translate("list books", err)
	}
	return list, total, nil
}

// Search does a case-insensitive match on title, author and isbn. Every
// whitespace-separated token has to appear in at least one of the fields.
func (r *bookRepository) Search(ctx context.Context, query string) ([]models.Book, error) {
	var list []models.Book
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return list, nil
	}

	clauses := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)*3)
	for _, t := range tokens {
		p := "%" + t + "%"
		clauses = append(clauses, "(title ILIKE ? OR COALESCE(author,'') ILIKE ? OR isbn ILIKE ?)")
		args = append(args, p, p, p)
	}

	if err := r.db.WithContext(ctx).
		Where(strings.Join(clauses, " AND "), args...).
		Order("title asc, id asc").
		Find(&list).Error; err != nil {
		return nil, translate("search books", err)
	}
	return list, nil
}
