package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates the postgres-backed Store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Books() BookRepository                 { return NewBookRepository(s.db) }
func (s *gormStore) Copies() CopyRepository                { return NewCopyRepository(s.db) }
func (s *gormStore) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *gormStore) Members() MemberRepository             { return NewMemberRepository(s.db) }
func (s *gormStore) Loans() LoanRepository                 { return NewLoanRepository(s.db) }
func (s *gormStore) LoanHistory() LoanHistoryRepository    { return NewLoanHistoryRepository(s.db) }
func (s *gormStore) Fines() FineRepository                 { return NewFineRepository(s.db) }
func (s *gormStore) Reservations() ReservationRepository   { return NewReservationRepository(s.db) }
func (s *gormStore) Transactions() TransactionRepository   { return NewTransactionRepository(s.db) }
func (s *gormStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *gormStore) RefreshTokens() RefreshTokenRepository { return NewRefreshTokenRepository(s.db) }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translate maps driver errors onto the repository sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
