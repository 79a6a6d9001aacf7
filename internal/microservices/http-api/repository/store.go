package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every lookup that matches no row. Backends
// translate their own not-found errors (gorm.ErrRecordNotFound) into it.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("duplicate record")

// Store groups the repositories over one backend. Repositories obtained
// from the tx argument of WithinTx see and write the same transaction; a
// non-nil error from fn rolls everything back and is returned unchanged.
type Store interface {
	Books() BookRepository
	Copies() CopyRepository
	Users() UserRepository
	Members() MemberRepository
	Loans() LoanRepository
	LoanHistory() LoanHistoryRepository
	Fines() FineRepository
	Reservations() ReservationRepository
	Transactions() TransactionRepository
	Notifications() NotificationRepository
	RefreshTokens() RefreshTokenRepository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
