// Package memory is an in-memory repository.Store used by tests and by
// STORE_DRIVER=memory. WithinTx serialises transactions behind one mutex
// and restores a snapshot when the callback fails.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type state struct {
	seq int64

	books         map[int64]models.Book
	copies        map[int64]models.BookCopy
	users         map[string]models.User
	members       map[string]models.Member
	loans         map[int64]models.Loan
	loanHistory   map[int64]models.LoanHistory
	fines         map[int64]models.Fine
	reservations  map[int64]models.Reservation
	transactions  map[int64]models.Transaction
	notifications map[int64]models.Notification
	refreshTokens map[string]models.RefreshToken
}

func newState() *state {
	return &state{
		books:         make(map[int64]models.Book),
		copies:        make(map[int64]models.BookCopy),
		users:         make(map[string]models.User),
		members:       make(map[string]models.Member),
		loans:         make(map[int64]models.Loan),
		loanHistory:   make(map[int64]models.LoanHistory),
		fines:         make(map[int64]models.Fine),
		reservations:  make(map[int64]models.Reservation),
		transactions:  make(map[int64]models.Transaction),
		notifications: make(map[int64]models.Notification),
		refreshTokens: make(map[string]models.RefreshToken),
	}
}

func (s *state) clone() *state {
	return &state{
		seq:           s.seq,
		books:         maps.Clone(s.books),
		copies:        maps.Clone(s.copies),
		users:         maps.Clone(s.users),
		members:       maps.Clone(s.members),
		loans:         maps.Clone(s.loans),
		loanHistory:   maps.Clone(s.loanHistory),
		fines:         maps.Clone(s.fines),
		reservations:  maps.Clone(s.reservations),
		transactions:  maps.Clone(s.transactions),
		notifications: maps.Clone(s.notifications),
		refreshTokens: maps.Clone(s.refreshTokens),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store implements repository.Store.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState(), now: time.Now}
}

var _ repository.Store = (*Store)(nil)

// do runs fn under the store lock unless the caller already holds it
// through WithinTx.
func (s *Store) do(fn func(d *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) Books() repository.BookRepository                 { return bookRepo{s} }
func (s *Store) Copies() repository.CopyRepository                { return copyRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Members() repository.MemberRepository             { return memberRepo{s} }
func (s *Store) Loans() repository.LoanRepository                 { return loanRepo{s} }
func (s *Store) LoanHistory() repository.LoanHistoryRepository    { return loanHistoryRepo{s} }
func (s *Store) Fines() repository.FineRepository                 { return fineRepo{s} }
func (s *Store) Reservations() repository.ReservationRepository   { return reservationRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository   { return transactionRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return refreshTokenRepo{s} }

func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}
