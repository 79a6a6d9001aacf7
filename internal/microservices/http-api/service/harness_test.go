package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository/memory"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) ofType(t models.NotificationType) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) advanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.AddDate(0, 0, n)
}

type harness struct {
	ctx          context.Context
	store        *memory.Store
	clock        *testClock
	notifier     *recordingNotifier
	policy       LoanPolicy
	loans        LoanService
	fines        FineService
	reservations ReservationService
	catalog      CatalogService
	members      MemberService
	books        int
}

// startDate is a Friday morning; loans taken then are due two weeks later.
var startDate = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		clock:    &testClock{t: startDate},
		notifier: &recordingNotifier{},
		policy:   DefaultLoanPolicy(),
	}
	clock := Clock(h.clock.Now)
	logger := zap.NewNop()
	receipts := NewReceiptService(clock)
	h.loans = NewLoanService(h.store, h.policy, h.notifier, receipts, logger, clock)
	h.fines = NewFineService(h.store, h.policy, h.notifier, receipts, logger, clock)
	h.reservations = NewReservationService(h.store, h.notifier, logger, clock)
	h.catalog = NewCatalogService(h.store, h.notifier, logger, clock)
	h.members = NewMemberService(h.store, logger)
	return h
}

// isbn13 builds a valid ISBN-13 from a seed.
func isbn13(seed int) string {
	base := fmt.Sprintf("978%09d", seed)
	sum := 0
	for i, c := range base {
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return fmt.Sprintf("%s%d", base, (10-sum%10)%10)
}

func (h *harness) addMember(t *testing.T, name string) string {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: models.RoleMember}
	require.NoError(t, h.store.Users().Create(h.ctx, user))
	require.NoError(t, h.store.Members().Create(h.ctx, &models.Member{
		UserID:              user.ID,
		MembershipStartDate: startDate,
		Active:              true,
	}))
	return user.ID
}

func (h *harness) addBook(t *testing.T, copies int) *models.Book {
	t.Helper()
	h.books++
	book := &models.Book{Title: fmt.Sprintf("Book %d", h.books), ISBN: isbn13(h.books)}
	require.NoError(t, h.store.Books().Create(h.ctx, book))
	for i := 0; i < copies; i++ {
		require.NoError(t, h.store.Copies().Create(h.ctx, &models.BookCopy{BookID: book.ID}))
	}
	return book
}

func (h *harness) setBalance(t *testing.T, memberID, amount string) {
	t.Helper()
	m, err := h.store.Members().GetByID(h.ctx, memberID)
	require.NoError(t, err)
	_, err = h.store.Members().AdjustFineBalance(h.ctx, memberID, dec(amount).Sub(m.FineBalance))
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, memberID string) decimal.Decimal {
	t.Helper()
	m, err := h.store.Members().GetByID(h.ctx, memberID)
	require.NoError(t, err)
	return m.FineBalance
}

func (h *harness) available(t *testing.T, bookID int64) int64 {
	t.Helper()
	n, err := h.store.Copies().CountByStatus(h.ctx, bookID, models.CopyAvailable)
	require.NoError(t, err)
	return n
}

func (h *harness) loanFines(t *testing.T, loanID int64) []models.Fine {
	t.Helper()
	fines, err := h.store.Fines().ListByLoan(h.ctx, loanID, models.FineReasonOverdue)
	require.NoError(t, err)
	return fines
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
