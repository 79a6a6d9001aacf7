package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
)

func TestCheckout_Success(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 2)

	loan, err := h.loans.Checkout(h.ctx, book.ID, member)
	require.NoError(t, err)

	assert.Equal(t, models.LoanActive, loan.Status)
	assert.Equal(t, member, loan.MemberID)
	assert.Equal(t, book.ID, loan.BookID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), loan.CheckoutDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), loan.DueDate)
	assert.Zero(t, loan.RenewalCount)

	c, err := h.store.Copies().GetByID(h.ctx, loan.CopyID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyCheckedOut, c.Status)
	assert.Equal(t, int64(1), h.available(t, book.ID))
	assert.Len(t, h.notifier.ofType(models.NotificationCheckout), 1)
}

func TestCheckout_OutstandingFines(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	first, second, third := h.addBook(t, 1), h.addBook(t, 1), h.addBook(t, 1)

	_, err := h.loans.Checkout(h.ctx, first.ID, member)
	require.NoError(t, err)
	_, err = h.loans.Checkout(h.ctx, second.ID, member)
	require.NoError(t, err)
	h.setBalance(t, member, "5.00")

	_, err = h.loans.Checkout(h.ctx, third.ID, member)
	assert.ErrorIs(t, err, ErrOutstandingFines)

	copies, err := h.store.Copies().ListByBook(h.ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyAvailable, copies[0].Status)

	open, err := h.store.Loans().CountOpenByMember(h.ctx, member)
	require.NoError(t, err)
	assert.Equal(t, int64(2), open)
}

func TestCheckout_AnyPositiveBalanceBlocks(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)
	h.setBalance(t, member, "0.01")

	_, err := h.loans.Checkout(h.ctx, book.ID, member)
	assert.ErrorIs(t, err, ErrOutstandingFines)
	assert.Equal(t, int64(1), h.available(t, book.ID))
}

func TestCheckout_LoanLimit(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	for i := 0; i < h.policy.MaxActiveLoans; i++ {
		_, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
		require.NoError(t, err)
	}

	extra := h.addBook(t, 1)
	_, err := h.loans.Checkout(h.ctx, extra.ID, member)
	assert.ErrorIs(t, err, ErrLoanLimitExceeded)
	assert.Equal(t, int64(1), h.available(t, extra.ID))
}

func TestCheckout_OverdueLoansCountTowardsLimit(t *testing.T) {
	h := newHarness(t)
	h.policy.MaxActiveLoans = 1
	h.loans = NewLoanService(h.store, h.policy, h.notifier, NewReceiptService(h.clock.Now), zap.NewNop(), h.clock.Now)
	member := h.addMember(t, "alice")

	_, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)
	loans, err := h.store.Loans().ListByMember(h.ctx, member)
	require.NoError(t, err)
	ok, err := h.store.Loans().TransitionStatus(h.ctx, loans[0].ID, models.LoanActive, models.LoanOverdue)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	assert.ErrorIs(t, err, ErrLoanLimitExceeded)
}

func TestCheckout_NoAvailableCopy(t *testing.T) {
	h := newHarness(t)
	alice := h.addMember(t, "alice")
	bob := h.addMember(t, "bob")
	book := h.addBook(t, 1)

	_, err := h.loans.Checkout(h.ctx, book.ID, alice)
	require.NoError(t, err)

	_, err = h.loans.Checkout(h.ctx, book.ID, bob)
	assert.ErrorIs(t, err, ErrNoAvailableCopy)
}

func TestCheckout_NotFound(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)

	_, err := h.loans.Checkout(h.ctx, book.ID, "missing")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = h.loans.Checkout(h.ctx, 9999, member)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestCheckout_InactiveMember(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)
	_, err := h.members.SetActive(h.ctx, member, false)
	require.NoError(t, err)

	_, err = h.loans.Checkout(h.ctx, book.ID, member)
	assert.ErrorIs(t, err, ErrMemberInactive)
}

func TestCheckout_ConcurrentLastCopy(t *testing.T) {
	h := newHarness(t)
	book := h.addBook(t, 1)
	const callers = 8
	members := make([]string, callers)
	for i := range members {
		members[i] = h.addMember(t, "member"+string(rune('a'+i)))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		noCopy    int
	)
	for _, m := range members {
		wg.Add(1)
		go func(memberID string) {
			defer wg.Done()
			_, err := h.loans.Checkout(context.Background(), book.ID, memberID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrNoAvailableCopy):
				noCopy++
			}
		}(m)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, noCopy)
	assert.Zero(t, h.available(t, book.ID))
}

func TestCheckout_FulfilsReadyReservation(t *testing.T) {
	h := newHarness(t)
	alice := h.addMember(t, "alice")
	bob := h.addMember(t, "bob")
	book := h.addBook(t, 1)

	loan, err := h.loans.Checkout(h.ctx, book.ID, alice)
	require.NoError(t, err)
	res, err := h.reservations.Create(h.ctx, bob, book.ID)
	require.NoError(t, err)

	result, err := h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Reservation)
	assert.Equal(t, res.ID, result.Reservation.ID)

	_, err = h.loans.Checkout(h.ctx, book.ID, bob)
	require.NoError(t, err)

	got, err := h.reservations.Get(h.ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationFulfilled, got.Status)
}

func TestReturn_OnTime(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)

	loan, err := h.loans.Checkout(h.ctx, book.ID, member)
	require.NoError(t, err)
	h.clock.advanceDays(14) // due date itself is not late

	result, err := h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, models.LoanReturned, result.Loan.Status)
	require.NotNil(t, result.Loan.ReturnDate)
	assert.Equal(t, loan.DueDate, *result.Loan.ReturnDate)
	assert.Nil(t, result.Fine)
	assert.Empty(t, h.loanFines(t, loan.ID))
	requireDecimal(t, "0", h.balance(t, member))
	assert.Equal(t, int64(1), h.available(t, book.ID))
	requireDecimal(t, "0", result.Receipt.Total)
}

func TestReturn_Late(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)

	loan, err := h.loans.Checkout(h.ctx, book.ID, member)
	require.NoError(t, err)
	h.clock.advanceDays(17)

	result, err := h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)

	require.NotNil(t, result.Fine)
	requireDecimal(t, "1.50", result.Fine.Amount)
	assert.Equal(t, models.FinePending, result.Fine.Status)
	assert.Equal(t, models.FineReasonOverdue, result.Fine.Reason)
	require.NotNil(t, result.Fine.LoanID)
	assert.Equal(t, loan.ID, *result.Fine.LoanID)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), result.Fine.IssueDate)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), result.Fine.DueDate)

	requireDecimal(t, "1.50", h.balance(t, member))
	assert.Equal(t, int64(1), h.available(t, book.ID))
	requireDecimal(t, "1.50", result.Receipt.Total)
	assert.Contains(t, result.Receipt.Text(), "1.50")
}

func TestReturn_LateFinePerDay(t *testing.T) {
	for _, days := range []int{1, 2, 5, 30} {
		h := newHarness(t)
		member := h.addMember(t, "alice")
		loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
		require.NoError(t, err)
		h.clock.advanceDays(14 + days)

		result, err := h.loans.Return(h.ctx, loan.ID)
		require.NoError(t, err)
		require.NotNil(t, result.Fine, "days late: %d", days)
		want := h.policy.DailyFineRate.Mul(decimal.NewFromInt(int64(days)))
		requireDecimal(t, want.String(), result.Fine.Amount)
	}
}

func TestReturn_Twice(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	_, err = h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)
	_, err = h.loans.Return(h.ctx, loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)

	_, err = h.loans.Return(h.ctx, 9999)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestReturn_PromotesOldestReservation(t *testing.T) {
	h := newHarness(t)
	holder := h.addMember(t, "holder")
	alice := h.addMember(t, "alice")
	bob := h.addMember(t, "bob")
	book := h.addBook(t, 1)

	loan, err := h.loans.Checkout(h.ctx, book.ID, holder)
	require.NoError(t, err)

	h.clock.set(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	resA, err := h.reservations.Create(h.ctx, alice, book.ID)
	require.NoError(t, err)
	h.clock.set(time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC))
	resB, err := h.reservations.Create(h.ctx, bob, book.ID)
	require.NoError(t, err)

	result, err := h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Reservation)
	assert.Equal(t, resA.ID, result.Reservation.ID)

	a, err := h.reservations.Get(h.ctx, resA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationReadyForPickup, a.Status)
	assert.NotNil(t, a.NotifiedAt)

	b, err := h.reservations.Get(h.ctx, resB.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, b.Status)

	ready := h.notifier.ofType(models.NotificationReservationReady)
	require.Len(t, ready, 1)
	assert.Equal(t, alice, ready[0].UserID)
}

func TestRenew_Success(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	renewed, err := h.loans.Renew(h.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed.RenewalCount)
	assert.Equal(t, loan.DueDate.AddDate(0, 0, 14), renewed.DueDate)
	assert.Len(t, h.notifier.ofType(models.NotificationRenewal), 1)
}

func TestRenew_MaxRenewalsReached(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	for i := 0; i < h.policy.MaxRenewals; i++ {
		_, err := h.loans.Renew(h.ctx, loan.ID)
		require.NoError(t, err)
	}
	before, err := h.loans.Get(h.ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, 2, before.RenewalCount)

	_, err = h.loans.Renew(h.ctx, loan.ID)
	assert.ErrorIs(t, err, ErrMaxRenewalsReached)

	after, err := h.loans.Get(h.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, before.DueDate, after.DueDate)
	assert.Equal(t, 2, after.RenewalCount)
}

func TestRenew_OutstandingFines(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)
	h.setBalance(t, member, "2.00")

	_, err = h.loans.Renew(h.ctx, loan.ID)
	assert.ErrorIs(t, err, ErrOutstandingFines)

	after, err := h.loans.Get(h.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.DueDate, after.DueDate)
}

func TestRenew_OverdueLoan(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)
	h.clock.advanceDays(20)
	_, err = h.loans.ProcessOverdue(h.ctx)
	require.NoError(t, err)

	_, err = h.loans.Renew(h.ctx, loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)
}

func TestProcessOverdue_Idempotent(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	late, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	h.clock.advanceDays(10)
	current, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	h.clock.advanceDays(6) // first loan 2 days late
	report, err := h.loans.ProcessOverdue(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.MarkedOverdue)
	requireDecimal(t, "1.00", report.TotalFined)

	report, err = h.loans.ProcessOverdue(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Zero(t, report.MarkedOverdue)

	got, err := h.loans.Get(h.ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanOverdue, got.Status)
	other, err := h.loans.Get(h.ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanActive, other.Status)

	fines := h.loanFines(t, late.ID)
	require.Len(t, fines, 1)
	requireDecimal(t, "1.00", fines[0].Amount)
	requireDecimal(t, "1.00", h.balance(t, member))
	assert.Len(t, h.notifier.ofType(models.NotificationOverdue), 1)

	overdue, err := h.loans.OverdueLoans(h.ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}

func TestReturn_AfterSweepTopsUpFine(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	h.clock.advanceDays(16)
	_, err = h.loans.ProcessOverdue(h.ctx)
	require.NoError(t, err)
	requireDecimal(t, "1.00", h.balance(t, member))

	h.clock.advanceDays(3)
	result, err := h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)

	fines := h.loanFines(t, loan.ID)
	require.Len(t, fines, 1)
	requireDecimal(t, "2.50", fines[0].Amount)
	requireDecimal(t, "2.50", result.Fine.Amount)
	requireDecimal(t, "2.50", h.balance(t, member))
}

func TestReturn_AfterPaidSweepFine(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	loan, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)

	h.clock.advanceDays(16)
	_, err = h.loans.ProcessOverdue(h.ctx)
	require.NoError(t, err)
	swept := h.loanFines(t, loan.ID)
	require.Len(t, swept, 1)
	_, err = h.fines.Pay(h.ctx, swept[0].ID, "CARD")
	require.NoError(t, err)
	requireDecimal(t, "0", h.balance(t, member))

	h.clock.advanceDays(3)
	result, err := h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)
	requireDecimal(t, "1.50", result.Fine.Amount)
	requireDecimal(t, "1.50", h.balance(t, member))

	total := dec("0")
	for _, f := range h.loanFines(t, loan.ID) {
		total = total.Add(f.Amount)
	}
	requireDecimal(t, "2.50", total)
}

func TestMemberLoans(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	first, err := h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)
	_, err = h.loans.Checkout(h.ctx, h.addBook(t, 1).ID, member)
	require.NoError(t, err)
	_, err = h.loans.Return(h.ctx, first.ID)
	require.NoError(t, err)

	all, err := h.loans.MemberLoans(h.ctx, member, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := h.loans.MemberLoans(h.ctx, member, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestLoanHistory_RecordsEachEvent(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)

	loan, err := h.loans.Checkout(h.ctx, book.ID, member)
	require.NoError(t, err)
	h.clock.advanceDays(3)
	_, err = h.loans.Renew(h.ctx, loan.ID)
	require.NoError(t, err)
	h.clock.advanceDays(3)
	_, err = h.loans.Return(h.ctx, loan.ID)
	require.NoError(t, err)

	history, err := h.loans.History(h.ctx, member)
	require.NoError(t, err)
	require.Len(t, history, 3)

	want := []models.LoanAction{models.LoanActionReturn, models.LoanActionRenewal, models.LoanActionCheckout}
	for i, entry := range history {
		assert.Equal(t, want[i], entry.Action)
		assert.Equal(t, loan.ID, entry.LoanID)
		assert.Equal(t, book.ID, entry.BookID)
		assert.Equal(t, member, entry.MemberID)
	}
	assert.Equal(t, startDate, history[2].ActionDate)
	assert.Equal(t, startDate.AddDate(0, 0, 6), history[0].ActionDate)
}

func TestLoanHistory_FailedCheckoutLeavesNoRow(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 0)

	_, err := h.loans.Checkout(h.ctx, book.ID, member)
	require.ErrorIs(t, err, ErrNoAvailableCopy)

	history, err := h.loans.History(h.ctx, member)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLoanHistory_LostItem(t *testing.T) {
	h := newHarness(t)
	member := h.addMember(t, "alice")
	book := h.addBook(t, 1)
	loan, err := h.loans.Checkout(h.ctx, book.ID, member)
	require.NoError(t, err)

	_, err = h.fines.IssueLostItemFine(h.ctx, loan.ID)
	require.NoError(t, err)

	entries, err := h.store.LoanHistory().ListByLoan(h.ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LoanActionCheckout, entries[0].Action)
	assert.Equal(t, models.LoanActionLost, entries[1].Action)
}

func TestLoanHistory_PerMember(t *testing.T) {
	h := newHarness(t)
	alice := h.addMember(t, "alice")
	bob := h.addMember(t, "bob")
	book := h.addBook(t, 2)

	_, err := h.loans.Checkout(h.ctx, book.ID, alice)
	require.NoError(t, err)
	_, err = h.loans.Checkout(h.ctx, book.ID, bob)
	require.NoError(t, err)

	history, err := h.loans.History(h.ctx, bob)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, bob, history[0].MemberID)
}
