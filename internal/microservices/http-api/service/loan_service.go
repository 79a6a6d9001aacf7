package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type ReturnResult struct {
	Loan *models.Loan `json:"loan"`
	// Fine carries the loan's overdue charge, nil when returned on time.
	Fine    *models.Fine `json:"fine,omitempty"`
	Receipt *Receipt     `json:"receipt"`
	// Reservation is the queued request the returned copy now serves.
	Reservation *models.Reservation `json:"reservation,omitempty"`
}

// SweepReport summarises one overdue pass.
type SweepReport struct {
	Candidates    int             `json:"candidates"`
	MarkedOverdue int             `json:"marked_overdue"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	TotalFined    decimal.Decimal `json:"total_fined"`
}

type LoanService interface {
	Checkout(ctx context.Context, bookID int64, memberID string) (*models.Loan, error)
	Return(ctx context.Context, loanID int64) (*ReturnResult, error)
	Renew(ctx context.Context, loanID int64) (*models.Loan, error)
	// ProcessOverdue marks late ACTIVE loans OVERDUE and fines them once.
	// Running it twice on the same day changes nothing the second time.
	ProcessOverdue(ctx context.Context) (*SweepReport, error)
	Get(ctx context.Context, loanID int64) (*models.Loan, error)
	MemberLoans(ctx context.Context, memberID string, activeOnly bool) ([]models.Loan, error)
	OverdueLoans(ctx context.Context) ([]models.Loan, error)
	// History is the member's circulation audit trail, newest first.
	History(ctx context.Context, memberID string) ([]models.LoanHistory, error)
}

type loanService struct {
	store    repository.Store
	policy   LoanPolicy
	notifier Notifier
	receipts ReceiptService
	logger   *zap.Logger
	clock    Clock
}

func NewLoanService(store repository.Store, policy LoanPolicy, notifier Notifier, receipts ReceiptService, logger *zap.Logger, clock Clock) LoanService {
	return &loanService{
		store:    store,
		policy:   policy,
		notifier: notifier,
		receipts: receipts,
		logger:   logger,
		clock:    clock,
	}
}

func (s *loanService) Checkout(ctx context.Context, bookID int64, memberID string) (*models.Loan, error) {
	var (
		loan *models.Loan
		book *models.Book
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		member, err := tx.Members().GetByID(ctx, memberID)
		if err != nil {
			return lookupError("checkout: load member", err, ErrMemberNotFound)
		}
		if !member.Active {
			return ErrMemberInactive
		}
		if member.HasOutstandingFines() {
			return ErrOutstandingFines.withf("member has outstanding fines of %s", member.FineBalance.StringFixed(2))
		}

		open, err := tx.Loans().CountOpenByMember(ctx, memberID)
		if err != nil {
			return systemError("checkout: count loans", err)
		}
		if open >= int64(s.policy.MaxActiveLoans) {
			return ErrLoanLimitExceeded.withf("member already has %d of %d allowed loans", open, s.policy.MaxActiveLoans)
		}

		book, err = tx.Books().GetByID(ctx, bookID)
		if err != nil {
			return lookupError("checkout: load book", err, ErrBookNotFound)
		}

		copyID, err := claimCopy(ctx, tx, bookID)
		if err != nil {
			return err
		}

		today := s.clock.today()
		loan = &models.Loan{
			MemberID:     memberID,
			CopyID:       copyID,
			BookID:       bookID,
			CheckoutDate: today,
			DueDate:      today.AddDate(0, 0, s.policy.LoanPeriodDays),
			Status:       models.LoanActive,
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return systemError("checkout: create loan", err)
		}
		if err := recordLoanEvent(ctx, tx, loan, models.LoanActionCheckout, s.clock.now()); err != nil {
			return err
		}
		return fulfillPickup(ctx, tx, memberID, bookID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan_checked_out",
		zap.Int64("loan_id", loan.ID),
		zap.String("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.Int64("copy_id", loan.CopyID),
		zap.Time("due_date", loan.DueDate))
	s.notifier.Notify(ctx, checkoutNotice(loan, book))
	return loan, nil
}

// recordLoanEvent appends the audit row inside the caller's transaction,
// so the event and the state change commit together.
func recordLoanEvent(ctx context.Context, tx repository.Store, loan *models.Loan, action models.LoanAction, at time.Time) error {
	entry := &models.LoanHistory{
		MemberID:   loan.MemberID,
		LoanID:     loan.ID,
		BookID:     loan.BookID,
		Action:     action,
		ActionDate: at,
	}
	return systemError("record loan history", tx.LoanHistory().Create(ctx, entry))
}

// claimCopy takes the first AVAILABLE copy with a conditional update. A
// candidate taken by a concurrent checkout is skipped.
func claimCopy(ctx context.Context, tx repository.Store, bookID int64) (int64, error) {
	candidates, err := tx.Copies().ListAvailable(ctx, bookID)
	if err != nil {
		return 0, systemError("checkout: list copies", err)
	}
	for _, c := range candidates {
		ok, err := tx.Copies().TransitionStatus(ctx, c.ID, models.CopyCheckedOut, models.CopyAvailable)
		if err != nil {
			return 0, systemError("checkout: claim copy", err)
		}
		if ok {
			return c.ID, nil
		}
	}
	return 0, ErrNoAvailableCopy
}

// fulfillPickup closes the member's READY_FOR_PICKUP reservation for the
// book, if any, once they check it out.
func fulfillPickup(ctx context.Context, tx repository.Store, memberID string, bookID int64) error {
	reservations, err := tx.Reservations().ListByMember(ctx, memberID)
	if err != nil {
		return systemError("checkout: list reservations", err)
	}
	for i := range reservations {
		res := &reservations[i]
		if res.BookID != bookID || res.Status != models.ReservationReadyForPickup {
			continue
		}
		res.Status = models.ReservationFulfilled
		return systemError("checkout: fulfil reservation", tx.Reservations().Update(ctx, res))
	}
	return nil
}

func (s *loanService) Return(ctx context.Context, loanID int64) (*ReturnResult, error) {
	result := &ReturnResult{}
	var (
		book    *models.Book
		accrued decimal.Decimal
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		loan, err := tx.Loans().GetByID(ctx, loanID)
		if err != nil {
			return lookupError("return: load loan", err, ErrLoanNotFound)
		}
		if !loan.Status.Open() {
			return ErrLoanNotActive.withf("loan %d is already %s", loan.ID, loan.Status)
		}

		today := s.clock.today()
		loan.ReturnDate = &today
		loan.Status = models.LoanReturned
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return systemError("return: update loan", err)
		}
		if err := recordLoanEvent(ctx, tx, loan, models.LoanActionReturn, s.clock.now()); err != nil {
			return err
		}

		fine, newly, err := accrueOverdueFine(ctx, tx, s.policy, loan, today)
		if err != nil {
			return err
		}
		if newly.IsPositive() {
			if _, err := tx.Members().AdjustFineBalance(ctx, loan.MemberID, newly); err != nil {
				return lookupError("return: adjust balance", err, ErrMemberNotFound)
			}
		}
		accrued = newly

		ok, err := tx.Copies().TransitionStatus(ctx, loan.CopyID, models.CopyAvailable, models.CopyCheckedOut)
		if err != nil {
			return systemError("return: release copy", err)
		}
		if !ok {
			s.logger.Warn("return_copy_not_checked_out", zap.Int64("loan_id", loan.ID), zap.Int64("copy_id", loan.CopyID))
		}

		res, err := promoteOldestReservation(ctx, tx, loan.BookID, s.clock.now())
		if err != nil {
			return err
		}

		book, err = tx.Books().GetByID(ctx, loan.BookID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return systemError("return: load book", err)
		}

		result.Loan = loan
		result.Fine = fine
		result.Reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	loan := result.Loan
	s.logger.Info("loan_returned",
		zap.Int64("loan_id", loan.ID),
		zap.String("member_id", loan.MemberID),
		zap.String("fine_accrued", accrued.StringFixed(2)))

	s.notifier.Notify(ctx, returnNotice(loan, book, result.Fine))
	if result.Reservation != nil {
		announceReady(ctx, s.store, s.notifier, s.logger, result.Reservation, s.clock.now())
	}
	result.Receipt = s.receipts.ForReturn(loan, book, result.Fine)
	return result, nil
}

func (s *loanService) Renew(ctx context.Context, loanID int64) (*models.Loan, error) {
	var (
		loan *models.Loan
		book *models.Book
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		loan, err = tx.Loans().GetByID(ctx, loanID)
		if err != nil {
			return lookupError("renew: load loan", err, ErrLoanNotFound)
		}
		if loan.Status != models.LoanActive {
			return ErrLoanNotActive.withf("loan %d is %s", loan.ID, loan.Status)
		}
		if loan.RenewalCount >= s.policy.MaxRenewals {
			return ErrMaxRenewalsReached.withf("loan %d has been renewed %d times", loan.ID, loan.RenewalCount)
		}

		member, err := tx.Members().GetByID(ctx, loan.MemberID)
		if err != nil {
			return lookupError("renew: load member", err, ErrMemberNotFound)
		}
		if member.HasOutstandingFines() {
			return ErrOutstandingFines.withf("member has outstanding fines of %s", member.FineBalance.StringFixed(2))
		}

		loan.DueDate = loan.DueDate.AddDate(0, 0, s.policy.LoanPeriodDays)
		loan.RenewalCount++
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return systemError("renew: update loan", err)
		}
		if err := recordLoanEvent(ctx, tx, loan, models.LoanActionRenewal, s.clock.now()); err != nil {
			return err
		}

		book = bookForNotice(ctx, tx, s.logger, loan.BookID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan_renewed",
		zap.Int64("loan_id", loan.ID),
		zap.Int("renewal_count", loan.RenewalCount),
		zap.Time("due_date", loan.DueDate))
	s.notifier.Notify(ctx, renewalNotice(loan, book))
	return loan, nil
}

func (s *loanService) ProcessOverdue(ctx context.Context) (*SweepReport, error) {
	today := s.clock.today()
	candidates, err := s.store.Loans().ListDueBefore(ctx, models.LoanActive, today)
	if err != nil {
		return nil, systemError("overdue sweep: list loans", err)
	}

	report := &SweepReport{Candidates: len(candidates), TotalFined: decimal.Zero}
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		loan := &candidates[i]

		var (
			fine    *models.Fine
			accrued decimal.Decimal
			marked  bool
		)
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			ok, err := tx.Loans().TransitionStatus(ctx, loan.ID, models.LoanActive, models.LoanOverdue)
			if err != nil {
				return systemError("overdue sweep: mark loan", err)
			}
			if !ok {
				return nil
			}
			marked = true
			loan.Status = models.LoanOverdue

			fine, accrued, err = accrueOverdueFine(ctx, tx, s.policy, loan, today)
			if err != nil {
				return err
			}
			if accrued.IsPositive() {
				if _, err := tx.Members().AdjustFineBalance(ctx, loan.MemberID, accrued); err != nil {
					return lookupError("overdue sweep: adjust balance", err, ErrMemberNotFound)
				}
			}
			return nil
		})
		if err != nil {
			report.Failed++
			s.logger.Error("overdue_loan_failed", zap.Int64("loan_id", loan.ID), zap.Error(err))
			continue
		}
		if !marked {
			report.Skipped++
			continue
		}

		report.MarkedOverdue++
		report.TotalFined = report.TotalFined.Add(accrued)
		book := bookForNotice(ctx, s.store, s.logger, loan.BookID)
		s.notifier.Notify(ctx, overdueNotice(loan, book, fine))
	}

	s.logger.Info("overdue_sweep_complete",
		zap.Int("candidates", report.Candidates),
		zap.Int("marked_overdue", report.MarkedOverdue),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.String("total_fined", report.TotalFined.StringFixed(2)))
	return report, nil
}

func (s *loanService) Get(ctx context.Context, loanID int64) (*models.Loan, error) {
	loan, err := s.store.Loans().GetByID(ctx, loanID)
	if err != nil {
		return nil, lookupError("get loan", err, ErrLoanNotFound)
	}
	return loan, nil
}

func (s *loanService) MemberLoans(ctx context.Context, memberID string, activeOnly bool) ([]models.Loan, error) {
	var statuses []models.LoanStatus
	if activeOnly {
		statuses = []models.LoanStatus{models.LoanActive, models.LoanOverdue}
	}
	list, err := s.store.Loans().ListByMember(ctx, memberID, statuses...)
	return list, systemError("list member loans", err)
}

func (s *loanService) OverdueLoans(ctx context.Context) ([]models.Loan, error) {
	list, err := s.store.Loans().ListByStatus(ctx, models.LoanOverdue)
	return list, systemError("list overdue loans", err)
}

func (s *loanService) History(ctx context.Context, memberID string) ([]models.LoanHistory, error) {
	list, err := s.store.LoanHistory().ListByMember(ctx, memberID)
	return list, systemError("list loan history", err)
}
