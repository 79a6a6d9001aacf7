package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type PaymentResult struct {
	Fine        *models.Fine        `json:"fine"`
	Transaction *models.Transaction `json:"transaction"`
	Receipt     *Receipt            `json:"receipt"`
	Balance     decimal.Decimal     `json:"balance"`
}

type FineService interface {
	// CalculateOverdueFine returns the fine owed for loan as of today, or
	// false when the loan is not late.
	CalculateOverdueFine(loan *models.Loan, today time.Time) (*models.Fine, bool)
	Get(ctx context.Context, fineID int64) (*models.Fine, error)
	Pay(ctx context.Context, fineID int64, method string) (*PaymentResult, error)
	Waive(ctx context.Context, fineID int64, reason string) (*models.Fine, error)
	Dispute(ctx context.Context, fineID int64, reason string) (*models.Fine, error)
	IssueDamageFine(ctx context.Context, loanID int64, note string) (*models.Fine, error)
	IssueLostItemFine(ctx context.Context, loanID int64) (*models.Fine, error)
	MemberFines(ctx context.Context, memberID string) ([]models.Fine, error)
	ListFines(ctx context.Context, status models.FineStatus) ([]models.Fine, error)
}

type fineService struct {
	store    repository.Store
	policy   LoanPolicy
	notifier Notifier
	receipts ReceiptService
	logger   *zap.Logger
	clock    Clock
}

func NewFineService(store repository.Store, policy LoanPolicy, notifier Notifier, receipts ReceiptService, logger *zap.Logger, clock Clock) FineService {
	return &fineService{
		store:    store,
		policy:   policy,
		notifier: notifier,
		receipts: receipts,
		logger:   logger,
		clock:    clock,
	}
}

func (s *fineService) CalculateOverdueFine(loan *models.Loan, today time.Time) (*models.Fine, bool) {
	return calculateOverdueFine(s.policy, loan, today)
}

func calculateOverdueFine(policy LoanPolicy, loan *models.Loan, today time.Time) (*models.Fine, bool) {
	days := daysBetween(loan.DueDate, today)
	if days <= 0 {
		return nil, false
	}
	amount := policy.DailyFineRate.Mul(decimal.NewFromInt(int64(days)))
	if policy.MaxOverdueFine.IsPositive() && amount.GreaterThan(policy.MaxOverdueFine) {
		amount = policy.MaxOverdueFine
	}
	issue := dateOf(today)
	loanID := loan.ID
	return &models.Fine{
		MemberID:  loan.MemberID,
		LoanID:    &loanID,
		Amount:    amount,
		Reason:    models.FineReasonOverdue,
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, policy.FineGraceDays),
		Status:    models.FinePending,
	}, true
}

// accrueOverdueFine brings the overdue fines of loan up to the amount owed
// as of today. Amounts already issued for the loan count towards the total;
// a PENDING fine is topped up, otherwise a new fine takes the remainder.
// It returns the fine that now carries the loan's lateness and the newly
// accrued amount, which the caller adds to the member balance.
func accrueOverdueFine(ctx context.Context, tx repository.Store, policy LoanPolicy, loan *models.Loan, today time.Time) (*models.Fine, decimal.Decimal, error) {
	owed, late := calculateOverdueFine(policy, loan, today)
	if !late {
		return nil, decimal.Zero, nil
	}

	existing, err := tx.Fines().ListByLoan(ctx, loan.ID, models.FineReasonOverdue)
	if err != nil {
		return nil, decimal.Zero, systemError("list loan fines", err)
	}

	issued := decimal.Zero
	var pending *models.Fine
	for i := range existing {
		issued = issued.Add(existing[i].Amount)
		if existing[i].Status == models.FinePending {
			pending = &existing[i]
		}
	}

	remainder := owed.Amount.Sub(issued)
	if !remainder.IsPositive() {
		if len(existing) == 0 {
			return nil, decimal.Zero, nil
		}
		if pending != nil {
			return pending, decimal.Zero, nil
		}
		return &existing[len(existing)-1], decimal.Zero, nil
	}

	if pending != nil {
		pending.Amount = pending.Amount.Add(remainder)
		pending.DueDate = owed.DueDate
		if err := tx.Fines().Update(ctx, pending); err != nil {
			return nil, decimal.Zero, systemError("top up overdue fine", err)
		}
		return pending, remainder, nil
	}

	owed.Amount = remainder
	if err := tx.Fines().Create(ctx, owed); err != nil {
		return nil, decimal.Zero, systemError("create overdue fine", err)
	}
	return owed, remainder, nil
}

func (s *fineService) Get(ctx context.Context, fineID int64) (*models.Fine, error) {
	fine, err := s.store.Fines().GetByID(ctx, fineID)
	if err != nil {
		return nil, lookupError("get fine", err, ErrFineNotFound)
	}
	return fine, nil
}

func (s *fineService) Pay(ctx context.Context, fineID int64, method string) (*PaymentResult, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		method = "CASH"
	}

	result := &PaymentResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		fine, err := tx.Fines().GetByID(ctx, fineID)
		if err != nil {
			return lookupError("pay fine: load fine", err, ErrFineNotFound)
		}
		ok, err := tx.Fines().TransitionStatus(ctx, fine.ID, models.FinePaid, models.FinePending, models.FineDisputed)
		if err != nil {
			return systemError("pay fine: transition", err)
		}
		if !ok {
			return ErrFineNotPayable.withf("fine %d is %s and cannot be paid", fine.ID, fine.Status)
		}
		fine.Status = models.FinePaid

		balance, err := tx.Members().AdjustFineBalance(ctx, fine.MemberID, fine.Amount.Neg())
		if err != nil {
			return lookupError("pay fine: adjust balance", err, ErrMemberNotFound)
		}

		fineID := fine.ID
		record := &models.Transaction{
			MemberID:      fine.MemberID,
			FineID:        &fineID,
			Type:          models.TransactionFinePayment,
			Amount:        fine.Amount,
			Description:   "Payment for " + strings.ToLower(string(fine.Reason)) + " fine",
			PaymentMethod: method,
			Date:          s.clock.now(),
		}
		if err := tx.Transactions().Create(ctx, record); err != nil {
			return systemError("pay fine: record transaction", err)
		}

		result.Fine = fine
		result.Transaction = record
		result.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Receipt = s.receipts.ForPayment(result.Fine, result.Transaction)
	s.logger.Info("fine_paid",
		zap.Int64("fine_id", result.Fine.ID),
		zap.String("member_id", result.Fine.MemberID),
		zap.String("amount", result.Fine.Amount.StringFixed(2)),
		zap.String("method", method))
	return result, nil
}

func (s *fineService) Waive(ctx context.Context, fineID int64, reason string) (*models.Fine, error) {
	var fine *models.Fine
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		fine, err = tx.Fines().GetByID(ctx, fineID)
		if err != nil {
			return lookupError("waive fine: load fine", err, ErrFineNotFound)
		}
		ok, err := tx.Fines().TransitionStatus(ctx, fine.ID, models.FineWaived, models.FinePending, models.FineDisputed)
		if err != nil {
			return systemError("waive fine: transition", err)
		}
		if !ok {
			return ErrFineNotPayable.withf("fine %d is %s and cannot be waived", fine.ID, fine.Status)
		}
		fine.Status = models.FineWaived
		if reason = strings.TrimSpace(reason); reason != "" {
			fine.Note = appendNote(fine.Note, "waived: "+reason)
			if err := tx.Fines().Update(ctx, fine); err != nil {
				return systemError("waive fine: save note", err)
			}
		}
		if _, err := tx.Members().AdjustFineBalance(ctx, fine.MemberID, fine.Amount.Neg()); err != nil {
			return lookupError("waive fine: adjust balance", err, ErrMemberNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fine_waived",
		zap.Int64("fine_id", fine.ID),
		zap.String("member_id", fine.MemberID),
		zap.String("amount", fine.Amount.StringFixed(2)))
	return fine, nil
}

// Dispute parks a PENDING fine. The balance is untouched until the fine is
// paid or waived.
func (s *fineService) Dispute(ctx context.Context, fineID int64, reason string) (*models.Fine, error) {
	var fine *models.Fine
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		fine, err = tx.Fines().GetByID(ctx, fineID)
		if err != nil {
			return lookupError("dispute fine: load fine", err, ErrFineNotFound)
		}
		ok, err := tx.Fines().TransitionStatus(ctx, fine.ID, models.FineDisputed, models.FinePending)
		if err != nil {
			return systemError("dispute fine: transition", err)
		}
		if !ok {
			return ErrFineNotPayable.withf("fine %d is %s and cannot be disputed", fine.ID, fine.Status)
		}
		fine.Status = models.FineDisputed
		if reason = strings.TrimSpace(reason); reason != "" {
			fine.Note = appendNote(fine.Note, "disputed: "+reason)
			return systemError("dispute fine: save note", tx.Fines().Update(ctx, fine))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("fine_disputed", zap.Int64("fine_id", fine.ID), zap.String("member_id", fine.MemberID))
	return fine, nil
}

// IssueDamageFine charges the fixed damage fee against a loan. When the
// copy is already back on the shelf it goes to repair.
func (s *fineService) IssueDamageFine(ctx context.Context, loanID int64, note string) (*models.Fine, error) {
	var fine *models.Fine
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		loan, err := tx.Loans().GetByID(ctx, loanID)
		if err != nil {
			return lookupError("damage fine: load loan", err, ErrLoanNotFound)
		}
		fine, err = s.issueFixedFine(ctx, tx, loan, models.FineReasonDamagedItem, s.policy.DamageFine, note)
		if err != nil {
			return err
		}
		if _, err := tx.Copies().TransitionStatus(ctx, loan.CopyID, models.CopyInRepair, models.CopyAvailable); err != nil {
			return systemError("damage fine: copy to repair", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("damage_fine_issued", zap.Int64("fine_id", fine.ID), zap.Int64("loan_id", loanID))
	s.notifier.Notify(ctx, fineIssuedNotice(fine))
	return fine, nil
}

// IssueLostItemFine closes an open loan whose copy will not come back: the
// copy is marked LOST and the replacement fee is charged.
func (s *fineService) IssueLostItemFine(ctx context.Context, loanID int64) (*models.Fine, error) {
	var fine *models.Fine
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		loan, err := tx.Loans().GetByID(ctx, loanID)
		if err != nil {
			return lookupError("lost fine: load loan", err, ErrLoanNotFound)
		}
		if !loan.Status.Open() {
			return ErrLoanNotActive.withf("loan %d is %s", loan.ID, loan.Status)
		}

		today := s.clock.today()
		loan.Status = models.LoanReturned
		loan.ReturnDate = &today
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return systemError("lost fine: close loan", err)
		}
		if err := recordLoanEvent(ctx, tx, loan, models.LoanActionLost, s.clock.now()); err != nil {
			return err
		}

		// days late up to the loss are charged on top of the replacement fee
		_, accrued, err := accrueOverdueFine(ctx, tx, s.policy, loan, today)
		if err != nil {
			return err
		}
		if accrued.IsPositive() {
			if _, err := tx.Members().AdjustFineBalance(ctx, loan.MemberID, accrued); err != nil {
				return lookupError("lost fine: adjust balance", err, ErrMemberNotFound)
			}
		}
		if _, err := tx.Copies().TransitionStatus(ctx, loan.CopyID, models.CopyLost, models.CopyCheckedOut); err != nil {
			return systemError("lost fine: mark copy lost", err)
		}

		fine, err = s.issueFixedFine(ctx, tx, loan, models.FineReasonLostItem, s.policy.LostItemFine, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("lost_item_fine_issued", zap.Int64("fine_id", fine.ID), zap.Int64("loan_id", loanID))
	s.notifier.Notify(ctx, fineIssuedNotice(fine))
	return fine, nil
}

func (s *fineService) issueFixedFine(ctx context.Context, tx repository.Store, loan *models.Loan, reason models.FineReason, amount decimal.Decimal, note string) (*models.Fine, error) {
	today := s.clock.today()
	loanID := loan.ID
	fine := &models.Fine{
		MemberID:  loan.MemberID,
		LoanID:    &loanID,
		Amount:    amount,
		Reason:    reason,
		Note:      strings.TrimSpace(note),
		IssueDate: today,
		DueDate:   today.AddDate(0, 0, s.policy.FineGraceDays),
		Status:    models.FinePending,
	}
	if err := tx.Fines().Create(ctx, fine); err != nil {
		return nil, systemError("create fine", err)
	}
	if _, err := tx.Members().AdjustFineBalance(ctx, loan.MemberID, amount); err != nil {
		return nil, lookupError("adjust fine balance", err, ErrMemberNotFound)
	}
	return fine, nil
}

func (s *fineService) MemberFines(ctx context.Context, memberID string) ([]models.Fine, error) {
	list, err := s.store.Fines().ListByMember(ctx, memberID)
	return list, systemError("list member fines", err)
}

func (s *fineService) ListFines(ctx context.Context, status models.FineStatus) ([]models.Fine, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidInput.withf("unknown fine status %q", status)
	}
	list, err := s.store.Fines().ListByStatus(ctx, status)
	return list, systemError("list fines", err)
}

func appendNote(note, add string) string {
	if note == "" {
		return add
	}
	return note + "; " + add
}
