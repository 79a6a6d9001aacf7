package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

const dateLayout = "2006-01-02"

// bookForNotice loads the book a notice talks about. Notices fall back to
// a generic title, so a failed lookup is logged and not returned.
func bookForNotice(ctx context.Context, store repository.Store, logger *zap.Logger, bookID int64) *models.Book {
	book, err := store.Books().GetByID(ctx, bookID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("notice_book_lookup_failed", zap.Int64("book_id", bookID), zap.Error(err))
		}
		return nil
	}
	return book
}

func bookTitle(book *models.Book) string {
	if book == nil {
		return "your book"
	}
	return fmt.Sprintf("%q", book.Title)
}

func checkoutNotice(loan *models.Loan, book *models.Book) Notice {
	return Notice{
		Type:    models.NotificationCheckout,
		UserID:  loan.MemberID,
		LoanID:  &loan.ID,
		BookID:  &loan.BookID,
		Title:   "Book checked out",
		Message: fmt.Sprintf("You borrowed %s. It is due on %s.", bookTitle(book), loan.DueDate.Format(dateLayout)),
	}
}

func returnNotice(loan *models.Loan, book *models.Book, fine *models.Fine) Notice {
	msg := fmt.Sprintf("You returned %s.", bookTitle(book))
	if fine != nil {
		msg += fmt.Sprintf(" A late fee of %s is due by %s.", fine.Amount.StringFixed(2), fine.DueDate.Format(dateLayout))
	}
	return Notice{
		Type:    models.NotificationReturn,
		UserID:  loan.MemberID,
		LoanID:  &loan.ID,
		BookID:  &loan.BookID,
		Title:   "Book returned",
		Message: msg,
	}
}

func renewalNotice(loan *models.Loan, book *models.Book) Notice {
	return Notice{
		Type:    models.NotificationRenewal,
		UserID:  loan.MemberID,
		LoanID:  &loan.ID,
		BookID:  &loan.BookID,
		Title:   "Loan renewed",
		Message: fmt.Sprintf("%s is now due on %s (renewal %d).", bookTitle(book), loan.DueDate.Format(dateLayout), loan.RenewalCount),
	}
}

func overdueNotice(loan *models.Loan, book *models.Book, fine *models.Fine) Notice {
	msg := fmt.Sprintf("%s was due on %s.", bookTitle(book), loan.DueDate.Format(dateLayout))
	if fine != nil {
		msg += fmt.Sprintf(" A fine of %s has been added to your account.", fine.Amount.StringFixed(2))
	}
	return Notice{
		Type:    models.NotificationOverdue,
		UserID:  loan.MemberID,
		LoanID:  &loan.ID,
		BookID:  &loan.BookID,
		Title:   "Book overdue",
		Message: msg,
	}
}

func reservationReadyNotice(res *models.Reservation, book *models.Book) Notice {
	return Notice{
		Type:    models.NotificationReservationReady,
		UserID:  res.MemberID,
		BookID:  &res.BookID,
		Title:   "Reservation ready for pickup",
		Message: fmt.Sprintf("%s is waiting for you at the front desk.", bookTitle(book)),
	}
}

func fineIssuedNotice(fine *models.Fine) Notice {
	return Notice{
		Type:    models.NotificationFineIssued,
		UserID:  fine.MemberID,
		LoanID:  fine.LoanID,
		Title:   "Fine issued",
		Message: fmt.Sprintf("A %s fine of %s is due by %s.", fine.Reason, fine.Amount.StringFixed(2), fine.DueDate.Format(dateLayout)),
	}
}
