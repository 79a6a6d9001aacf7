package service

import (
	"errors"
	"fmt"

	"libraryhub/internal/microservices/http-api/repository"
)

// Auth errors keep the plain sentinel style; handlers map them to 401/409.
var (
	ErrNameInUse          = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrEmailInUse         = errors.New("email already in use")
	ErrAccountLocked      = errors.New("account temporarily locked")
)

type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindPrecondition
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition_failed"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// BusinessError is a rule violation the caller can act on. Two errors are
// equal under errors.Is when their codes match, so a detailed message
// still compares equal to its sentinel.
type BusinessError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

func (e *BusinessError) Is(target error) bool {
	t, ok := target.(*BusinessError)
	return ok && t.Code == e.Code
}

// withf returns a copy carrying a more specific message.
func (e *BusinessError) withf(format string, args ...any) *BusinessError {
	return &BusinessError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrMemberNotFound      = &BusinessError{KindNotFound, "MemberNotFound", "member not found"}
	ErrBookNotFound        = &BusinessError{KindNotFound, "BookNotFound", "book not found"}
	ErrCopyNotFound        = &BusinessError{KindNotFound, "CopyNotFound", "book copy not found"}
	ErrLoanNotFound        = &BusinessError{KindNotFound, "LoanNotFound", "loan not found"}
	ErrFineNotFound        = &BusinessError{KindNotFound, "FineNotFound", "fine not found"}
	ErrReservationNotFound = &BusinessError{KindNotFound, "ReservationNotFound", "reservation not found"}
	ErrNotificationMissing = &BusinessError{KindNotFound, "NotificationNotFound", "notification not found"}

	ErrOutstandingFines      = &BusinessError{KindPrecondition, "OutstandingFines", "member has outstanding fines"}
	ErrLoanLimitExceeded     = &BusinessError{KindPrecondition, "LoanLimitExceeded", "maximum number of active loans reached"}
	ErrMaxRenewalsReached    = &BusinessError{KindPrecondition, "MaxRenewalsReached", "maximum number of renewals reached"}
	ErrNoAvailableCopy       = &BusinessError{KindPrecondition, "NoAvailableCopy", "no available copy of this book"}
	ErrDuplicateReservation  = &BusinessError{KindPrecondition, "DuplicateReservation", "member already has a pending reservation for this book"}
	ErrLoanNotActive         = &BusinessError{KindPrecondition, "LoanNotActive", "loan is not active"}
	ErrFineNotPayable        = &BusinessError{KindPrecondition, "FineNotPayable", "fine cannot be changed in its current status"}
	ErrMemberInactive        = &BusinessError{KindPrecondition, "MemberInactive", "member account is inactive"}
	ErrReservationNotPending = &BusinessError{KindPrecondition, "ReservationNotPending", "reservation cannot change from its current status"}
	ErrDuplicateISBN         = &BusinessError{KindPrecondition, "DuplicateISBN", "a book with this ISBN already exists"}

	ErrInvalidISBN  = &BusinessError{KindValidation, "InvalidISBN", "invalid ISBN"}
	ErrInvalidInput = &BusinessError{KindValidation, "InvalidInput", "invalid input"}
)

// SystemError wraps storage and infrastructure failures.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// systemError wraps err unless it already is a business or system error.
func systemError(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BusinessError
	if errors.As(err, &be) {
		return err
	}
	var se *SystemError
	if errors.As(err, &se) {
		return err
	}
	return &SystemError{Op: op, Err: err}
}

// lookupError maps repository.ErrNotFound to the given business error.
func lookupError(op string, err error, notFound *BusinessError) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return systemError(op, err)
}
