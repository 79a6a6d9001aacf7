package models

// One string type per status domain; the values are what gets stored in the
// status columns.

type CopyStatus string

const (
	CopyAvailable  CopyStatus = "AVAILABLE"
	CopyCheckedOut CopyStatus = "CHECKED_OUT"
	CopyInRepair   CopyStatus = "IN_REPAIR"
	CopyLost       CopyStatus = "LOST"
)

func (s CopyStatus) Valid() bool {
	switch s {
	case CopyAvailable, CopyCheckedOut, CopyInRepair, CopyLost:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanActive, LoanOverdue, LoanReturned:
		return true
	}
	return false
}

// Open reports whether the loan still holds its copy.
func (s LoanStatus) Open() bool {
	return s == LoanActive || s == LoanOverdue
}

type FineStatus string

const (
	FinePending  FineStatus = "PENDING"
	FinePaid     FineStatus = "PAID"
	FineWaived   FineStatus = "WAIVED"
	FineDisputed FineStatus = "DISPUTED"
)

func (s FineStatus) Valid() bool {
	switch s {
	case FinePending, FinePaid, FineWaived, FineDisputed:
		return true
	}
	return false
}

// Outstanding fines still count against the member balance.
func (s FineStatus) Outstanding() bool {
	return s == FinePending || s == FineDisputed
}

type FineReason string

const (
	FineReasonOverdue        FineReason = "OVERDUE"
	FineReasonDamagedItem    FineReason = "DAMAGED_ITEM"
	FineReasonLostItem       FineReason = "LOST_ITEM"
	FineReasonAdministrative FineReason = "ADMINISTRATIVE"
)

type ReservationStatus string

const (
	ReservationPending        ReservationStatus = "PENDING"
	ReservationReadyForPickup ReservationStatus = "READY_FOR_PICKUP"
	ReservationCancelled      ReservationStatus = "CANCELLED"
	ReservationFulfilled      ReservationStatus = "FULFILLED"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationReadyForPickup, ReservationCancelled, ReservationFulfilled:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionFinePayment    TransactionType = "FINE_PAYMENT"
	TransactionMembershipFee  TransactionType = "MEMBERSHIP_FEE"
	TransactionLostItemFee    TransactionType = "LOST_ITEM_FEE"
	TransactionReservationFee TransactionType = "RESERVATION_FEE"
	TransactionRefund         TransactionType = "REFUND"
)

type NotificationType string

const (
	NotificationCheckout         NotificationType = "CHECKOUT"
	NotificationReturn           NotificationType = "RETURN"
	NotificationRenewal          NotificationType = "RENEWAL"
	NotificationOverdue          NotificationType = "OVERDUE"
	NotificationReservationReady NotificationType = "RESERVATION_READY"
	NotificationFineIssued       NotificationType = "FINE_ISSUED"
)
