package models

import "time"

type LoanAction string

const (
	LoanActionCheckout LoanAction = "CHECKOUT"
	LoanActionReturn   LoanAction = "RETURN"
	LoanActionRenewal  LoanAction = "RENEWAL"
	LoanActionLost     LoanAction = "LOST"
)

func (a LoanAction) Valid() bool {
	switch a {
	case LoanActionCheckout, LoanActionReturn, LoanActionRenewal, LoanActionLost:
		return true
	}
	return false
}

// LoanHistory is an append-only audit row, one per circulation event.
type LoanHistory struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberID   string     `json:"member_id" gorm:"type:uuid;not null;index"`
	LoanID     int64      `json:"loan_id" gorm:"not null;index"`
	BookID     int64      `json:"book_id" gorm:"not null"`
	Action     LoanAction `json:"action" gorm:"type:varchar(20);not null"`
	ActionDate time.Time  `json:"action_date" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (LoanHistory) TableName() string {
	return "loan_history"
}
