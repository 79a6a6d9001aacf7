package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Fine struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberID  string          `json:"member_id" gorm:"type:uuid;not null;index"`
	LoanID    *int64          `json:"loan_id,omitempty" gorm:"index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Reason    FineReason      `json:"reason" gorm:"type:varchar(20);not null"`
	Note      string          `json:"note,omitempty"`
	IssueDate time.Time       `json:"issue_date" gorm:"type:date;not null"`
	DueDate   time.Time       `json:"due_date" gorm:"type:date;not null"`
	Status    FineStatus      `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Fine) TableName() string {
	return "fines"
}
