package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction records money moving between a member and the library.
type Transaction struct {
	ID            int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberID      string          `json:"member_id" gorm:"type:uuid;not null;index"`
	FineID        *int64          `json:"fine_id,omitempty" gorm:"index"`
	Type          TransactionType `json:"type" gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(10,2);not null"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Date          time.Time       `json:"date" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
