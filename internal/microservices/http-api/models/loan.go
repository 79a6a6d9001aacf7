package models

import "time"

// Loan dates are calendar dates (midnight in the server location).
type Loan struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberID     string     `json:"member_id" gorm:"type:uuid;not null;index"`
	CopyID       int64      `json:"copy_id" gorm:"column:book_copy_id;not null;index"`
	BookID       int64      `json:"book_id" gorm:"not null;index"`
	CheckoutDate time.Time  `json:"checkout_date" gorm:"type:date;not null"`
	DueDate      time.Time  `json:"due_date" gorm:"type:date;not null;index"`
	ReturnDate   *time.Time `json:"return_date,omitempty" gorm:"type:date"`
	Status       LoanStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	RenewalCount int        `json:"renewal_count" gorm:"not null;default:0"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Loan) TableName() string {
	return "loans"
}
