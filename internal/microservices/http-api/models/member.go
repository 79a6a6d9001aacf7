package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is the borrower profile of a User with RoleMember.
type Member struct {
	UserID              string          `gorm:"primaryKey;type:uuid" json:"user_id"`
	FineBalance         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"fine_balance"`
	MembershipStartDate time.Time       `gorm:"type:date" json:"membership_start_date"`
	MembershipEndDate   *time.Time      `gorm:"type:date" json:"membership_end_date,omitempty"`
	Address             string          `json:"address,omitempty"`
	Active              bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Member) TableName() string {
	return "members"
}

// HasOutstandingFines blocks checkout and renewal.
func (m *Member) HasOutstandingFines() bool {
	return m.FineBalance.IsPositive()
}

// Email returns the contact address when the user row was loaded.
func (m *Member) Email() string {
	if m.User == nil {
		return ""
	}
	return m.User.Email
}

// DisplayName prefers the full name over the username.
func (m *Member) DisplayName() string {
	if m.User == nil {
		return m.UserID
	}
	if m.User.FullName != "" {
		return m.User.FullName
	}
	return m.User.Username
}
