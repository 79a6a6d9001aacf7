package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

type Permission string

const (
	PermBorrow             Permission = "loan:borrow"
	PermReturnAnyLoan      Permission = "loan:return-any"
	PermViewAllLoans       Permission = "loan:view-all"
	PermManageCatalog      Permission = "catalog:write"
	PermManageFines        Permission = "fine:manage"
	PermViewAllFines       Permission = "fine:view-all"
	PermManageReservations Permission = "reservation:manage"
	PermManageMembers      Permission = "member:manage"
	PermRunSweeps          Permission = "sweep:run"
)

// Can is the single place role permissions are decided.
func (r Role) Can(p Permission) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleLibrarian:
		switch p {
		case PermReturnAnyLoan, PermViewAllLoans, PermManageCatalog,
			PermManageReservations, PermViewAllFines, PermManageMembers:
			return true
		}
		return false
	case RoleMember:
		return p == PermBorrow
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// User is the tagged record for every account; Role decides which profile
// rows exist (members get a Member row keyed by the same id).
type User struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	FullName  string     `json:"full_name"`
	Password  string     `gorm:"column:password_hash;not null" json:"-"`
	Role      Role       `gorm:"type:varchar(20);not null;default:'MEMBER'" json:"role"`
	Verified  bool       `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// BeforeCreate hook to set UUID before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return
}

func (User) TableName() string {
	return "users"
}
