package models

import "time"

type Reservation struct {
	ID              int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberID        string            `json:"member_id" gorm:"type:uuid;not null;index"`
	BookID          int64             `json:"book_id" gorm:"not null;index"`
	ReservationTime time.Time         `json:"reservation_time" gorm:"not null"`
	Status          ReservationStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	PriorityNumber  int               `json:"priority_number"`
	ReadyAt         *time.Time        `json:"ready_at,omitempty"`
	NotifiedAt      *time.Time        `json:"notified_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Reservation) TableName() string {
	return "reservations"
}
