package models

import "time"

type Book struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string    `json:"title" gorm:"not null"`
	ISBN            string    `json:"isbn" gorm:"uniqueIndex;size:13;not null"`
	Author          string    `json:"author,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Description     string    `json:"description,omitempty" gorm:"type:text"`
	Pages           int       `json:"pages,omitempty"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Book) TableName() string {
	return "books"
}

type BookCopy struct {
	ID              int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	BookID          int64      `json:"book_id" gorm:"not null;index"`
	Condition       string     `json:"condition,omitempty" gorm:"size:50"`
	Location        string     `json:"location,omitempty" gorm:"size:100"`
	Status          CopyStatus `json:"status" gorm:"type:varchar(20);not null;default:'AVAILABLE'"`
	AcquisitionDate *time.Time `json:"acquisition_date,omitempty" gorm:"type:date"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (BookCopy) TableName() string {
	return "book_copies"
}
