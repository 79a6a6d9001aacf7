package dto

import (
	"time"

	"libraryhub/internal/microservices/http-api/models"
)

// CreateBookRequest: payload to add a title to the catalog
type CreateBookRequest struct {
	Title           string `json:"title" binding:"required,max=255"`
	ISBN            string `json:"isbn" binding:"required"`
	Author          string `json:"author" binding:"max=255"`
	PublicationYear int    `json:"publication_year" binding:"gte=0"`
	Description     string `json:"description"`
	Pages           int    `json:"pages" binding:"gte=0"`
	// Copies is the number of copies to shelve right away.
	Copies int `json:"copies" binding:"gte=0,lte=100"`
}

func (r CreateBookRequest) ToModel() *models.Book {
	return &models.Book{
		Title:           r.Title,
		ISBN:            r.ISBN,
		Author:          r.Author,
		PublicationYear: r.PublicationYear,
		Description:     r.Description,
		Pages:           r.Pages,
	}
}

type AddCopyRequest struct {
	Condition       string     `json:"condition" binding:"max=50"`
	Location        string     `json:"location" binding:"max=100"`
	AcquisitionDate *time.Time `json:"acquisition_date"`
}

func (r AddCopyRequest) ToModel() *models.BookCopy {
	return &models.BookCopy{
		Condition:       r.Condition,
		Location:        r.Location,
		AcquisitionDate: r.AcquisitionDate,
	}
}

type SetCopyStatusRequest struct {
	Status models.CopyStatus `json:"status" binding:"required"`
}

// BookListResponse: one page of the catalog
type BookListResponse struct {
	Books    []models.Book `json:"books"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
}

type BookDetailResponse struct {
	Book      *models.Book      `json:"book"`
	Copies    []models.BookCopy `json:"copies"`
	Available int               `json:"available"`
	Waiting   int               `json:"waiting"`
}
