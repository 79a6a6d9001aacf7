package dto

import "libraryhub/internal/microservices/http-api/models"

type CreateReservationRequest struct {
	BookID int64 `json:"book_id" binding:"required,gt=0"`
}

type UpdateReservationRequest struct {
	Status models.ReservationStatus `json:"status" binding:"required"`
}

type ReservationListResponse struct {
	Reservations []models.Reservation `json:"reservations"`
	Total        int                  `json:"total"`
}
