package dto

import (
	"github.com/shopspring/decimal"

	"libraryhub/internal/microservices/http-api/models"
)

type PayFineRequest struct {
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=CASH CARD ONLINE"`
}

// FineNoteRequest: reason given when waiving or disputing a fine
type FineNoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type FineListResponse struct {
	Fines   []models.Fine   `json:"fines"`
	Total   int             `json:"total"`
	Balance decimal.Decimal `json:"balance,omitempty"`
}
