package dto

import "libraryhub/internal/microservices/http-api/models"

// BorrowRequest: MemberID is only honoured for staff checking out on a
// member's behalf; members always borrow for themselves.
type BorrowRequest struct {
	BookID   int64  `json:"book_id" binding:"required,gt=0"`
	MemberID string `json:"member_id"`
}

type LoanListResponse struct {
	Loans []models.Loan `json:"loans"`
	Total int           `json:"total"`
}

type LoanHistoryResponse struct {
	History []models.LoanHistory `json:"history"`
	Total   int                  `json:"total"`
}

type DamageReportRequest struct {
	Note string `json:"note" binding:"max=500"`
}
