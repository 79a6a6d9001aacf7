package dto

import (
	"github.com/shopspring/decimal"

	"libraryhub/internal/microservices/http-api/models"
)

// MemberResponse: borrower profile without credentials
type MemberResponse struct {
	UserID      string          `json:"user_id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Address     string          `json:"address,omitempty"`
	FineBalance decimal.Decimal `json:"fine_balance"`
	Active      bool            `json:"active"`
	ActiveLoans int             `json:"active_loans"`
}

func FromMember(m *models.Member, activeLoans int) MemberResponse {
	resp := MemberResponse{
		UserID:      m.UserID,
		Email:       m.Email(),
		Name:        m.DisplayName(),
		Address:     m.Address,
		FineBalance: m.FineBalance,
		Active:      m.Active,
		ActiveLoans: activeLoans,
	}
	if m.User != nil {
		resp.Username = m.User.Username
	}
	return resp
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}
