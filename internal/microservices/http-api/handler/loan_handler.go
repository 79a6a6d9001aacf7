package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

type LoanHandler struct {
	loans service.LoanService
	fines service.FineService
}

func NewLoanHandler(loans service.LoanService, fines service.FineService) *LoanHandler {
	return &LoanHandler{loans: loans, fines: fines}
}

func (h *LoanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/loans/borrow", h.Borrow)
	rg.GET("/loans", h.List)
	rg.GET("/loans/history", h.History)
	rg.GET("/loans/overdue", middleware.RequirePermission(models.PermViewAllLoans), h.Overdue)
	rg.GET("/loans/:id", h.Get)
	rg.PUT("/loans/:id/return", h.Return)
	rg.PUT("/loans/:id/renew", h.Renew)
	rg.POST("/loans/:id/damage", middleware.RequirePermission(models.PermManageFines), h.ReportDamage)
	rg.POST("/loans/:id/lost", middleware.RequirePermission(models.PermManageFines), h.ReportLost)
}

// Borrow checks a book out. Staff may borrow on behalf of a member at the
// desk by naming member_id.
func (h *LoanHandler) Borrow(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	var req dto.BorrowRequest
	if !bindJSON(c, &req) {
		return
	}

	memberID := userID
	if req.MemberID != "" && req.MemberID != userID {
		if !role.Can(models.PermReturnAnyLoan) {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot borrow for another member"})
			return
		}
		memberID = req.MemberID
	} else if !role.Can(models.PermBorrow) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only members can borrow"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	loan, err := h.loans.Checkout(ctx, req.BookID, memberID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// List returns the caller's loans; staff can pass member_id. Set
// active=true to skip returned loans.
func (h *LoanHandler) List(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	memberID := c.DefaultQuery("member_id", userID)
	if !ownerOr(c, memberID, models.PermViewAllLoans) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	loans, err := h.loans.MemberLoans(ctx, memberID, c.Query("active") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoanListResponse{Loans: loans, Total: len(loans)})
}

// History returns the caller's circulation events, newest first; staff can
// pass member_id.
func (h *LoanHandler) History(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	memberID := c.DefaultQuery("member_id", userID)
	if !ownerOr(c, memberID, models.PermViewAllLoans) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	history, err := h.loans.History(ctx, memberID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoanHistoryResponse{History: history, Total: len(history)})
}

func (h *LoanHandler) Overdue(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	loans, err := h.loans.OverdueLoans(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoanListResponse{Loans: loans, Total: len(loans)})
}

func (h *LoanHandler) Get(c *gin.Context) {
	loan, ok := h.loadOwned(c, models.PermViewAllLoans)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *LoanHandler) Return(c *gin.Context) {
	loan, ok := h.loadOwned(c, models.PermReturnAnyLoan)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.loans.Return(ctx, loan.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LoanHandler) Renew(c *gin.Context) {
	loan, ok := h.loadOwned(c, models.PermReturnAnyLoan)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	renewed, err := h.loans.Renew(ctx, loan.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renewed)
}

func (h *LoanHandler) ReportDamage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.DamageReportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	fine, err := h.fines.IssueDamageFine(ctx, id, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fine)
}

func (h *LoanHandler) ReportLost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	fine, err := h.fines.IssueLostItemFine(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fine)
}

// loadOwned fetches the loan named by :id and checks the caller owns it
// or holds p.
func (h *LoanHandler) loadOwned(c *gin.Context, p models.Permission) (*models.Loan, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	loan, err := h.loans.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !ownerOr(c, loan.MemberID, p) {
		return nil, false
	}
	return loan, true
}
