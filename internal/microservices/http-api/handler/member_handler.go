package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

type MemberHandler struct {
	members service.MemberService
	loans   service.LoanService
}

func NewMemberHandler(members service.MemberService, loans service.LoanService) *MemberHandler {
	return &MemberHandler{members: members, loans: loans}
}

func (h *MemberHandler) RegisterRoutes(rg *gin.RouterGroup) {
	manage := middleware.RequirePermission(models.PermManageMembers)
	rg.GET("/members/me", h.Me)
	rg.GET("/members/me/transactions", h.MyTransactions)
	rg.GET("/members", manage, h.List)
	rg.GET("/members/:id", manage, h.Get)
	rg.PUT("/members/:id/active", manage, h.SetActive)
}

func (h *MemberHandler) Me(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	h.writeProfile(c, userID)
}

func (h *MemberHandler) MyTransactions(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	txs, err := h.members.Transactions(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": len(txs)})
}

func (h *MemberHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	members, err := h.members.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, dto.FromMember(&members[i], 0))
	}
	c.JSON(http.StatusOK, gin.H{"members": out, "total": len(out)})
}

func (h *MemberHandler) Get(c *gin.Context) {
	h.writeProfile(c, c.Param("id"))
}

func (h *MemberHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.members.SetActive(ctx, c.Param("id"), *req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(ctx, c, m)
}

func (h *MemberHandler) writeProfile(c *gin.Context, memberID string) {
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.members.Get(ctx, memberID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(ctx, c, m)
}

func (h *MemberHandler) respond(ctx context.Context, c *gin.Context, m *models.Member) {
	active, err := h.loans.MemberLoans(ctx, m.UserID, true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMember(m, len(active)))
}
