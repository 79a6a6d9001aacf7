package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

type FineHandler struct {
	fines   service.FineService
	members service.MemberService
}

func NewFineHandler(fines service.FineService, members service.MemberService) *FineHandler {
	return &FineHandler{fines: fines, members: members}
}

func (h *FineHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/fines/my", h.Mine)
	rg.GET("/fines", middleware.RequirePermission(models.PermViewAllFines), h.List)
	rg.GET("/fines/:id", h.Get)
	rg.PUT("/fines/:id/pay", h.Pay)
	rg.PUT("/fines/:id/waive", middleware.RequirePermission(models.PermManageFines), h.Waive)
	rg.PUT("/fines/:id/dispute", h.Dispute)
}

// Mine lists the caller's fines together with the current balance.
func (h *FineHandler) Mine(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	fines, err := h.fines.MemberFines(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.FineListResponse{Fines: fines, Total: len(fines)}
	if member, err := h.members.Get(ctx, userID); err == nil {
		resp.Balance = member.FineBalance
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FineHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	fines, err := h.fines.ListFines(ctx, models.FineStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FineListResponse{Fines: fines, Total: len(fines)})
}

func (h *FineHandler) Get(c *gin.Context) {
	fine, ok := h.loadOwned(c, models.PermViewAllFines)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, fine)
}

func (h *FineHandler) Pay(c *gin.Context) {
	fine, ok := h.loadOwned(c, models.PermManageFines)
	if !ok {
		return
	}
	var req dto.PayFineRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.fines.Pay(ctx, fine.ID, req.PaymentMethod)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FineHandler) Waive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.FineNoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	fine, err := h.fines.Waive(ctx, id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fine)
}

func (h *FineHandler) Dispute(c *gin.Context) {
	fine, ok := h.loadOwned(c, models.PermManageFines)
	if !ok {
		return
	}
	var req dto.FineNoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	disputed, err := h.fines.Dispute(ctx, fine.ID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputed)
}

func (h *FineHandler) loadOwned(c *gin.Context, p models.Permission) (*models.Fine, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	fine, err := h.fines.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !ownerOr(c, fine.MemberID, p) {
		return nil, false
	}
	return fine, true
}
