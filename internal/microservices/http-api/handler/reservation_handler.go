package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

type ReservationHandler struct {
	reservations service.ReservationService
}

func NewReservationHandler(reservations service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	manage := middleware.RequirePermission(models.PermManageReservations)
	rg.POST("/reservations", middleware.RequirePermission(models.PermBorrow), h.Create)
	rg.GET("/reservations/my", h.Mine)
	rg.GET("/reservations", manage, h.List)
	rg.PUT("/reservations/:id/cancel", h.Cancel)
	rg.PUT("/reservations/:id", manage, h.UpdateStatus)
	rg.POST("/books/:id/reservations/fulfill", manage, h.FulfillOldest)
}

func (h *ReservationHandler) Create(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req dto.CreateReservationRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.reservations.Create(ctx, userID, req.BookID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ReservationHandler) Mine(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.reservations.MemberReservations(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReservationListResponse{Reservations: list, Total: len(list)})
}

func (h *ReservationHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	status := models.ReservationStatus(c.DefaultQuery("status", string(models.ReservationPending)))
	list, err := h.reservations.ListByStatus(ctx, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReservationListResponse{Reservations: list, Total: len(list)})
}

// Cancel withdraws the caller's reservation. Staff may cancel any.
func (h *ReservationHandler) Cancel(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	owner := userID
	if role.Can(models.PermManageReservations) {
		owner = ""
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.reservations.Cancel(ctx, id, owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateReservationRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.reservations.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) FulfillOldest(c *gin.Context) {
	bookID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.reservations.FulfillOldest(ctx, bookID)
	if err != nil {
		writeError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"message": "no pending reservations"})
		return
	}
	c.JSON(http.StatusOK, res)
}
