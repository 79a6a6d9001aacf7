package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

// AdminHandler triggers the scheduled sweeps on demand.
type AdminHandler struct {
	loans        service.LoanService
	reservations service.ReservationService
}

func NewAdminHandler(loans service.LoanService, reservations service.ReservationService) *AdminHandler {
	return &AdminHandler{loans: loans, reservations: reservations}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", middleware.RequirePermission(models.PermRunSweeps))
	admin.POST("/sweeps/overdue", h.SweepOverdue)
	admin.POST("/sweeps/reservations", h.SweepReservations)
}

func (h *AdminHandler) SweepOverdue(c *gin.Context) {
	report, err := h.loans.ProcessOverdue(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AdminHandler) SweepReservations(c *gin.Context) {
	sent, err := h.reservations.NotifyReady(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notified": sent})
}
