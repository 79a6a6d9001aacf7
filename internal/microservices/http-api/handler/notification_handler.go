package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

const defaultNotificationLimit = 50

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.List)
	rg.PUT("/notifications/read-all", h.MarkAllAsRead)
	rg.PUT("/notifications/:id/read", h.MarkAsRead)
}

// List returns the caller's inbox, newest first. unread=true limits it to
// notifications not yet read.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var (
		list []models.Notification
		err  error
	)
	if c.Query("unread") == "true" {
		list, err = h.svc.GetUnread(ctx, userID)
	} else {
		limit, convErr := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultNotificationLimit)))
		if convErr != nil || limit <= 0 {
			limit = defaultNotificationLimit
		}
		list, err = h.svc.List(ctx, userID, limit)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	c.JSON(http.StatusOK, dto.NotificationListResponse{Notifications: list, Unread: unread})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.MarkAsRead(ctx, userID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.MarkAllAsRead(ctx, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
