package controller

import (
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewNotificationController(notifications *service.NotificationService, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{
		NotificationService: notifications,
		Hub:                 hub,
	}
}

// ListUnread godoc
// @Summary Unread notifications
// @Description Newest first.
// @Tags notifications
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Notification}
// @Router /api/notifications [get]
func (c *NotificationController) ListUnread(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	list, err := c.NotificationService.ListUnread(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Popup godoc
// @Summary Next popup
// @Description The newest unread notification that was never shown, with the count of others still waiting. Data is null when there is none.
// @Tags notifications
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.Popup}
// @Router /api/notifications/popup [get]
func (c *NotificationController) Popup(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	popup, err := c.NotificationService.NextPopup(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, popup)
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "Notification ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}

	if err := c.NotificationService.MarkRead(ctx.Request.Context(), s, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MarkShown godoc
// @Summary Mark a popup shown
// @Tags notifications
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "Notification ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notifications/{id}/shown [post]
func (c *NotificationController) MarkShown(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}

	if err := c.NotificationService.MarkShown(ctx.Request.Context(), s, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Stream godoc
// @Summary Live notification stream
// @Description WebSocket. Pushes a SNAPSHOT frame on connect and whenever the unread set changes. Accepts POPUP_SHOWN and MARK_READ frames with {"id":N}.
// @Tags notifications
// @Param   token query string true "JWT"
// @Router /api/notifications/ws [get]
func (c *NotificationController) Stream(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, s)
}
