package handler

import (
	"net/http"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logic"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/realtime"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationLogic *logic.NotificationLogic
	stream            *realtime.Stream
}

func NewNotificationHandler(notifications *logic.NotificationLogic, stream *realtime.Stream) *NotificationHandler {
	return &NotificationHandler{notificationLogic: notifications, stream: stream}
}

// ListNotifications 当前用户的通知，最新在前
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	list, err := h.notificationLogic.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationLogic.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", nil)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationLogic.MarkAllRead(c.Request.Context(), middleware.UserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", nil)
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	if err := h.notificationLogic.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", nil)
}

func (h *NotificationHandler) ClearNotifications(c *gin.Context) {
	if err := h.notificationLogic.Clear(c.Request.Context(), middleware.UserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", nil)
}

// Stream 升级为 websocket 推送新通知
func (h *NotificationHandler) Stream(c *gin.Context) {
	h.stream.Serve(c.Writer, c.Request, middleware.UserID(c))
}
