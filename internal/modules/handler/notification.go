package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(s service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: s}
}

type ListNotificationsReq struct {
	Limit  int    `form:"limit,default=50" json:"limit" binding:"min=1,max=200" example:"50"`
	Cursor string `form:"cursor" json:"cursor"`
}

// ListNotifications godoc
//
//	@Summary		List notifications
//	@Description	List the caller's notifications in the current workspace, newest first
//	@Tags			notification
//	@Produce		json
//	@Param			limit	query	integer	false	"Limit of notifications to return, default 50. Max 200."
//	@Param			cursor	query	string	false	"Cursor for pagination. Use the cursor from the previous response to get the next page."
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ListNotificationsOutput}
//	@Router			/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	req := ListNotificationsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	m := membershipFrom(c)
	out, err := h.svc.List(c.Request.Context(), service.ListNotificationsInput{
		UserID:      m.UserID,
		WorkspaceID: m.WorkspaceID,
		Limit:       req.Limit,
		Cursor:      req.Cursor,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type NotifyReq struct {
	RoomID  string `json:"roomId" example:"123e4567-e89b-12d3-a456-426614174000"`
	AgentID string `json:"agentId" example:"123e4567-e89b-12d3-a456-426614174001"`
	Message string `json:"message" example:"Deploy finished"`
}

type NotifyResp struct {
	OK      bool `json:"ok"`
	Created int  `json:"created"`
}

// Notify godoc
//
//	@Summary		Fan out notification
//	@Description	Create one notification per member of the room's workspace. Server-to-server.
//	@Tags			notification
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.NotifyReq	true	"Notification"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=handler.NotifyResp}
//	@Router			/notifications [post]
func (h *NotificationHandler) Notify(c *gin.Context) {
	req := NotifyReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if req.RoomID == "" || req.AgentID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("roomId, agentId, and message are required", nil))
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Room not found", nil))
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Agent not found", nil))
		return
	}

	n, err := h.svc.Notify(c.Request.Context(), service.NotifyInput{RoomID: roomID, AgentID: agentID, Message: req.Message})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: NotifyResp{OK: true, Created: n}})
}

// MarkNotificationRead godoc
//
//	@Summary		Mark notification read
//	@Tags			notification
//	@Produce		json
//	@Param			id	path	string	true	"Notification ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Notification}
//	@Router			/notifications/{id} [patch]
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Not found", nil))
		return
	}
	m := membershipFrom(c)
	n, err := h.svc.MarkRead(c.Request.Context(), m.UserID, m.WorkspaceID, id)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: n})
}

// DeleteNotification godoc
//
//	@Summary		Delete notification
//	@Tags			notification
//	@Produce		json
//	@Param			id	path	string	true	"Notification ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Not found", nil))
		return
	}
	m := membershipFrom(c)
	if err := h.svc.Delete(c.Request.Context(), m.UserID, m.WorkspaceID, id); err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// MarkAllRead godoc
//
//	@Summary		Mark all notifications read
//	@Tags			notification
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]int64}
//	@Router			/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	m := membershipFrom(c)
	n, err := h.svc.MarkAllRead(c.Request.Context(), m.UserID, m.WorkspaceID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: map[string]int64{"updated": n}})
}
