package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type RoomHandler struct {
	svc service.RoomService
}

func NewRoomHandler(s service.RoomService) *RoomHandler {
	return &RoomHandler{svc: s}
}

// ListRooms godoc
//
//	@Summary		List rooms
//	@Description	List the rooms of the current workspace with their linked agents
//	@Tags			room
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Room}
//	@Router			/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	m := membershipFrom(c)
	rooms, err := h.svc.List(c.Request.Context(), m.WorkspaceID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: rooms})
}

type CreateRoomReq struct {
	Name        string      `json:"name" example:"general"`
	Description string      `json:"description" example:"Day-to-day work"`
	AgentIDs    []uuid.UUID `json:"agentIds"`
}

// CreateRoom godoc
//
//	@Summary		Create room
//	@Description	Create a room and link agents of the same workspace to it
//	@Tags			room
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateRoomReq	true	"Room"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Room}
//	@Router			/rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	req := CreateRoomReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	m := membershipFrom(c)
	room, err := h.svc.Create(c.Request.Context(), service.CreateRoomInput{
		WorkspaceID: m.WorkspaceID,
		UserID:      m.UserID,
		Name:        req.Name,
		Description: req.Description,
		AgentIDs:    req.AgentIDs,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: room})
}

type PauseRoomReq struct {
	Paused *bool `json:"paused" binding:"required" example:"true"`
}

// PauseRoom godoc
//
//	@Summary		Pause or resume room
//	@Tags			room
//	@Accept			json
//	@Produce		json
//	@Param			room_id	path	string				true	"Room ID"	Format(uuid)
//	@Param			payload	body	handler.PauseRoomReq	true	"Pause flag"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Room}
//	@Router			/rooms/{room_id}/pause [patch]
func (h *RoomHandler) PauseRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	req := PauseRoomReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	m := membershipFrom(c)
	room, err := h.svc.SetPaused(c.Request.Context(), m.WorkspaceID, roomID, *req.Paused)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: room})
}
