package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type InvokeHandler struct {
	svc service.InvocationService
}

func NewInvokeHandler(s service.InvocationService) *InvokeHandler {
	return &InvokeHandler{svc: s}
}

type InvokeReq struct {
	RoomID  string `json:"roomId" example:"123e4567-e89b-12d3-a456-426614174000"`
	AgentID string `json:"agentId" example:"123e4567-e89b-12d3-a456-426614174001"`
	Prompt  string `json:"prompt" example:"status?"`
	// Depth must be absent or 0; an explicit null is rejected.
	Depth json.RawMessage `json:"depth" swaggertype:"integer" example:"0"`
}

// Invoke godoc
//
//	@Summary		Invoke agent
//	@Description	Run an agent linked to a room on a prompt and return its reply. Long-running.
//	@Tags			invoke
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.InvokeReq	true	"Invocation"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Message}
//	@Failure		400	{object}	serializer.Response
//	@Failure		404	{object}	serializer.Response
//	@Failure		502	{object}	serializer.Response
//	@Router			/invoke [post]
func (h *InvokeHandler) Invoke(c *gin.Context) {
	req := InvokeReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.AgentID) == "" || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("roomId, agentId, and prompt are required", nil))
		return
	}
	if !topLevelDepth(req.Depth) {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("depth must be 0", nil))
		return
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Room not found", nil))
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Agent not found in room", nil))
		return
	}

	m := membershipFrom(c)
	msg, err := h.svc.Invoke(c.Request.Context(), service.InvokeInput{
		RoomID:      roomID,
		AgentID:     agentID,
		Prompt:      req.Prompt,
		UserID:      m.UserID,
		WorkspaceID: m.WorkspaceID,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: msg})
}

// topLevelDepth reports whether a raw depth field is absent or numerically 0.
// null and non-numeric values are not.
func topLevelDepth(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && f == 0
}
