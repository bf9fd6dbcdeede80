package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type ArtifactHandler struct {
	svc service.ArtifactService
}

func NewArtifactHandler(s service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{svc: s}
}

type ListArtifactsReq struct {
	RoomID string `form:"roomId" json:"roomId" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// ListArtifacts godoc
//
//	@Summary		List artifacts
//	@Description	List the artifacts of a room, newest first. Offloaded content is linked by content_url.
//	@Tags			artifact
//	@Produce		json
//	@Param			roomId	query	string	true	"Room ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Artifact}
//	@Router			/artifacts [get]
func (h *ArtifactHandler) ListArtifacts(c *gin.Context) {
	req := ListArtifactsReq{}
	if err := c.ShouldBindQuery(&req); err != nil || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("roomId required", err))
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("roomId required", err))
		return
	}

	m := membershipFrom(c)
	items, err := h.svc.ListByRoom(c.Request.Context(), m.WorkspaceID, roomID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type CreateArtifactReq struct {
	RoomID    uuid.UUID  `json:"roomId" binding:"required" example:"123e4567-e89b-12d3-a456-426614174000"`
	Type      string     `json:"type" example:"note"`
	Title     string     `json:"title" example:"Release checklist"`
	Content   string     `json:"content"`
	URL       *string    `json:"url"`
	CreatedBy *uuid.UUID `json:"createdBy"`
}

// CreateArtifact godoc
//
//	@Summary		Create artifact
//	@Description	Store a user-authored artifact. An identical artifact in the room is returned instead of a new one.
//	@Tags			artifact
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateArtifactReq	true	"Artifact"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Artifact}
//	@Router			/artifacts [post]
func (h *ArtifactHandler) CreateArtifact(c *gin.Context) {
	req := CreateArtifactReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	m := membershipFrom(c)
	a, err := h.svc.Create(c.Request.Context(), service.CreateArtifactInput{
		WorkspaceID: m.WorkspaceID,
		UserID:      m.UserID,
		RoomID:      req.RoomID,
		Type:        req.Type,
		Title:       req.Title,
		Content:     req.Content,
		URL:         req.URL,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: a})
}
