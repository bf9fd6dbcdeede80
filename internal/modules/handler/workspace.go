package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type WorkspaceHandler struct {
	svc       service.WorkspaceService
	publicURL string
}

// NewWorkspaceHandler builds the handler. publicURL prefixes invite links; empty uses the request origin.
func NewWorkspaceHandler(s service.WorkspaceService, publicURL string) *WorkspaceHandler {
	return &WorkspaceHandler{svc: s, publicURL: strings.TrimRight(publicURL, "/")}
}

// GetWorkspace godoc
//
//	@Summary		Current workspace
//	@Description	The workspace selected for this request, with the caller's role
//	@Tags			workspace
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.WorkspaceView}
//	@Router			/workspace [get]
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	v, err := h.svc.Current(c.Request.Context(), *membershipFrom(c))
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: v})
}

// ListWorkspaces godoc
//
//	@Summary		List my workspaces
//	@Tags			workspace
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]service.WorkspaceView}
//	@Router			/workspaces [get]
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	out, err := h.svc.ListMine(c.Request.Context(), userIDFrom(c))
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type CreateWorkspaceReq struct {
	Name string `json:"name" example:"Acme"`
}

// CreateWorkspace godoc
//
//	@Summary		Create workspace
//	@Description	Create a workspace owned by the caller
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateWorkspaceReq	true	"Workspace"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=service.WorkspaceView}
//	@Router			/workspaces [post]
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	req := CreateWorkspaceReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("name is required", err))
		return
	}
	v, err := h.svc.Create(c.Request.Context(), userIDFrom(c), req.Name)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: v})
}

// ListMembers godoc
//
//	@Summary		List members
//	@Tags			workspace
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.WorkspaceMember}
//	@Router			/workspace/members [get]
func (h *WorkspaceHandler) ListMembers(c *gin.Context) {
	out, err := h.svc.ListMembers(c.Request.Context(), membershipFrom(c).WorkspaceID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// RemoveMember godoc
//
//	@Summary		Remove member
//	@Description	Owners only. The last owner cannot be removed.
//	@Tags			workspace
//	@Produce		json
//	@Param			user_id	path	string	true	"User ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/workspace/members/{user_id} [delete]
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Member not found", nil))
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), *membershipFrom(c), userID); err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// ListInvites godoc
//
//	@Summary		List pending invites
//	@Tags			workspace
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.WorkspaceInvite}
//	@Router			/workspace/invites [get]
func (h *WorkspaceHandler) ListInvites(c *gin.Context) {
	out, err := h.svc.ListInvites(c.Request.Context(), membershipFrom(c).WorkspaceID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type CreateInviteReq struct {
	ExpiresInDays int `json:"expiresInDays" example:"7"`
}

type InviteResp struct {
	model.WorkspaceInvite
	InviteURL string `json:"inviteUrl"`
}

// CreateInvite godoc
//
//	@Summary		Create invite link
//	@Description	Create a MEMBER invite. expiresInDays <= 0 never expires.
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateInviteReq	false	"Invite"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=handler.InviteResp}
//	@Router			/workspace/invites [post]
func (h *WorkspaceHandler) CreateInvite(c *gin.Context) {
	req := CreateInviteReq{}
	// empty or malformed body means no expiry
	_ = c.ShouldBindJSON(&req)

	inv, err := h.svc.CreateInvite(c.Request.Context(), *membershipFrom(c), req.ExpiresInDays)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: InviteResp{
		WorkspaceInvite: *inv,
		InviteURL:       h.origin(c) + "/signup?invite=" + inv.ID.String(),
	}})
}

func (h *WorkspaceHandler) origin(c *gin.Context) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}

// RevokeInvite godoc
//
//	@Summary		Revoke invite
//	@Tags			workspace
//	@Produce		json
//	@Param			invite_id	path	string	true	"Invite ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/workspace/invites/{invite_id} [delete]
func (h *WorkspaceHandler) RevokeInvite(c *gin.Context) {
	inviteID, err := uuid.Parse(c.Param("invite_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Invite not found", nil))
		return
	}
	if err := h.svc.RevokeInvite(c.Request.Context(), membershipFrom(c).WorkspaceID, inviteID); err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type AcceptInviteReq struct {
	InviteID string `json:"inviteId" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// AcceptInvite godoc
//
//	@Summary		Accept invite
//	@Description	Join the invite's workspace as a member
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.AcceptInviteReq	true	"Invite"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.WorkspaceInvite}
//	@Router			/workspace/invites/accept [post]
func (h *WorkspaceHandler) AcceptInvite(c *gin.Context) {
	req := AcceptInviteReq{}
	if err := c.ShouldBindJSON(&req); err != nil || req.InviteID == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("inviteId is required", err))
		return
	}
	inviteID, err := uuid.Parse(req.InviteID)
	if err != nil {
		c.JSON(http.StatusNotFound, serializer.Err(http.StatusNotFound, "Invalid invite link", nil))
		return
	}

	inv, err := h.svc.AcceptInvite(c.Request.Context(), userIDFrom(c), inviteID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: inv})
}
