package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"gorm.io/gorm"
)

type WorkspaceService interface {
	// Resolve finds the caller's membership in workspaceID, or their newest one when nil.
	Resolve(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) (*Membership, error)
	Current(ctx context.Context, m Membership) (*WorkspaceView, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]WorkspaceView, error)
	Create(ctx context.Context, userID uuid.UUID, name string) (*WorkspaceView, error)

	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error)
	RemoveMember(ctx context.Context, caller Membership, userID uuid.UUID) error

	CreateInvite(ctx context.Context, caller Membership, expiresInDays int) (*model.WorkspaceInvite, error)
	ListInvites(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceInvite, error)
	RevokeInvite(ctx context.Context, workspaceID, inviteID uuid.UUID) error
	AcceptInvite(ctx context.Context, userID, inviteID uuid.UUID) (*model.WorkspaceInvite, error)
}

type WorkspaceView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Role          string    `json:"role"`
	CurrentUserID uuid.UUID `json:"current_user_id"`
}

func newWorkspaceView(ws *model.Workspace, role string, userID uuid.UUID) WorkspaceView {
	return WorkspaceView{
		ID:            ws.ID,
		Name:          ws.Name,
		CreatedAt:     ws.CreatedAt,
		UpdatedAt:     ws.UpdatedAt,
		Role:          role,
		CurrentUserID: userID,
	}
}

type workspaceService struct {
	r   repo.WorkspaceRepo
	now func() time.Time
}

func NewWorkspaceService(r repo.WorkspaceRepo) WorkspaceService {
	return &workspaceService{r: r, now: time.Now}
}

func (s *workspaceService) Resolve(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) (*Membership, error) {
	var (
		m   *model.WorkspaceMember
		err error
	)
	if workspaceID != nil {
		m, err = s.r.GetMembership(ctx, *workspaceID, userID)
	} else {
		m, err = s.r.LatestMembership(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("No workspace membership")
		}
		return nil, apperr.Infra(err)
	}
	return &Membership{UserID: userID, WorkspaceID: m.WorkspaceID, Role: m.Role}, nil
}

func (s *workspaceService) Current(ctx context.Context, m Membership) (*WorkspaceView, error) {
	ws, err := s.r.Get(ctx, m.WorkspaceID)
	if err != nil {
		return nil, notFoundOr(err, "Workspace not found")
	}
	v := newWorkspaceView(ws, m.Role, m.UserID)
	return &v, nil
}

func (s *workspaceService) ListMine(ctx context.Context, userID uuid.UUID) ([]WorkspaceView, error) {
	memberships, err := s.r.ListMemberships(ctx, userID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	out := make([]WorkspaceView, 0, len(memberships))
	for _, m := range memberships {
		if m.Workspace == nil {
			continue
		}
		out = append(out, newWorkspaceView(m.Workspace, m.Role, userID))
	}
	return out, nil
}

func (s *workspaceService) Create(ctx context.Context, userID uuid.UUID, name string) (*WorkspaceView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	ws := &model.Workspace{Name: name}
	if err := s.r.CreateWithOwner(ctx, ws, userID); err != nil {
		return nil, apperr.Infra(err)
	}
	v := newWorkspaceView(ws, model.RoleOwner, userID)
	return &v, nil
}

func (s *workspaceService) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error) {
	items, err := s.r.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	return items, nil
}

func (s *workspaceService) RemoveMember(ctx context.Context, caller Membership, userID uuid.UUID) error {
	if caller.Role != model.RoleOwner {
		return apperr.Forbidden("Only owners can remove members")
	}
	if userID == uuid.Nil {
		return apperr.BadRequest("userId is required")
	}
	if userID == caller.UserID {
		return apperr.BadRequest("Owners cannot remove themselves")
	}

	err := s.r.RemoveMember(ctx, caller.WorkspaceID, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrLastOwner):
		return apperr.BadRequest("Cannot remove the last owner")
	default:
		return notFoundOr(err, "Member not found")
	}
}

func (s *workspaceService) CreateInvite(ctx context.Context, caller Membership, expiresInDays int) (*model.WorkspaceInvite, error) {
	inv := &model.WorkspaceInvite{
		WorkspaceID:     caller.WorkspaceID,
		CreatedByUserID: caller.UserID,
		Role:            model.RoleMember,
	}
	if expiresInDays > 0 {
		exp := s.now().Add(time.Duration(expiresInDays) * 24 * time.Hour)
		inv.ExpiresAt = &exp
	}
	if err := s.r.CreateInvite(ctx, inv); err != nil {
		return nil, apperr.Infra(err)
	}
	return inv, nil
}

func (s *workspaceService) ListInvites(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceInvite, error) {
	items, err := s.r.ListPendingInvites(ctx, workspaceID, s.now())
	if err != nil {
		return nil, apperr.Infra(err)
	}
	return items, nil
}

func (s *workspaceService) RevokeInvite(ctx context.Context, workspaceID, inviteID uuid.UUID) error {
	err := s.r.DeleteInvite(ctx, workspaceID, inviteID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrInviteAccepted):
		return apperr.BadRequest("Invite already accepted")
	default:
		return notFoundOr(err, "Invite not found")
	}
}

func (s *workspaceService) AcceptInvite(ctx context.Context, userID, inviteID uuid.UUID) (*model.WorkspaceInvite, error) {
	if inviteID == uuid.Nil {
		return nil, apperr.BadRequest("inviteId is required")
	}
	inv, err := s.r.AcceptInvite(ctx, inviteID, userID, s.now())
	switch {
	case err == nil:
		return inv, nil
	case errors.Is(err, repo.ErrInviteAccepted):
		return nil, apperr.BadRequest("Invite already accepted")
	case errors.Is(err, repo.ErrInviteExpired):
		return nil, apperr.BadRequest("Invite link has expired")
	default:
		return nil, notFoundOr(err, "Invalid invite link")
	}
}
