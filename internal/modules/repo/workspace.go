package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkspaceRepo interface {
	// CreateWithOwner creates the workspace and its first OWNER in one transaction.
	CreateWithOwner(ctx context.Context, ws *model.Workspace, ownerID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*model.Workspace, error)

	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*model.WorkspaceMember, error)
	LatestMembership(ctx context.Context, userID uuid.UUID) (*model.WorkspaceMember, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.WorkspaceMember, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error)
	ListMemberUserIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error)
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error

	CreateInvite(ctx context.Context, inv *model.WorkspaceInvite) error
	GetInvite(ctx context.Context, id uuid.UUID) (*model.WorkspaceInvite, error)
	ListPendingInvites(ctx context.Context, workspaceID uuid.UUID, now time.Time) ([]model.WorkspaceInvite, error)
	DeleteInvite(ctx context.Context, workspaceID, inviteID uuid.UUID) error
	AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID, now time.Time) (*model.WorkspaceInvite, error)
}

type workspaceRepo struct{ db *gorm.DB }

func NewWorkspaceRepo(db *gorm.DB) WorkspaceRepo {
	return &workspaceRepo{db: db}
}

func (r *workspaceRepo) CreateWithOwner(ctx context.Context, ws *model.Workspace, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		return tx.Create(&model.WorkspaceMember{
			WorkspaceID: ws.ID,
			UserID:      ownerID,
			Role:        model.RoleOwner,
		}).Error
	})
}

func (r *workspaceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Workspace, error) {
	var ws model.Workspace
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ws).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepo) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*model.WorkspaceMember, error) {
	var m model.WorkspaceMember
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *workspaceRepo) LatestMembership(ctx context.Context, userID uuid.UUID) (*model.WorkspaceMember, error) {
	var m model.WorkspaceMember
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *workspaceRepo) ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.WorkspaceMember, error) {
	var items []model.WorkspaceMember
	return items, r.db.WithContext(ctx).
		Preload("Workspace").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
}

func (r *workspaceRepo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error) {
	var items []model.WorkspaceMember
	return items, r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
}

func (r *workspaceRepo) ListMemberUserIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	return ids, r.db.WithContext(ctx).
		Model(&model.WorkspaceMember{}).
		Where("workspace_id = ?", workspaceID).
		Pluck("user_id", &ids).Error
}

// RemoveMember deletes a membership. Removing the last OWNER returns ErrLastOwner.
// The workspace's OWNER rows are locked first so concurrent owner removals serialize.
func (r *workspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners []model.WorkspaceMember
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("workspace_id = ? AND role = ?", workspaceID, model.RoleOwner).
			Order("id ASC").
			Find(&owners).Error; err != nil {
			return err
		}

		var m model.WorkspaceMember
		if err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).First(&m).Error; err != nil {
			return err
		}
		if m.Role == model.RoleOwner && len(owners) <= 1 {
			return ErrLastOwner
		}
		return tx.Delete(&m).Error
	})
}

func (r *workspaceRepo) CreateInvite(ctx context.Context, inv *model.WorkspaceInvite) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *workspaceRepo) GetInvite(ctx context.Context, id uuid.UUID) (*model.WorkspaceInvite, error) {
	var inv model.WorkspaceInvite
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *workspaceRepo) ListPendingInvites(ctx context.Context, workspaceID uuid.UUID, now time.Time) ([]model.WorkspaceInvite, error) {
	var items []model.WorkspaceInvite
	return items, r.db.WithContext(ctx).
		Where("workspace_id = ? AND accepted_at IS NULL", workspaceID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC, id DESC").
		Find(&items).Error
}

// DeleteInvite revokes a pending invite. Accepted invites return ErrInviteAccepted.
func (r *workspaceRepo) DeleteInvite(ctx context.Context, workspaceID, inviteID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.WorkspaceInvite
		if err := tx.Where("id = ? AND workspace_id = ?", inviteID, workspaceID).First(&inv).Error; err != nil {
			return err
		}
		if inv.AcceptedAt != nil {
			return ErrInviteAccepted
		}
		res := tx.Where("id = ? AND accepted_at IS NULL", inviteID).Delete(&model.WorkspaceInvite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteAccepted
		}
		return nil
	})
}

// AcceptInvite adds the user to the invite's workspace (unless already a member)
// and marks the invite accepted, atomically.
func (r *workspaceRepo) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID, now time.Time) (*model.WorkspaceInvite, error) {
	var inv model.WorkspaceInvite
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", inviteID).First(&inv).Error; err != nil {
			return err
		}
		if inv.AcceptedAt != nil {
			return ErrInviteAccepted
		}
		if inv.Expired(now) {
			return ErrInviteExpired
		}

		var existing model.WorkspaceMember
		err := tx.Where("workspace_id = ? AND user_id = ?", inv.WorkspaceID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			invitedBy := inv.CreatedByUserID
			if err := tx.Create(&model.WorkspaceMember{
				WorkspaceID:     inv.WorkspaceID,
				UserID:          userID,
				Role:            inv.Role,
				InvitedByUserID: &invitedBy,
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		res := tx.Model(&model.WorkspaceInvite{}).
			Where("id = ? AND accepted_at IS NULL", inv.ID).
			Update("accepted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteAccepted
		}
		inv.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
