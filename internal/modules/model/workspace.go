package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

type Workspace struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:text;not null" json:"name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Workspace <-> Member
	Members []WorkspaceMember `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Workspace <-> Room
	Rooms []Room `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Workspace <-> Agent
	Agents []Agent `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Workspace <-> Setting
	Settings []Setting `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Workspace <-> Invite
	Invites []WorkspaceInvite `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Workspace) TableName() string { return "workspaces" }

func (w *Workspace) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

type WorkspaceMember struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	WorkspaceID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_workspace_members_ws_user,priority:1;index:idx_workspace_members_ws_role,priority:1" json:"workspace_id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_workspace_members_ws_user,priority:2;index" json:"user_id"`
	Role            string     `gorm:"type:text;not null;default:'MEMBER';check:role IN ('OWNER','MEMBER');index:idx_workspace_members_ws_role,priority:2" json:"role"`
	InvitedByUserID *uuid.UUID `gorm:"type:uuid" json:"invited_by_user_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// Member <-> Workspace
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (WorkspaceMember) TableName() string { return "workspace_members" }

func (m *WorkspaceMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type WorkspaceInvite struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"workspace_id"`
	CreatedByUserID uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_user_id"`
	Role            string     `gorm:"type:text;not null;default:'MEMBER';check:role IN ('OWNER','MEMBER')" json:"role"`
	ExpiresAt       *time.Time `json:"expires_at"`
	AcceptedAt      *time.Time `json:"accepted_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Invite <-> Workspace
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (WorkspaceInvite) TableName() string { return "workspace_invites" }

func (i *WorkspaceInvite) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the invite has an expiry before now.
func (i *WorkspaceInvite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

type Setting struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_settings_ws_key,priority:1" json:"workspace_id"`
	Key         string    `gorm:"type:text;not null;uniqueIndex:ux_settings_ws_key,priority:2" json:"key"`
	Value       string    `gorm:"type:text;not null;default:''" json:"value"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Setting <-> Workspace
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Setting) TableName() string { return "settings" }

func (s *Setting) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
