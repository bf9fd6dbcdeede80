package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AgentStatusIdle    = "idle"
	AgentStatusRunning = "running"
	AgentStatusError   = "error"
)

type Agent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`

	Name          string `gorm:"type:text;not null" json:"name"`
	Color         string `gorm:"type:text;not null;default:'#3B82F6'" json:"color"`
	Icon          string `gorm:"type:text;not null;default:'robot'" json:"icon"`
	RepoURL       string `gorm:"type:text;not null;default:''" json:"repo_url"`
	Harness       string `gorm:"type:text;not null;default:'claude-code'" json:"harness"`
	EnvironmentID string `gorm:"type:text;not null;default:''" json:"environment_id"`
	SystemPrompt  string `gorm:"type:text;not null;default:''" json:"system_prompt"`

	Skills     datatypes.JSONType[[]string] `gorm:"type:jsonb;not null" swaggertype:"array,string" json:"skills"`
	MCPServers datatypes.JSONType[[]any]    `gorm:"column:mcp_servers;type:jsonb;not null" swaggertype:"array,object" json:"mcp_servers"`
	Scripts    datatypes.JSONType[[]any]    `gorm:"type:jsonb;not null" swaggertype:"array,object" json:"scripts"`

	// Status and ActiveRoomID are advisory; concurrent invocations may overwrite each other.
	Status       string     `gorm:"type:text;not null;default:'idle';check:status IN ('idle','running','error')" json:"status"`
	ActiveRoomID *uuid.UUID `gorm:"type:uuid" json:"active_room_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Agent <-> Workspace
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Agent <-> Room (join rows)
	Links []RoomAgent `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Agent) TableName() string { return "agents" }

func (a *Agent) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AgentSummary is the public projection embedded in rooms, artifacts and notifications.
type AgentSummary struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Color        string     `json:"color"`
	Icon         string     `json:"icon"`
	Status       string     `json:"status"`
	ActiveRoomID *uuid.UUID `json:"active_room_id"`
}

func (a *Agent) Summary() AgentSummary {
	return AgentSummary{
		ID:           a.ID,
		Name:         a.Name,
		Color:        a.Color,
		Icon:         a.Icon,
		Status:       a.Status,
		ActiveRoomID: a.ActiveRoomID,
	}
}
