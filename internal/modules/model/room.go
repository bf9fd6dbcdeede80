package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Room struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// WorkspaceID is nil only for rooms created before workspaces existed.
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index" json:"workspace_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null" json:"user_id"`
	Name        string     `gorm:"type:text;not null" json:"name"`
	Description string     `gorm:"type:text;not null;default:''" json:"description"`
	Paused      bool       `gorm:"not null;default:false" json:"paused"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Room <-> Workspace
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Room <-> Agent (join rows)
	Links []RoomAgent `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Room <-> Artifact
	Artifacts []Artifact `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Room <-> Notification
	Notifications []Notification `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Room <-> Message
	Messages []Message `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	Agents []AgentSummary `gorm:"-" json:"agents"`
}

func (Room) TableName() string { return "rooms" }

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// FlattenAgents fills Agents from preloaded Links.
func (r *Room) FlattenAgents() {
	r.Agents = make([]AgentSummary, 0, len(r.Links))
	for _, l := range r.Links {
		if l.Agent != nil {
			r.Agents = append(r.Agents, l.Agent.Summary())
		}
	}
}

// RoomAgent links an agent to a room. An agent may only be invoked in rooms it is linked to.
type RoomAgent struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_room_agents_room_agent,priority:1" json:"room_id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_room_agents_room_agent,priority:2;index" json:"agent_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// RoomAgent <-> Room
	Room *Room `gorm:"foreignKey:RoomID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// RoomAgent <-> Agent
	Agent *Agent `gorm:"foreignKey:AgentID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (RoomAgent) TableName() string { return "room_agents" }

func (ra *RoomAgent) BeforeCreate(*gorm.DB) error {
	if ra.ID == uuid.Nil {
		ra.ID = uuid.New()
	}
	return nil
}
