package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageRoleUser   = "user"
	MessageRoleAgent  = "agent"
	MessageRoleSystem = "system"
)

// Message is one entry of a room's conversation log.
type Message struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID uuid.UUID `gorm:"type:uuid;not null;index:idx_room_created,priority:1" json:"room_id"`

	Role string `gorm:"type:text;not null;check:role IN ('user','agent','system')" json:"role"`

	UserID  *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	AgentID *uuid.UUID `gorm:"type:uuid;index" json:"agent_id"`

	Content string `gorm:"type:text;not null" json:"content"`

	Meta datatypes.JSONType[map[string]any] `gorm:"type:jsonb;not null" swaggertype:"object" json:"meta"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_room_created,priority:2,sort:desc" json:"created_at"`

	// Message <-> Room
	Room *Room `gorm:"foreignKey:RoomID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Message <-> Agent
	Agent *Agent `gorm:"foreignKey:AgentID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&Workspace{},
		&WorkspaceMember{},
		&WorkspaceInvite{},
		&Setting{},
		&Agent{},
		&Room{},
		&RoomAgent{},
		&Artifact{},
		&Notification{},
		&Message{},
	}
}
