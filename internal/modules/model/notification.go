package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1;index:idx_notifications_user_ts,priority:1" json:"user_id"`
	RoomID  uuid.UUID `gorm:"type:uuid;not null;index" json:"room_id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`
	Message string    `gorm:"type:text;not null" json:"message"`
	Read    bool      `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`

	Timestamp time.Time `gorm:"column:created_at;autoCreateTime;index:idx_notifications_user_ts,priority:2" json:"timestamp"`

	// Notification <-> Room
	Room *Room `gorm:"foreignKey:RoomID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Notification <-> Agent
	Agent *Agent `gorm:"foreignKey:AgentID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	RoomName     string        `gorm:"-" json:"room_name,omitempty"`
	AgentSummary *AgentSummary `gorm:"-" json:"agent,omitempty"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// AttachRelations copies preloaded room and agent into the public fields.
func (n *Notification) AttachRelations() {
	if n.Room != nil {
		n.RoomName = n.Room.Name
	}
	if n.Agent != nil {
		s := n.Agent.Summary()
		n.AgentSummary = &s
	}
}
