package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ArtifactTypePlan    = "plan"
	ArtifactTypePR      = "pr"
	ArtifactTypeUnknown = "unknown"
)

type Artifact struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID uuid.UUID `gorm:"type:uuid;not null;index:idx_artifacts_room_created,priority:1;uniqueIndex:ux_artifacts_room_dedupe,priority:1" json:"room_id"`

	Type    string  `gorm:"type:text;not null;index" json:"type"`
	Title   string  `gorm:"type:text;not null" json:"title"`
	Content string  `gorm:"type:text;not null;default:''" json:"content"`
	URL     *string `gorm:"type:text" json:"url"`

	// CreatedBy is the producing agent; nil once the agent is deleted.
	CreatedBy *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"user_id"`

	// DedupeKey is the hex SHA-256 of the identifying fields; see artifact repo.
	DedupeKey string `gorm:"type:char(64);not null;uniqueIndex:ux_artifacts_room_dedupe,priority:2" json:"-"`

	// ContentAsset is set when Content was offloaded to S3 and Content holds a preview.
	ContentAsset datatypes.JSONType[Asset] `gorm:"type:jsonb;not null" swaggertype:"object" json:"-"`
	ContentURL   string                    `gorm:"-" json:"content_url,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_artifacts_room_created,priority:2" json:"created_at"`

	// Artifact <-> Room
	Room *Room `gorm:"foreignKey:RoomID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Artifact <-> Agent
	Agent *Agent `gorm:"foreignKey:CreatedBy;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`

	AgentSummary *AgentSummary `gorm:"-" json:"agent"`
}

func (Artifact) TableName() string { return "artifacts" }

func (a *Artifact) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AttachAgent copies the preloaded agent into the public summary.
func (a *Artifact) AttachAgent() {
	if a.Agent != nil {
		s := a.Agent.Summary()
		a.AgentSummary = &s
	}
}

// ArtifactDedupeKey hashes the identity tuple (room, type, title, url, content, createdBy).
// Fields are length-prefixed and nil values are tagged, so nil and "" never collide.
func ArtifactDedupeKey(roomID uuid.UUID, typ, title string, url *string, content string, createdBy *uuid.UUID) string {
	h := sha256.New()
	write := func(present bool, s string) {
		if !present {
			h.Write([]byte{0})
			return
		}
		var lenBuf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
		h.Write([]byte{1})
		h.Write(lenBuf[:n])
		h.Write([]byte(s))
	}

	write(true, roomID.String())
	write(true, typ)
	write(true, title)
	if url != nil {
		write(true, *url)
	} else {
		write(false, "")
	}
	write(true, content)
	if createdBy != nil {
		write(true, createdBy.String())
	} else {
		write(false, "")
	}
	return hex.EncodeToString(h.Sum(nil))
}
