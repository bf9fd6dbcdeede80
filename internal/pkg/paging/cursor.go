package paging

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// EncodeCursor builds an opaque (created_at, id) keyset cursor.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	b, _ := sonic.Marshal(cursor{CreatedAt: createdAt.UTC(), ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(s string) (time.Time, uuid.UUID, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, uuid.Nil, ErrInvalidCursor
	}
	var c cursor
	if err := sonic.Unmarshal(b, &c); err != nil || c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return time.Time{}, uuid.Nil, ErrInvalidCursor
	}
	return c.CreatedAt, c.ID, nil
}
