package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/blob"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/types"
	"gorm.io/gorm"
)

// AgentRunner is the external agent capability. A returned error means the
// capability could not be reached; a failed run comes back as a result.
type AgentRunner interface {
	Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error)
}

// ContentStore offloads large artifact content.
type ContentStore interface {
	UploadText(ctx context.Context, keyPrefix, content, mime string) (*blob.UploadedMeta, error)
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
}

// Membership is the resolved (user, workspace, role) of an authenticated request.
type Membership struct {
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Role        string    `json:"role"`
}

// notFoundOr maps a missing row to NotFound(msg) and anything else to Infra.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Infra(err)
}
