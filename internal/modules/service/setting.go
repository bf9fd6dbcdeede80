package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
)

type SettingService interface {
	Get(ctx context.Context, workspaceID uuid.UUID) (map[string]string, error)
	Put(ctx context.Context, workspaceID uuid.UUID, key, value string) (*model.Setting, error)
}

type settingService struct {
	r repo.SettingRepo
}

func NewSettingService(r repo.SettingRepo) SettingService {
	return &settingService{r: r}
}

func (s *settingService) Get(ctx context.Context, workspaceID uuid.UUID) (map[string]string, error) {
	items, err := s.r.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Key] = it.Value
	}
	return out, nil
}

func (s *settingService) Put(ctx context.Context, workspaceID uuid.UUID, key, value string) (*model.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperr.BadRequest("key and value are required")
	}
	st := &model.Setting{WorkspaceID: workspaceID, Key: key, Value: value}
	if err := s.r.Upsert(ctx, st); err != nil {
		return nil, apperr.Infra(err)
	}
	return st, nil
}
