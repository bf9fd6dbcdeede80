package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"gorm.io/datatypes"
)

const (
	defaultAgentColor   = "#3B82F6"
	defaultAgentIcon    = "robot"
	defaultAgentHarness = "claude-code"
)

type AgentService interface {
	List(ctx context.Context, workspaceID uuid.UUID) ([]model.Agent, error)
	Create(ctx context.Context, in CreateAgentInput) (*model.Agent, error)
}

type agentService struct {
	r repo.AgentRepo
}

func NewAgentService(r repo.AgentRepo) AgentService {
	return &agentService{r: r}
}

func (s *agentService) List(ctx context.Context, workspaceID uuid.UUID) ([]model.Agent, error) {
	agents, err := s.r.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	return agents, nil
}

type CreateAgentInput struct {
	WorkspaceID   uuid.UUID
	UserID        uuid.UUID
	Name          string
	Color         string
	Icon          string
	RepoURL       string
	Harness       string
	EnvironmentID string
	SystemPrompt  string
	Skills        []string
	MCPServers    []any
	Scripts       []any
}

func (s *agentService) Create(ctx context.Context, in CreateAgentInput) (*model.Agent, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}

	a := &model.Agent{
		WorkspaceID:   in.WorkspaceID,
		UserID:        in.UserID,
		Name:          name,
		Color:         orDefault(in.Color, defaultAgentColor),
		Icon:          orDefault(in.Icon, defaultAgentIcon),
		RepoURL:       in.RepoURL,
		Harness:       orDefault(in.Harness, defaultAgentHarness),
		EnvironmentID: in.EnvironmentID,
		SystemPrompt:  in.SystemPrompt,
		Skills:        datatypes.NewJSONType(nonNil(in.Skills)),
		MCPServers:    datatypes.NewJSONType(nonNil(in.MCPServers)),
		Scripts:       datatypes.NewJSONType(nonNil(in.Scripts)),
		Status:        model.AgentStatusIdle,
	}
	if err := s.r.Create(ctx, a); err != nil {
		return nil, apperr.Infra(err)
	}
	return a, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
