// Package types holds the payloads exchanged with the external agent capability.
package types

import "github.com/google/uuid"

// Raw artifact kinds reported by agents.
const (
	RawArtifactPlan        = "PLAN"
	RawArtifactPullRequest = "PULL_REQUEST"
)

// AgentEventNotification marks an event that should be fanned out to workspace members.
const AgentEventNotification = "notification"

// ArtifactItem is an artifact descriptor as reported by an agent run.
type ArtifactItem struct {
	ArtifactType string         `json:"artifact_type"`
	Data         map[string]any `json:"data"`
}

// AgentEvent is a side event surfaced by an agent run.
type AgentEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AgentConfig is the persona handed to the capability.
type AgentConfig struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	SystemPrompt  string    `json:"system_prompt"`
	Harness       string    `json:"harness"`
	RepoURL       string    `json:"repo_url"`
	EnvironmentID string    `json:"environment_id"`
	Skills        []string  `json:"skills"`
	MCPServers    []any     `json:"mcp_servers"`
	Scripts       []any     `json:"scripts"`
}

// HistoryMessage is one prior room message given to the agent as context.
type HistoryMessage struct {
	Role    string `json:"role"`
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
}

// Attribution identifies who the run acts for. Depth is always 0 for public invocations.
type Attribution struct {
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	RoomID      uuid.UUID `json:"room_id"`
	Depth       int       `json:"depth"`
}

type RunRequest struct {
	Agent       AgentConfig      `json:"agent"`
	Prompt      string           `json:"prompt"`
	History     []HistoryMessage `json:"history"`
	Attribution Attribution      `json:"attribution"`
}

type RunResult struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message,omitempty"`
	Artifacts   []ArtifactItem `json:"artifacts,omitempty"`
	Events      []AgentEvent   `json:"events,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorStatus int            `json:"error_status,omitempty"`
}

// CallbackMessage is delivered asynchronously by the agent runner after a run.
type CallbackMessage struct {
	RoomID    uuid.UUID      `json:"roomId"`
	AgentID   uuid.UUID      `json:"agentId"`
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	Artifacts []ArtifactItem `json:"artifacts"`
	Events    []AgentEvent   `json:"events"`
}
