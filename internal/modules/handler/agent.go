package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type AgentHandler struct {
	svc service.AgentService
}

func NewAgentHandler(s service.AgentService) *AgentHandler {
	return &AgentHandler{svc: s}
}

// ListAgents godoc
//
//	@Summary		List agents
//	@Tags			agent
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Agent}
//	@Router			/agents [get]
func (h *AgentHandler) ListAgents(c *gin.Context) {
	m := membershipFrom(c)
	agents, err := h.svc.List(c.Request.Context(), m.WorkspaceID)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: agents})
}

type CreateAgentReq struct {
	Name          string   `json:"name" example:"builder"`
	Color         string   `json:"color" example:"#3B82F6"`
	Icon          string   `json:"icon" example:"robot"`
	RepoURL       string   `json:"repoUrl" example:"https://github.com/acme/app"`
	Harness       string   `json:"harness" example:"claude-code"`
	EnvironmentID string   `json:"environmentId"`
	SystemPrompt  string   `json:"systemPrompt"`
	Skills        []string `json:"skills"`
	MCPServers    []any    `json:"mcpServers" swaggertype:"array,object"`
	Scripts       []any    `json:"scripts" swaggertype:"array,object"`
}

// CreateAgent godoc
//
//	@Summary		Create agent
//	@Description	Create an agent in the current workspace. Unset color, icon and harness get defaults.
//	@Tags			agent
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateAgentReq	true	"Agent"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Agent}
//	@Router			/agents [post]
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	req := CreateAgentReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	m := membershipFrom(c)
	agent, err := h.svc.Create(c.Request.Context(), service.CreateAgentInput{
		WorkspaceID:   m.WorkspaceID,
		UserID:        m.UserID,
		Name:          req.Name,
		Color:         req.Color,
		Icon:          req.Icon,
		RepoURL:       req.RepoURL,
		Harness:       req.Harness,
		EnvironmentID: req.EnvironmentID,
		SystemPrompt:  req.SystemPrompt,
		Skills:        req.Skills,
		MCPServers:    req.MCPServers,
		Scripts:       req.Scripts,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: agent})
}
