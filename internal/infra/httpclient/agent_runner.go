package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/oz-workspace/api/internal/config"
	"github.com/oz-workspace/api/internal/pkg/types"
	"go.uber.org/zap"
)

// AgentRunnerClient is the HTTP client for the remote agent runner.
type AgentRunnerClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewAgentRunnerClient creates a new AgentRunnerClient. Deadlines come from the caller's context.
func NewAgentRunnerClient(cfg *config.Config, log *zap.Logger) *AgentRunnerClient {
	return &AgentRunnerClient{
		BaseURL:    strings.TrimRight(cfg.Agent.RunnerURL, "/"),
		Token:      cfg.Agent.RunnerToken,
		HTTPClient: &http.Client{},
		Logger:     log,
	}
}

// Run posts the request to /run. A non-2xx reply carrying a run result is returned
// as a failed result; anything else is a transport error.
func (c *AgentRunnerClient) Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error) {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/run", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var result types.RunResult
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := sonic.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &result, nil
	}

	c.Logger.Warn("agent run request failed",
		zap.Int("status_code", resp.StatusCode),
		zap.String("agent_id", req.Agent.ID.String()))

	if err := sonic.Unmarshal(body, &result); err != nil || (result.Error == "" && result.Message == "") {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	result.Success = false
	if result.ErrorStatus == 0 {
		result.ErrorStatus = resp.StatusCode
	}
	return &result, nil
}
