package editor

import "github.com/oz-workspace/api/internal/modules/model"

// EditStrategy rewrites a room history before it is handed to an agent.
type EditStrategy interface {
	Name() string
	Apply(messages []model.Message) ([]model.Message, error)
}
