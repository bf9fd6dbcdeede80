package editor

import (
	"fmt"
	"unicode/utf8"

	"github.com/oz-workspace/api/internal/modules/model"
)

const truncatedSuffix = "…[truncated]"

// TrimHistoryStrategy keeps the most recent messages and truncates long ones.
// Input must be ordered oldest first; the result keeps that order.
type TrimHistoryStrategy struct {
	KeepRecentN int
	MaxChars    int
}

// Name returns the strategy name
func (s *TrimHistoryStrategy) Name() string {
	return "trim_history"
}

// Apply drops all but the last KeepRecentN messages and cuts every content to
// MaxChars runes. A zero MaxChars disables truncation. The input is not modified.
func (s *TrimHistoryStrategy) Apply(messages []model.Message) ([]model.Message, error) {
	if s.KeepRecentN < 0 {
		return nil, fmt.Errorf("keep_recent_n must be >= 0, got %d", s.KeepRecentN)
	}
	if s.MaxChars < 0 {
		return nil, fmt.Errorf("max_chars must be >= 0, got %d", s.MaxChars)
	}

	start := 0
	if len(messages) > s.KeepRecentN {
		start = len(messages) - s.KeepRecentN
	}

	out := make([]model.Message, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		if s.MaxChars > 0 && utf8.RuneCountInString(msg.Content) > s.MaxChars {
			msg.Content = string([]rune(msg.Content)[:s.MaxChars]) + truncatedSuffix
		}
		out = append(out, msg)
	}
	return out, nil
}
