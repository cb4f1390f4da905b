package providers

import (
	"context"
	"fmt"
	"strings"
)

// OfflineProvider answers without a model. Output depends only on the input, which keeps
// local development and tests reproducible.
type OfflineProvider struct {
	// Err, when set, is returned by every call.
	Err error
}

func NewOfflineProvider() *OfflineProvider {
	return &OfflineProvider{}
}

func (p *OfflineProvider) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("The AI assistant is running in offline mode. Based on your request (%q), review the matches listed below and reach out to the growers directly.", firstLine(prompt)), nil
}

func (p *OfflineProvider) StreamText(ctx context.Context, system string, history []Message, onDelta func(string) error) error {
	if p.Err != nil {
		return p.Err
	}
	question := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			question = history[i].Content
			break
		}
	}

	reply := fmt.Sprintf("Offline assistant: thanks for sharing %q. Start with the highest priority items on your farm roadmap and revisit the assessment after each change.", firstLine(question))
	for _, word := range strings.SplitAfter(reply, " ") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onDelta(word); err != nil {
			return err
		}
	}
	return nil
}

func (p *OfflineProvider) Close() {}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120])
	}
	return s
}
