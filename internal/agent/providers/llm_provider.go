package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Roles used in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required,max=4000"`
}

// LLMProvider abstracts the hosted completion model.
type LLMProvider interface {
	// GenerateText returns the full completion for a single prompt.
	GenerateText(ctx context.Context, system, prompt string) (string, error)

	// StreamText sends the conversation and calls onDelta for every chunk as it arrives.
	// Returning an error from onDelta stops the stream with that error.
	StreamText(ctx context.Context, system string, history []Message, onDelta func(string) error) error

	Close()
}

var ErrEmptyCompletion = errors.New("no text content in response")

// GeminiProvider implements LLMProvider on Google Gemini.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiProvider{client: client, modelName: modelName}, nil
}

// model is built per call so concurrent requests never share a system instruction.
func (g *GeminiProvider) model(system string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(0.4)
	if system != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	return m
}

func (g *GeminiProvider) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.model(system).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (g *GeminiProvider) StreamText(ctx context.Context, system string, history []Message, onDelta func(string) error) error {
	if len(history) == 0 {
		return fmt.Errorf("empty conversation")
	}
	last := history[len(history)-1]

	cs := g.model(system).StartChat()
	for _, m := range history[:len(history)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	iter := cs.SendMessageStream(ctx, genai.Text(last.Content))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if text := responseText(resp); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
}

func (g *GeminiProvider) Close() {
	_ = g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
