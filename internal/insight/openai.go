package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a knowledgeable travel guide."

// chatCompleter is the part of the OpenAI client the generator needs
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator asks a chat-completion model for a significance paragraph
type OpenAIGenerator struct {
	client chatCompleter
	model  string
}

// NewOpenAIGenerator creates a generator for the given API key and model.
func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errs.Configuration("insight", "OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Generate implements Generator
func (g *OpenAIGenerator) Generate(ctx context.Context, place, city, category string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(place, city, category)},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt builds the 2-3 sentence significance request for a place.
func Prompt(place, city, category string) string {
	if city == "" {
		city = "the destination city"
	}
	return fmt.Sprintf("In 2-3 sentences, explain the cultural and historical significance of '%s' in %s.\n"+
		"Category: %s.\n"+
		"Focus on why it matters historically, what the traveller would miss by skipping it, "+
		"and any unique feature found nowhere else.\n"+
		"Keep it factual and vivid. No bullet points.", place, city, category)
}
