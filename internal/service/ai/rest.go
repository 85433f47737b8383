package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"varshgpt/internal/models"
)

// restAdapter is the shared strategy for the OpenAI-compatible REST
// providers. Both OpenAI and DeepSeek speak the same chat-completions
// protocol; only the provider name, model, and endpoint differ.
type restAdapter struct {
	provider models.Model
	model    string
	endpoint func(*models.AppSettings) string
	creds    *credentials
}

func (a *restAdapter) execute(ctx context.Context, req *Request, settings *models.AppSettings) (*BotResult, error) {
	if len(req.Turn.Attachments) > 0 {
		return nil, &UnsupportedFeatureError{Provider: a.provider, Feature: "File uploads"}
	}
	key, err := a.creds.resolve(a.provider, settings)
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(key)
	clientCfg.BaseURL = strings.TrimRight(a.endpoint(settings), "/")
	client := openai.NewClientWithConfig(clientCfg)

	// Flat message array: system instruction, then the full mapped history
	// with the current turn as the final user message.
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Transcript)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.Instruction,
	})
	for _, entry := range req.Transcript {
		role := openai.ChatMessageRoleAssistant
		if entry.Role == roleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: entry.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Turn.Text,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{
				Provider:   a.provider,
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		}
		return nil, &ProviderError{Provider: a.provider, Message: err.Error()}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return &BotResult{Text: fmt.Sprintf("No response from %s.", a.provider)}, nil
	}
	return &BotResult{Text: resp.Choices[0].Message.Content}, nil
}
