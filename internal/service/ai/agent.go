package ai

import (
	"context"

	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"varshgpt/internal/config"
	"varshgpt/internal/models"
)

// agentAdapter serves Agent mode. The conversation runs through a react
// agent that can call the web-search tool while reasoning; the underlying
// chat model is still chosen by the chat's provider, with DeepSeek reached
// through its OpenAI-compatible endpoint.
type agentAdapter struct {
	cfg   *config.Config
	creds *credentials
	tools []tool.BaseTool
}

func (a *agentAdapter) execute(ctx context.Context, req *Request, settings *models.AppSettings) (*BotResult, error) {
	key, err := a.creds.resolve(req.Model, settings)
	if err != nil {
		return nil, err
	}
	chatModel, err := a.buildChatModel(ctx, req.Model, key, settings)
	if err != nil {
		return nil, &ProviderError{Provider: req.Model, Message: err.Error()}
	}

	messages := make([]*schema.Message, 0, len(req.Transcript)+2)
	messages = append(messages, &schema.Message{Role: schema.System, Content: req.Instruction})
	for _, entry := range req.Transcript {
		role := schema.Assistant
		if entry.Role == roleUser {
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: entry.Text})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: req.Turn.Text})

	var out *schema.Message
	if len(a.tools) > 0 {
		agent, err := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: a.tools,
			},
		})
		if err != nil {
			return nil, &ProviderError{Provider: req.Model, Message: err.Error()}
		}
		out, err = agent.Generate(ctx, messages)
		if err != nil {
			return nil, &ProviderError{Provider: req.Model, Message: err.Error()}
		}
	} else {
		out, err = chatModel.Generate(ctx, messages)
		if err != nil {
			return nil, &ProviderError{Provider: req.Model, Message: err.Error()}
		}
	}

	if out == nil || out.Content == "" {
		return nil, &GenerationError{Reason: "The agent finished without producing an answer."}
	}
	return &BotResult{Text: out.Content}, nil
}

func (a *agentAdapter) buildChatModel(ctx context.Context, m models.Model, key string, settings *models.AppSettings) (model.ToolCallingChatModel, error) {
	switch m {
	case models.ModelGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
		if err != nil {
			return nil, err
		}
		return einogemini.NewChatModel(ctx, &einogemini.Config{
			Client: client,
			Model:  a.cfg.Provider(config.ProviderGemini).Model,
		})
	case models.ModelOpenAI:
		baseURL := a.cfg.Provider(config.ProviderOpenAI).BaseURL
		if settings != nil && settings.OpenAIEndpoint != "" {
			baseURL = settings.OpenAIEndpoint
		}
		return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
			BaseURL: baseURL,
			Model:   a.cfg.Provider(config.ProviderOpenAI).Model,
			APIKey:  key,
		})
	default: // DeepSeek
		baseURL := a.cfg.Provider(config.ProviderDeepSeek).BaseURL
		if settings != nil && settings.DeepSeekEndpoint != "" {
			baseURL = settings.DeepSeekEndpoint
		}
		return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
			BaseURL: baseURL,
			Model:   a.cfg.Provider(config.ProviderDeepSeek).Model,
			APIKey:  key,
		})
	}
}
