// Package ai builds provider requests, dispatches them to the selected
// provider adapter, and normalizes results into conversation messages.
package ai

import (
	"context"
	"os"
	"strings"

	"varshgpt/internal/config"
	"varshgpt/internal/models"
)

// adapter is the shared capability every provider strategy implements.
// Each call performs exactly one attempt against the remote endpoint.
type adapter interface {
	execute(ctx context.Context, req *Request, settings *models.AppSettings) (*BotResult, error)
}

// Service owns the dispatch table from (mode, model) to adapter.
type Service struct {
	cfg   *config.Config
	chat  map[models.Model]adapter
	image adapter
	agent adapter
}

// NewService wires the real adapters: the Gemini SDK pair, the two REST
// chat-completion strategies, and the tool-running agent.
func NewService(cfg *config.Config) *Service {
	creds := newCredentials(cfg)
	return &Service{
		cfg: cfg,
		chat: map[models.Model]adapter{
			models.ModelGemini: &geminiAdapter{cfg: cfg, creds: creds},
			models.ModelOpenAI: &restAdapter{
				provider: models.ModelOpenAI,
				model:    cfg.Provider(config.ProviderOpenAI).Model,
				endpoint: func(s *models.AppSettings) string {
					if s != nil && s.OpenAIEndpoint != "" {
						return s.OpenAIEndpoint
					}
					return cfg.Provider(config.ProviderOpenAI).BaseURL
				},
				creds: creds,
			},
			models.ModelDeepSeek: &restAdapter{
				provider: models.ModelDeepSeek,
				model:    cfg.Provider(config.ProviderDeepSeek).Model,
				endpoint: func(s *models.AppSettings) string {
					if s != nil && s.DeepSeekEndpoint != "" {
						return s.DeepSeekEndpoint
					}
					return cfg.Provider(config.ProviderDeepSeek).BaseURL
				},
				creds: creds,
			},
		},
		image: &imageAdapter{cfg: cfg, creds: creds},
		agent: &agentAdapter{cfg: cfg, creds: creds, tools: initAgentTools()},
	}
}

// BuildRequest constructs the provider request for one user turn.
func (s *Service) BuildRequest(ctx context.Context, mode models.Mode, model models.Model, history []models.Message, files []*models.TempFile, settings *models.AppSettings) (*Request, error) {
	return Build(ctx, mode, model, history, files, settings)
}

// Execute dispatches a built request to the selected adapter.
func (s *Service) Execute(ctx context.Context, req *Request, settings *models.AppSettings) (*BotResult, error) {
	return s.dispatch(req).execute(ctx, req, settings)
}

// dispatch selects the adapter for a built request: Image mode routes to
// the image generator, Agent mode to the tool-running agent, everything
// else to the model's chat adapter.
func (s *Service) dispatch(req *Request) adapter {
	switch req.Mode {
	case models.ModeImage:
		return s.image
	case models.ModeAgent:
		return s.agent
	}
	return s.chat[req.Model]
}

// credentials resolves API keys with the precedence the app promises:
// explicit settings value, then environment, then deployment config.
type credentials struct {
	cfg *config.Config
}

func newCredentials(cfg *config.Config) *credentials {
	return &credentials{cfg: cfg}
}

func (c *credentials) resolve(model models.Model, settings *models.AppSettings) (string, error) {
	var fromSettings, envVar, providerName string
	switch model {
	case models.ModelGemini:
		envVar, providerName = "GEMINI_API_KEY", config.ProviderGemini
	case models.ModelOpenAI:
		envVar, providerName = "OPENAI_API_KEY", config.ProviderOpenAI
		if settings != nil {
			fromSettings = settings.OpenAI
		}
	case models.ModelDeepSeek:
		envVar, providerName = "DEEPSEEK_API_KEY", config.ProviderDeepSeek
		if settings != nil {
			fromSettings = settings.DeepSeek
		}
	}
	for _, key := range []string{fromSettings, os.Getenv(envVar), c.cfg.Provider(providerName).APIKey} {
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", &CredentialError{Provider: model}
}
