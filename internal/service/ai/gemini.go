package ai

import (
	"context"
	"encoding/base64"

	"google.golang.org/genai"

	"varshgpt/internal/config"
	"varshgpt/internal/models"
)

// geminiAdapter runs chat modes through the Gemini SDK: a chat session is
// seeded with the transcript and system instruction, then the current
// turn's parts are sent in one message.
type geminiAdapter struct {
	cfg   *config.Config
	creds *credentials
}

func (a *geminiAdapter) execute(ctx context.Context, req *Request, settings *models.AppSettings) (*BotResult, error) {
	key, err := a.creds.resolve(models.ModelGemini, settings)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, &ProviderError{Provider: models.ModelGemini, Message: err.Error()}
	}

	history := make([]*genai.Content, 0, len(req.Transcript))
	for _, entry := range req.Transcript {
		history = append(history, &genai.Content{
			Role:  entry.Role,
			Parts: []*genai.Part{{Text: entry.Text}},
		})
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.Instruction}},
		},
	}
	if req.Grounding {
		genCfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	chat, err := client.Chats.Create(ctx, a.cfg.Provider(config.ProviderGemini).Model, genCfg, history)
	if err != nil {
		return nil, &ProviderError{Provider: models.ModelGemini, Message: err.Error()}
	}

	parts := make([]genai.Part, 0, len(req.Turn.Attachments)+1)
	for _, att := range req.Turn.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			return nil, &AttachmentError{Name: att.Name, Err: err}
		}
		parts = append(parts, genai.Part{
			InlineData: &genai.Blob{Data: data, MIMEType: att.MimeType},
		})
	}
	if req.Turn.Text != "" {
		parts = append(parts, genai.Part{Text: req.Turn.Text})
	}
	if len(parts) == 0 {
		return &BotResult{Text: "Please provide a message or a file to continue."}, nil
	}

	resp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, &ProviderError{Provider: models.ModelGemini, Message: err.Error()}
	}

	return &BotResult{
		Text:    resp.Text(),
		Sources: groundingSources(resp),
	}, nil
}

// groundingSources maps citation metadata to {title, uri} pairs, filling
// placeholders for anything the provider omitted.
func groundingSources(resp *genai.GenerateContentResponse) []models.Source {
	sources := []models.Source{}
	if resp == nil || len(resp.Candidates) == 0 {
		return sources
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return sources
	}
	for _, chunk := range meta.GroundingChunks {
		src := models.Source{Title: "Untitled", URI: "#"}
		if chunk.Web != nil {
			if chunk.Web.Title != "" {
				src.Title = chunk.Web.Title
			}
			if chunk.Web.URI != "" {
				src.URI = chunk.Web.URI
			}
		}
		sources = append(sources, src)
	}
	return sources
}
