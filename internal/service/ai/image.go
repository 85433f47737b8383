package ai

import (
	"context"
	"encoding/base64"

	"google.golang.org/genai"

	"varshgpt/internal/config"
	"varshgpt/internal/models"
)

const imageModel = "imagen-4.0-generate-001"

// imageAdapter serves Image mode through the Gemini image-generation API.
// It sends the prompt text alone and expects exactly one generated image.
type imageAdapter struct {
	cfg   *config.Config
	creds *credentials
}

func (a *imageAdapter) execute(ctx context.Context, req *Request, settings *models.AppSettings) (*BotResult, error) {
	key, err := a.creds.resolve(models.ModelGemini, settings)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, &ProviderError{Provider: models.ModelGemini, Message: err.Error()}
	}

	resp, err := client.Models.GenerateImages(ctx, imageModel, req.Turn.Text, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, &ProviderError{Provider: models.ModelGemini, Message: err.Error()}
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, &GenerationError{Reason: "Image generation failed."}
	}

	encoded := base64.StdEncoding.EncodeToString(resp.GeneratedImages[0].Image.ImageBytes)
	return &BotResult{
		Text:     "",
		ImageURL: "data:image/jpeg;base64," + encoded,
	}, nil
}
