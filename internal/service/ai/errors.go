package ai

import (
	"fmt"

	"varshgpt/internal/models"
)

// The send pipeline classifies every failure into one of the types below.
// All of them surface as error entries in the conversation, so Error()
// strings are written for the user, not for logs.

// CredentialError means no API key could be resolved for the provider.
type CredentialError struct {
	Provider models.Model
}

func (e *CredentialError) Error() string {
	switch e.Provider {
	case models.ModelGemini:
		return "Gemini API key is not set. Please configure the `GEMINI_API_KEY` environment variable."
	case models.ModelOpenAI:
		return "OpenAI API key is not set. Please add it via settings or configure the `OPENAI_API_KEY` environment variable."
	case models.ModelDeepSeek:
		return "DeepSeek API key is not set. Please add it via settings or configure the `DEEPSEEK_API_KEY` environment variable."
	}
	return fmt.Sprintf("%s API key is not set.", e.Provider)
}

// ValidationError means the requested mode/model/attachment combination is
// invalid. The UI prevents these, but the core enforces them anyway.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// AttachmentError means an attached file could not be read or encoded.
type AttachmentError struct {
	Name string
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("Could not read attachment %q: %v.", e.Name, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// UnsupportedFeatureError means the chosen provider cannot serve the
// requested capability at all.
type UnsupportedFeatureError struct {
	Provider models.Model
	Feature  string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s are not supported with the %s model in this app.", e.Feature, e.Provider)
}

// ProviderError means the remote API returned a failure. Message carries
// the provider's own error text when it could be extracted.
type ProviderError struct {
	Provider   models.Model
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Failed to get a response from %s.", e.Provider)
	}
	return fmt.Sprintf("Failed to get a response from %s. %s", e.Provider, e.Message)
}

// GenerationError means the provider answered at the transport level but
// returned no usable content.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string { return e.Reason }
