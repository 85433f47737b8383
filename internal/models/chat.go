package models

import (
	"fmt"
	"time"
)

// Model selects the LLM backend a chat talks to.
type Model string

const (
	ModelGemini   Model = "Gemini"
	ModelOpenAI   Model = "OpenAI"
	ModelDeepSeek Model = "DeepSeek"
)

// Mode selects the task type, which drives the system instruction and the
// capabilities a send may use.
type Mode string

const (
	ModeAptitude Mode = "Aptitude"
	ModeCoding   Mode = "Coding"
	ModeDocument Mode = "Document"
	ModeImage    Mode = "Image"
	ModeSearch   Mode = "Search"
	ModeAgent    Mode = "Agent"
)

// Chat groups an ordered, append-only message log with the mode and model
// used for future sends. Mode and model changes never reinterpret past
// messages.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Mode      Mode      `json:"mode"`
	Model     Model     `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParseModel validates a model name from the wire.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelGemini, ModelOpenAI, ModelDeepSeek:
		return Model(s), nil
	}
	return "", fmt.Errorf("unknown model %q", s)
}

// ParseMode validates a mode name from the wire.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAptitude, ModeCoding, ModeDocument, ModeImage, ModeSearch, ModeAgent:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// AllowsAttachments reports whether the mode may carry file attachments.
// Attachments are a Gemini-only capability, and only for the modes that
// analyze user content.
func (m Mode) AllowsAttachments() bool {
	switch m {
	case ModeDocument, ModeCoding, ModeAptitude:
		return true
	}
	return false
}
