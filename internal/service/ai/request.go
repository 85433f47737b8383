package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"varshgpt/internal/models"
)

// Attachment is a fully read, base64-encoded file part ready for transport.
type Attachment struct {
	Name     string
	MimeType string
	Data     string // base64
}

// TranscriptEntry is one prior turn, with the role already mapped to the
// provider's vocabulary ("user" plus "model" or "assistant").
type TranscriptEntry struct {
	Role string
	Text string
}

// Turn is the newly sent user message, possibly combining text and files.
type Turn struct {
	Text        string
	Attachments []Attachment
}

// Request is the provider-neutral payload an adapter executes.
type Request struct {
	Mode        models.Mode
	Model       models.Model
	Instruction string
	Transcript  []TranscriptEntry // history minus the current turn
	Turn        Turn
	Grounding   bool // Search mode: enable web-grounding tooling
}

// BotResult is the normalized success shape every adapter returns.
type BotResult struct {
	Text     string
	ImageURL string
	Sources  []models.Source
}

const (
	roleUser      = "user"
	roleModel     = "model"
	roleAssistant = "assistant"
)

func botRole(model models.Model) string {
	if model == models.ModelGemini {
		return roleModel
	}
	return roleAssistant
}

// Build validates the mode/model/attachment combination, derives the system
// instruction, splits history into transcript and current turn, and encodes
// every attachment. Encoding is all-or-nothing: one unreadable file fails
// the whole build before anything is sent.
func Build(ctx context.Context, mode models.Mode, model models.Model, history []models.Message, files []*models.TempFile, settings *models.AppSettings) (*Request, error) {
	if mode == models.ModeImage {
		if model != models.ModelGemini {
			return nil, &ValidationError{Reason: "Image generation is only available with the Gemini model."}
		}
		if len(files) > 0 {
			return nil, &ValidationError{Reason: "Image generation mode does not support file uploads."}
		}
	}
	if len(files) > 0 {
		if model != models.ModelGemini {
			return nil, &UnsupportedFeatureError{Provider: model, Feature: "File uploads"}
		}
		if !mode.AllowsAttachments() {
			return nil, &ValidationError{Reason: fmt.Sprintf("File uploads are not supported in %s mode.", mode)}
		}
	}
	if len(history) == 0 || history[len(history)-1].Sender != models.SenderUser {
		return nil, &ValidationError{Reason: "Cannot generate a response without a user message."}
	}

	var profile string
	if settings != nil {
		profile = settings.UserProfile
	}

	last := history[len(history)-1]
	transcript := make([]TranscriptEntry, 0, len(history)-1)
	for _, msg := range history[:len(history)-1] {
		role := roleUser
		if msg.Sender == models.SenderBot {
			role = botRole(model)
		}
		transcript = append(transcript, TranscriptEntry{Role: role, Text: msg.Text})
	}

	attachments, err := encodeAttachments(ctx, files)
	if err != nil {
		return nil, err
	}

	return &Request{
		Mode:        mode,
		Model:       model,
		Instruction: SystemInstruction(mode, len(files) > 0, profile),
		Transcript:  transcript,
		Turn:        Turn{Text: last.Text, Attachments: attachments},
		Grounding:   mode == models.ModeSearch,
	}, nil
}

// encodeAttachments reads and base64-encodes every file. Reads run
// concurrently; the first failure cancels the rest.
func encodeAttachments(ctx context.Context, files []*models.TempFile) ([]Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	attachments := make([]Attachment, len(files))
	g, _ := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			data, err := os.ReadFile(f.StoredPath)
			if err != nil {
				return &AttachmentError{Name: f.FileName, Err: err}
			}
			attachments[i] = Attachment{
				Name:     f.FileName,
				MimeType: f.MimeType,
				Data:     base64.StdEncoding.EncodeToString(data),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attachments, nil
}
