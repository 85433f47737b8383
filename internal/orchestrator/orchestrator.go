// Package orchestrator sequences one user turn through build, dispatch,
// and normalize, keeping the conversation log consistent no matter how the
// provider call ends.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"varshgpt/internal/kv"
	"varshgpt/internal/models"
	"varshgpt/internal/service/ai"
	"varshgpt/internal/service/conversation"
)

// ErrBusy is returned when a send is already in flight. Only one send is
// permitted at a time; callers treat this as a no-op and retry after the
// current turn settles.
var ErrBusy = errors.New("a message is already being processed")

// Phase is the orchestrator's position in the send pipeline, exposed to
// the rendering layer as a read-only snapshot.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseBuilding
	PhaseDispatching
	PhaseNormalizing
)

func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseDispatching:
		return "dispatching"
	case PhaseNormalizing:
		return "normalizing"
	}
	return "idle"
}

// Generator builds and executes provider requests. *ai.Service is the
// production implementation.
type Generator interface {
	BuildRequest(ctx context.Context, mode models.Mode, model models.Model, history []models.Message, files []*models.TempFile, settings *models.AppSettings) (*ai.Request, error)
	Execute(ctx context.Context, req *ai.Request, settings *models.AppSettings) (*ai.BotResult, error)
}

// Speaker is the voice-output capability. Speak is best-effort: the
// orchestrator never waits on it or reacts to its outcome.
type Speaker interface {
	Speak(text string)
	Stop()
}

// Orchestrator owns the send state machine.
type Orchestrator struct {
	conv    *conversation.Service
	gen     Generator
	speaker Speaker
	prefs   *kv.Preferences
	phase   atomic.Int32
}

func New(conv *conversation.Service, gen Generator, speaker Speaker, prefs *kv.Preferences) *Orchestrator {
	return &Orchestrator{conv: conv, gen: gen, speaker: speaker, prefs: prefs}
}

// Phase reports the current pipeline position.
func (o *Orchestrator) Phase() Phase {
	return Phase(o.phase.Load())
}

// SendResult is the settled outcome of one turn: the user message that was
// appended optimistically and the bot (or error) message that followed it.
type SendResult struct {
	ChatID       string         `json:"chat_id"`
	Title        string         `json:"title"`
	TitleUpdated bool           `json:"title_updated"`
	UserMessage  models.Message `json:"user_message"`
	BotMessage   models.Message `json:"bot_message"`
}

// SendMessage runs one full turn. The user message is appended before any
// network I/O; exactly one bot or error message is appended afterwards.
// Every path returns the orchestrator to idle.
func (o *Orchestrator) SendMessage(ctx context.Context, chatID, text string, fileIDs []int64) (*SendResult, error) {
	if !o.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseBuilding)) {
		return nil, ErrBusy
	}
	defer o.phase.Store(int32(PhaseIdle))

	if o.speaker != nil {
		o.speaker.Stop()
	}

	files, err := o.conv.GetTempFilesByIDs(ctx, fileIDs)
	if err != nil {
		return nil, err
	}

	chat, err := o.resolveOrCreateChat(ctx, chatID, len(files) > 0)
	if err != nil {
		return nil, err
	}

	userMsg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Text:      text,
		Sender:    models.SenderUser,
		Timestamp: time.Now().UTC(),
	}
	if err := o.conv.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	result := &SendResult{ChatID: chat.ID, Title: chat.Title, UserMessage: userMsg}
	if len(chat.Messages) == 0 {
		title := deriveTitle(text, len(files))
		if err := o.conv.UpdateTitle(ctx, chat.ID, title); err != nil {
			log.Printf("update chat title: %v", err)
		} else {
			result.Title = title
			result.TitleUpdated = true
		}
	}

	settings, err := o.conv.LoadSettings(ctx)
	if err != nil {
		log.Printf("load settings, continuing without overrides: %v", err)
		settings = &models.AppSettings{}
	}

	history := append(append([]models.Message{}, chat.Messages...), userMsg)
	botMsg := o.generate(ctx, chat, history, files, settings)

	if err := o.conv.AppendMessage(ctx, botMsg); err != nil {
		if errors.Is(err, conversation.ErrChatNotFound) {
			// The chat was deleted while the request was in flight; the
			// response is discarded rather than resurrecting the chat.
			log.Printf("chat %s deleted mid-flight, dropping response", chat.ID)
			return nil, conversation.ErrChatNotFound
		}
		return nil, err
	}
	result.BotMessage = botMsg

	if !botMsg.IsError && botMsg.Text != "" && o.speaker != nil && o.prefs != nil && o.prefs.TTSEnabled(ctx) {
		go o.speaker.Speak(botMsg.Text)
	}
	if o.prefs != nil {
		if err := o.prefs.SetLastChatID(ctx, chat.ID); err != nil {
			log.Printf("save last chat id: %v", err)
		}
	}
	return result, nil
}

// generate walks the request through the generator and converts any
// failure into an error entry. Nothing raised here propagates further.
func (o *Orchestrator) generate(ctx context.Context, chat *models.Chat, history []models.Message, files []*models.TempFile, settings *models.AppSettings) models.Message {
	req, err := o.gen.BuildRequest(ctx, chat.Mode, chat.Model, history, files, settings)
	if err != nil {
		o.phase.Store(int32(PhaseNormalizing))
		return ai.ErrorMessage(chat.ID, err)
	}

	o.phase.Store(int32(PhaseDispatching))
	res, err := o.gen.Execute(ctx, req, settings)

	o.phase.Store(int32(PhaseNormalizing))
	if err != nil {
		return ai.ErrorMessage(chat.ID, err)
	}
	return ai.ResultMessage(chat.ID, res)
}

// resolveOrCreateChat returns the target chat, creating one with the
// documented defaults when no id is supplied: model Gemini, mode Document
// when attachments are present and Aptitude otherwise.
func (o *Orchestrator) resolveOrCreateChat(ctx context.Context, chatID string, hasFiles bool) (*models.Chat, error) {
	if chatID != "" {
		return o.conv.GetChat(ctx, chatID)
	}
	mode := models.ModeAptitude
	if hasFiles {
		mode = models.ModeDocument
	}
	return o.conv.CreateChat(ctx, "New Conversation", mode, models.ModelGemini)
}

func deriveTitle(text string, fileCount int) string {
	if text == "" {
		return fmt.Sprintf("Analysis of %d file(s)", fileCount)
	}
	runes := []rune(text)
	if len(runes) <= 30 {
		return text
	}
	return string(runes[:30]) + "..."
}
