package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"varshgpt/internal/config"
	"varshgpt/internal/kv"
	"varshgpt/internal/models"
	"varshgpt/internal/service/ai"
	"varshgpt/internal/service/conversation"
	"varshgpt/internal/storage"
)

// fakeGenerator scripts the provider side of a turn. hook runs between
// build and result, where a real request would be in flight.
type fakeGenerator struct {
	result *ai.BotResult
	err    error
	hook   func()
	calls  int
}

func (f *fakeGenerator) BuildRequest(ctx context.Context, mode models.Mode, model models.Model, history []models.Message, files []*models.TempFile, settings *models.AppSettings) (*ai.Request, error) {
	return ai.Build(ctx, mode, model, history, files, settings)
}

func (f *fakeGenerator) Execute(ctx context.Context, req *ai.Request, settings *models.AppSettings) (*ai.BotResult, error) {
	f.calls++
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (f *fakeSpeaker) Speak(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func newTestOrchestrator(t *testing.T, gen Generator) (*Orchestrator, *conversation.Service, *sql.DB) {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	conv := conversation.NewService(db)
	prefs := kv.NewPreferences(kv.NewMemoryStore())
	return New(conv, gen, &fakeSpeaker{}, prefs), conv, db
}

func TestSendMessageAppendsUserThenBot(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "the answer"}}
	orch, conv, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	res, err := orch.SendMessage(ctx, "", "what is 6*7?", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.ChatID == "" {
		t.Fatalf("expected implicit chat creation")
	}
	chat, err := conv.GetChat(ctx, res.ChatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if len(chat.Messages) != 2 {
		t.Fatalf("expected user and bot messages, got %d", len(chat.Messages))
	}
	if chat.Messages[0].Sender != models.SenderUser || chat.Messages[1].Sender != models.SenderBot {
		t.Fatalf("messages out of order: %+v", chat.Messages)
	}
	if chat.Messages[1].Text != "the answer" {
		t.Fatalf("unexpected bot text %q", chat.Messages[1].Text)
	}
	if chat.Mode != models.ModeAptitude || chat.Model != models.ModelGemini {
		t.Fatalf("implicit chat defaults wrong: %s/%s", chat.Mode, chat.Model)
	}
}

func TestSendMessageDerivesTitleFromFirstMessage(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "ok"}}
	orch, conv, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	long := strings.Repeat("x", 40)
	res, err := orch.SendMessage(ctx, "", long, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.TitleUpdated {
		t.Fatalf("first message should retitle the chat")
	}
	want := strings.Repeat("x", 30) + "..."
	if res.Title != want {
		t.Fatalf("unexpected title %q", res.Title)
	}

	// A second send must not retitle.
	res2, err := orch.SendMessage(ctx, res.ChatID, "followup", nil)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if res2.TitleUpdated {
		t.Fatalf("existing title overwritten")
	}
	chat, err := conv.GetChat(ctx, res.ChatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chat.Title != want {
		t.Fatalf("title changed to %q", chat.Title)
	}
}

func TestSendMessageWithFilesCreatesDocumentChat(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "summary"}}
	orch, conv, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("some notes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	fileID, err := conv.RecordTempFile(ctx, "", "notes.txt", path, "text/plain", 10, time.Hour)
	if err != nil {
		t.Fatalf("record file: %v", err)
	}

	res, err := orch.SendMessage(ctx, "", "", []int64{fileID})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Title != "Analysis of 1 file(s)" {
		t.Fatalf("unexpected title %q", res.Title)
	}
	chat, err := conv.GetChat(ctx, res.ChatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chat.Mode != models.ModeDocument {
		t.Fatalf("file send should default to document mode, got %s", chat.Mode)
	}
}

func TestSendMessageConvertsFailureToErrorEntry(t *testing.T) {
	gen := &fakeGenerator{err: &ai.CredentialError{Provider: models.ModelGemini}}
	orch, conv, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	res, err := orch.SendMessage(ctx, "", "hello", nil)
	if err != nil {
		t.Fatalf("pipeline failures must settle, got %v", err)
	}
	if !res.BotMessage.IsError {
		t.Fatalf("expected error entry, got %+v", res.BotMessage)
	}
	if !strings.Contains(res.BotMessage.Text, "GEMINI_API_KEY") {
		t.Fatalf("unexpected error text %q", res.BotMessage.Text)
	}
	chat, err := conv.GetChat(ctx, res.ChatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if len(chat.Messages) != 2 || !chat.Messages[1].IsError {
		t.Fatalf("error entry not persisted: %+v", chat.Messages)
	}
}

func TestSendMessageValidationSkipsProvider(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "never"}}
	orch, conv, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	chat, err := conv.CreateChat(ctx, "t", models.ModeImage, models.ModelOpenAI)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	res, err := orch.SendMessage(ctx, chat.ID, "a cat", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.BotMessage.IsError {
		t.Fatalf("expected validation error entry, got %+v", res.BotMessage)
	}
	if !strings.Contains(res.BotMessage.Text, "only available with the Gemini model") {
		t.Fatalf("unexpected error text %q", res.BotMessage.Text)
	}
	if gen.calls != 0 {
		t.Fatalf("provider invoked despite validation failure")
	}
}

func TestSendMessageRejectsConcurrentSends(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{
		result: &ai.BotResult{Text: "slow answer"},
		hook: func() {
			close(started)
			<-release
		},
	}
	orch, _, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := orch.SendMessage(ctx, "", "first", nil)
		done <- err
	}()
	<-started

	if _, err := orch.SendMessage(ctx, "", "second", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if orch.Phase() == PhaseIdle {
		t.Fatalf("phase should not be idle while a send is in flight")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if orch.Phase() != PhaseIdle {
		t.Fatalf("orchestrator did not return to idle")
	}

	// The gate is open again.
	gen.hook = nil
	if _, err := orch.SendMessage(ctx, "", "third", nil); err != nil {
		t.Fatalf("send after settle: %v", err)
	}
}

func TestSendMessageDropsResponseForDeletedChat(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "too late"}}
	orch, conv, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	chat, err := conv.CreateChat(ctx, "doomed", models.ModeAptitude, models.ModelGemini)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	gen.hook = func() {
		if err := conv.DeleteChat(ctx, chat.ID); err != nil {
			t.Errorf("delete chat: %v", err)
		}
	}

	_, err = orch.SendMessage(ctx, chat.ID, "hello", nil)
	if !errors.Is(err, conversation.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if orch.Phase() != PhaseIdle {
		t.Fatalf("orchestrator stuck after dropped response")
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "ok"}}
	orch, _, db := newTestOrchestrator(t, gen)
	defer db.Close()

	_, err := orch.SendMessage(context.Background(), "no-such-chat", "hello", nil)
	if !errors.Is(err, conversation.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called for missing chat")
	}
}

func TestSendMessageSpeaksOnlyWhenEnabled(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "spoken answer"}}
	orch, _, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	speaker := &fakeSpeaker{}
	orch.speaker = speaker
	if _, err := orch.SendMessage(ctx, "", "quiet", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	speaker.mu.Lock()
	spoken := len(speaker.spoken)
	stops := speaker.stops
	speaker.mu.Unlock()
	if spoken != 0 {
		t.Fatalf("spoke while voice output disabled")
	}
	if stops == 0 {
		t.Fatalf("send must stop in-progress speech")
	}
}

func TestSendMessageRecordsLastChat(t *testing.T) {
	gen := &fakeGenerator{result: &ai.BotResult{Text: "ok"}}
	orch, _, db := newTestOrchestrator(t, gen)
	defer db.Close()
	ctx := context.Background()

	res, err := orch.SendMessage(ctx, "", "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := orch.prefs.LastChatID(ctx); got != res.ChatID {
		t.Fatalf("last chat id not recorded: %q", got)
	}
}
