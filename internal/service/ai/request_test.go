package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"varshgpt/internal/models"
)

func userMsg(text string) models.Message {
	return models.Message{ID: "u1", Text: text, Sender: models.SenderUser, Timestamp: time.Now()}
}

func botMsg(text string) models.Message {
	return models.Message{ID: "b1", Text: text, Sender: models.SenderBot, Timestamp: time.Now()}
}

func tempFile(t *testing.T, name, content string) *models.TempFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return &models.TempFile{
		ID:         1,
		FileName:   name,
		StoredPath: path,
		MimeType:   "text/plain",
		Size:       int64(len(content)),
	}
}

func TestBuildRejectsImageModeForNonGemini(t *testing.T) {
	_, err := Build(context.Background(), models.ModeImage, models.ModelOpenAI, []models.Message{userMsg("a cat")}, nil, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := "Image generation is only available with the Gemini model."
	if verr.Error() != want {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestBuildRejectsAttachmentsInImageMode(t *testing.T) {
	files := []*models.TempFile{tempFile(t, "a.txt", "hi")}
	_, err := Build(context.Background(), models.ModeImage, models.ModelGemini, []models.Message{userMsg("a cat")}, files, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBuildRejectsAttachmentsForRESTProviders(t *testing.T) {
	files := []*models.TempFile{tempFile(t, "a.txt", "hi")}
	for _, model := range []models.Model{models.ModelOpenAI, models.ModelDeepSeek} {
		_, err := Build(context.Background(), models.ModeDocument, model, []models.Message{userMsg("summarize")}, files, nil)
		var uerr *UnsupportedFeatureError
		if !errors.As(err, &uerr) {
			t.Fatalf("%s: expected UnsupportedFeatureError, got %v", model, err)
		}
		want := "File uploads are not supported with the " + string(model) + " model in this app."
		if uerr.Error() != want {
			t.Fatalf("%s: unexpected message %q", model, uerr.Error())
		}
	}
}

func TestBuildRejectsAttachmentsOutsideFileModes(t *testing.T) {
	files := []*models.TempFile{tempFile(t, "a.txt", "hi")}
	_, err := Build(context.Background(), models.ModeSearch, models.ModelGemini, []models.Message{userMsg("look up")}, files, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBuildRequiresTrailingUserMessage(t *testing.T) {
	cases := [][]models.Message{
		nil,
		{userMsg("hi"), botMsg("hello")},
	}
	for i, history := range cases {
		_, err := Build(context.Background(), models.ModeAptitude, models.ModelGemini, history, nil, nil)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestBuildSplitsTranscriptAndMapsRoles(t *testing.T) {
	history := []models.Message{userMsg("first"), botMsg("reply"), userMsg("second")}

	req, err := Build(context.Background(), models.ModeAptitude, models.ModelGemini, history, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(req.Transcript) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(req.Transcript))
	}
	if req.Transcript[0].Role != "user" || req.Transcript[1].Role != "model" {
		t.Fatalf("unexpected gemini roles %q, %q", req.Transcript[0].Role, req.Transcript[1].Role)
	}
	if req.Turn.Text != "second" {
		t.Fatalf("expected current turn text %q, got %q", "second", req.Turn.Text)
	}
	if req.Grounding {
		t.Fatalf("grounding should be off outside search mode")
	}

	req, err = Build(context.Background(), models.ModeAptitude, models.ModelOpenAI, history, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Transcript[1].Role != "assistant" {
		t.Fatalf("expected assistant role for openai, got %q", req.Transcript[1].Role)
	}
}

func TestBuildEnablesGroundingForSearchMode(t *testing.T) {
	req, err := Build(context.Background(), models.ModeSearch, models.ModelGemini, []models.Message{userMsg("latest news")}, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !req.Grounding {
		t.Fatalf("search mode must enable grounding")
	}
}

func TestBuildEncodesAttachments(t *testing.T) {
	files := []*models.TempFile{
		tempFile(t, "one.txt", "alpha"),
		tempFile(t, "two.txt", "beta"),
	}
	req, err := Build(context.Background(), models.ModeDocument, models.ModelGemini, []models.Message{userMsg("summarize")}, files, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(req.Turn.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(req.Turn.Attachments))
	}
	want := base64.StdEncoding.EncodeToString([]byte("alpha"))
	if req.Turn.Attachments[0].Data != want {
		t.Fatalf("unexpected encoded data %q", req.Turn.Attachments[0].Data)
	}
	if req.Turn.Attachments[1].Name != "two.txt" || req.Turn.Attachments[1].MimeType != "text/plain" {
		t.Fatalf("attachment metadata lost: %+v", req.Turn.Attachments[1])
	}
}

func TestBuildFailsWhenAttachmentUnreadable(t *testing.T) {
	files := []*models.TempFile{
		tempFile(t, "ok.txt", "fine"),
		{ID: 2, FileName: "gone.txt", StoredPath: filepath.Join(t.TempDir(), "missing"), MimeType: "text/plain"},
	}
	_, err := Build(context.Background(), models.ModeDocument, models.ModelGemini, []models.Message{userMsg("summarize")}, files, nil)
	var aerr *AttachmentError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AttachmentError, got %v", err)
	}
	if aerr.Name != "gone.txt" {
		t.Fatalf("expected failing file name, got %q", aerr.Name)
	}
}
