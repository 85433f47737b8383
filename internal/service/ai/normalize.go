package ai

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"varshgpt/internal/models"
)

// ResultMessage maps an adapter's result into the canonical bot message.
func ResultMessage(chatID string, res *BotResult) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Text:      res.Text,
		Sender:    models.SenderBot,
		Timestamp: time.Now().UTC(),
		ImageURL:  res.ImageURL,
		Sources:   res.Sources,
	}
}

// ErrorMessage converts a pipeline failure into an error entry appended to
// the chat exactly like a reply would be, annotated with remediation hints
// when the text matches known failure patterns.
func ErrorMessage(chatID string, err error) models.Message {
	text := err.Error()
	if hints := remediationHints(text); len(hints) > 0 {
		text = text + "\n\n" + strings.Join(hints, "\n")
	}
	return models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Text:      text,
		Sender:    models.SenderBot,
		Timestamp: time.Now().UTC(),
		IsError:   true,
	}
}

func remediationHints(text string) []string {
	var hints []string
	lower := strings.ToLower(text)

	if strings.Contains(lower, "openai") && (strings.Contains(lower, "quota") || strings.Contains(lower, "billing")) {
		hints = append(hints, "Check OpenAI billing: https://platform.openai.com/account/billing/overview")
	}
	if strings.Contains(lower, "deepseek") && (strings.Contains(lower, "balance") || strings.Contains(lower, "insufficient")) {
		hints = append(hints, "Check DeepSeek account: https://platform.deepseek.com/usage")
	}
	if strings.Contains(lower, "api key") {
		hints = append(hints, "Verify your API keys in Settings.")
	}
	return hints
}
