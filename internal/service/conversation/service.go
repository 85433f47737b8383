// Package conversation persists chats and their append-only message logs.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"varshgpt/internal/models"
)

// ErrChatNotFound indicates the target chat does not exist (any more).
var ErrChatNotFound = errors.New("chat not found")

// Service handles chat lifecycle and message persistence.
type Service struct {
	db     *sql.DB
	cipher *settingsCipher
}

// NewService builds a conversation service over an opened database. The
// settings cipher is keyed from the environment; without a key, settings
// are stored in the clear and a warning is logged once.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, cipher: newSettingsCipher()}
}

// CreateChat inserts an empty chat with the given defaults and returns it.
func (s *Service) CreateChat(ctx context.Context, title string, mode models.Mode, model models.Model) (*models.Chat, error) {
	chat := &models.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []models.Message{},
		Mode:      mode,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, mode, model, created_at) VALUES (?, ?, ?, ?, ?)`,
		chat.ID, chat.Title, string(chat.Mode), string(chat.Model), chat.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

// ListChats returns all chats, newest first, without their messages.
func (s *Service) ListChats(ctx context.Context) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, mode, model, created_at FROM chats ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	for rows.Next() {
		var c models.Chat
		var mode, model string
		if err := rows.Scan(&c.ID, &c.Title, &mode, &model, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.Mode = models.Mode(mode)
		c.Model = models.Model(model)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns one chat with its messages in insertion order.
func (s *Service) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	var mode, model string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, mode, model, created_at FROM chats WHERE id = ?`, id,
	).Scan(&chat.ID, &chat.Title, &mode, &model, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	chat.Mode = models.Mode(mode)
	chat.Model = models.Model(model)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, content, is_error, image_url, sources, created_at
		 FROM messages WHERE chat_id = ? ORDER BY seq ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	chat.Messages = make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		var sender, sources string
		var isError int
		if err := rows.Scan(&m.ID, &m.ChatID, &sender, &m.Text, &isError, &m.ImageURL, &sources, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = models.Sender(sender)
		m.IsError = isError != 0
		if sources != "" {
			if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
				return nil, fmt.Errorf("decode sources: %w", err)
			}
		}
		chat.Messages = append(chat.Messages, m)
	}
	return &chat, rows.Err()
}

// AppendMessage stores a message at the end of the chat's log. The chat
// must still exist; callers use ErrChatNotFound to decide whether a late
// reply should be discarded.
func (s *Service) AppendMessage(ctx context.Context, msg models.Message) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM chats WHERE id = ?)`, msg.ChatID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("verify chat: %w", err)
	}
	if !exists {
		return ErrChatNotFound
	}

	var sources string
	if len(msg.Sources) > 0 {
		encoded, err := json.Marshal(msg.Sources)
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}
		sources = string(encoded)
	}
	isError := 0
	if msg.IsError {
		isError = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender, content, is_error, image_url, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, string(msg.Sender), msg.Text, isError, msg.ImageURL, sources, msg.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// UpdateTitle sets a chat's title.
func (s *Service) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chats SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("update chat title: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// UpdateModeModel changes the mode and model used for future sends.
func (s *Service) UpdateModeModel(ctx context.Context, id string, mode models.Mode, model models.Model) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET mode = ?, model = ? WHERE id = ?`,
		string(mode), string(model), id,
	)
	if err != nil {
		return fmt.Errorf("update chat settings: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes a chat and all of its messages.
func (s *Service) DeleteChat(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("chat rows affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return ErrChatNotFound
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete chat: %w", err)
	}
	return nil
}

// ClearChats removes every chat and message.
func (s *Service) ClearChats(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return fmt.Errorf("clear chats: %w", err)
	}
	return nil
}
