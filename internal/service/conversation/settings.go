package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"varshgpt/internal/models"
)

// LoadSettings returns the saved AppSettings, or the zero value when none
// have been saved yet.
func (s *Service) LoadSettings(ctx context.Context) (*models.AppSettings, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM settings WHERE id = 1`).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AppSettings{}, nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	plain, err := s.cipher.open(blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt settings: %w", err)
	}
	var settings models.AppSettings
	if err := json.Unmarshal([]byte(plain), &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings replaces the stored AppSettings blob.
func (s *Service) SaveSettings(ctx context.Context, settings *models.AppSettings) error {
	if settings == nil {
		return errors.New("settings required")
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	blob, err := s.cipher.seal(string(encoded))
	if err != nil {
		return fmt.Errorf("encrypt settings: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE settings SET payload = ?, updated_at = ? WHERE id = 1`, blob, now,
	)
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (id, payload, updated_at) VALUES (1, ?, ?)`, blob, now,
	)
	if err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}
