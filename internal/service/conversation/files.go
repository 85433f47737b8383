package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"varshgpt/internal/models"
)

const (
	DefaultTempFileTTL             = 24 * time.Hour
	DefaultTempFileCleanupInterval = time.Hour
)

// RecordTempFile stores the metadata for an uploaded attachment.
func (s *Service) RecordTempFile(ctx context.Context, chatID, fileName, storedPath, mimeType string, size int64, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = DefaultTempFileTTL
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO temp_files (chat_id, file_name, stored_path, mime_type, size, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chatID, fileName, storedPath, mimeType, size, now, now.Add(ttl),
	)
	if err != nil {
		return 0, fmt.Errorf("record temp file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("temp file id: %w", err)
	}
	return id, nil
}

// GetTempFilesByIDs fetches the attachments with the given ids, preserving
// the requested order. Expired files are treated as missing.
func (s *Service) GetTempFilesByIDs(ctx context.Context, ids []int64) ([]*models.TempFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[int64]*models.TempFile, len(ids))
	now := time.Now().UTC()
	for _, id := range ids {
		f := new(models.TempFile)
		err := s.db.QueryRowContext(ctx,
			`SELECT id, chat_id, file_name, stored_path, mime_type, size, created_at, expires_at
			 FROM temp_files WHERE id = ?`, id,
		).Scan(&f.ID, &f.ChatID, &f.FileName, &f.StoredPath, &f.MimeType, &f.Size, &f.CreatedAt, &f.ExpiresAt)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("file id %d not found", id)
			}
			return nil, fmt.Errorf("lookup temp file: %w", err)
		}
		if f.ExpiresAt.Before(now) {
			return nil, fmt.Errorf("file id %d has expired", id)
		}
		byID[id] = f
	}
	ordered := make([]*models.TempFile, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

// TempStorageUsage sums the bytes currently held for uploads.
func (s *Service) TempStorageUsage(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(size) FROM temp_files`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("temp storage usage: %w", err)
	}
	return total.Int64, nil
}

// StartTempFileCleaner launches the background loop that removes expired
// uploads and their on-disk blobs.
func (s *Service) StartTempFileCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTempFileCleanupInterval
	}
	go s.cleanupLoop(ctx, interval)
}

func (s *Service) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.cleanupExpiredFiles(ctx); err != nil {
				log.Printf("cleanup temp files error: %v", err)
			}
		}
	}
}

func (s *Service) cleanupExpiredFiles(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stored_path FROM temp_files WHERE expires_at < ?`, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("query expired files: %w", err)
	}
	defer rows.Close()

	type expired struct {
		id   int64
		path string
	}
	var victims []expired
	for rows.Next() {
		var v expired
		if err := rows.Scan(&v.id, &v.path); err != nil {
			return fmt.Errorf("scan expired file: %w", err)
		}
		victims = append(victims, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, v := range victims {
		if v.path != "" {
			if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
				log.Printf("remove expired upload %s: %v", v.path, err)
			}
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM temp_files WHERE id = ?`, v.id); err != nil {
			return fmt.Errorf("delete expired file: %w", err)
		}
	}
	return nil
}
