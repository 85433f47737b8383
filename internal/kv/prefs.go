package kv

import (
	"context"
	"errors"
	"log"
)

const (
	keyTheme      = "varshgpt:theme"
	keyTTSEnabled = "varshgpt:tts-enabled"
	keyLastChatID = "varshgpt:last-chat-id"
)

// Preferences wraps a Store with typed accessors for the client's
// persisted UI preferences. Read failures fall back to defaults; the
// client must never fail to start because a preference could not load.
type Preferences struct {
	store Store
}

func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store}
}

// Theme returns "light" or "dark", defaulting to dark.
func (p *Preferences) Theme(ctx context.Context) string {
	val, err := p.store.Get(ctx, keyTheme)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("load theme preference: %v", err)
		}
		return "dark"
	}
	if val != "light" && val != "dark" {
		return "dark"
	}
	return val
}

func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	return p.store.Set(ctx, keyTheme, theme)
}

// TTSEnabled reports whether spoken replies are on. Defaults to off.
func (p *Preferences) TTSEnabled(ctx context.Context) bool {
	val, err := p.store.Get(ctx, keyTTSEnabled)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("load tts preference: %v", err)
		}
		return false
	}
	return val == "true"
}

func (p *Preferences) SetTTSEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		return p.store.Set(ctx, keyTTSEnabled, "true")
	}
	return p.store.Set(ctx, keyTTSEnabled, "false")
}

// LastChatID returns the id of the chat that was active when the client
// last ran, or empty when none was recorded.
func (p *Preferences) LastChatID(ctx context.Context) string {
	val, err := p.store.Get(ctx, keyLastChatID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("load last chat preference: %v", err)
		}
		return ""
	}
	return val
}

func (p *Preferences) SetLastChatID(ctx context.Context, id string) error {
	if id == "" {
		return p.store.Remove(ctx, keyLastChatID)
	}
	return p.store.Set(ctx, keyLastChatID, id)
}
