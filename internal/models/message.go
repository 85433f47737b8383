package models

import "time"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Source is a citation attached to a search-grounded reply.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is a single conversation entry. Messages are immutable once
// appended; failures are stored as regular entries with IsError set.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
}
