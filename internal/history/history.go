// File path: internal/history/history.go
package history

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// ErrSessionNotFound is returned when a session id has never been recorded
// or was deleted.
var ErrSessionNotFound = errors.New("history: session not found")

const (
	maxTitleRunes = 50
	titleKeep     = 47
)

// Session summarises one persisted conversation.
type Session struct {
	ID           string    `json:"session_id" db:"id"`
	Title        string    `json:"title" db:"title"`
	CreatedAt    time.Time `json:"created_at" db:"-"`
	UpdatedAt    time.Time `json:"updated_at" db:"-"`
	MessageCount int       `json:"message_count" db:"message_count"`
}

// Recorder is the write side the pipeline mirrors conversations into.
type Recorder interface {
	CreateOrUpdateSession(ctx context.Context, id, firstQuestion string) error
	SaveMessage(ctx context.Context, id string, msg model.Message) error
}

// Store is a full history backend: the recorder plus the read and
// maintenance operations served over the API.
type Store interface {
	Recorder
	Sessions(ctx context.Context, since time.Time) ([]Session, error)
	Messages(ctx context.Context, id string) ([]model.Message, error)
	UpdateTitle(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error
	Close() error
}

// Title derives a session title from the first question of a conversation.
func Title(question string) string {
	title := strings.TrimSpace(question)
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return string(runes[:titleKeep]) + "..."
}
