// File path: internal/sqlite/history.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// HistoryStore persists chat sessions in the warehouse database file.
type HistoryStore struct {
	store *Store
}

var _ history.Store = (*HistoryStore)(nil)

// History returns the chat history view of the store. Closing it leaves the
// warehouse open.
func (s *Store) History() *HistoryStore {
	return &HistoryStore{store: s}
}

func (h *HistoryStore) CreateOrUpdateSession(ctx context.Context, id, firstQuestion string) error {
	if err := h.store.ensureReady(); err != nil {
		return err
	}
	now := time.Now().UTC().UnixNano()
	_, err := h.store.db.ExecContext(ctx, `INSERT INTO chat_sessions(id, title, message_count, created_at, updated_at)
                VALUES(?, ?, 0, ?, ?)
                ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, history.Title(firstQuestion), now, now)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", id, err)
	}
	return nil
}

func (h *HistoryStore) SaveMessage(ctx context.Context, id string, msg model.Message) error {
	if err := h.store.ensureReady(); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	var table any
	if msg.Rows != nil {
		encoded, err := json.Marshal(msg.Rows)
		if err != nil {
			return fmt.Errorf("encode rows: %w", err)
		}
		table = string(encoded)
	}
	return withTx(ctx, h.store.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET message_count = message_count + 1, updated_at = ? WHERE id = ?`,
			time.Now().UTC().UnixNano(), id)
		if err != nil {
			return fmt.Errorf("touch session %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", history.ErrSessionNotFound, id)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_messages(session_id, role, content, sql_query, table_json, refined_question, created_at)
                        VALUES(?, ?, ?, ?, ?, ?, ?)`,
			id, string(msg.Role), msg.Content, nullIfEmpty(msg.SQL), table, nullIfEmpty(msg.RefinedQuestion), msg.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

func (h *HistoryStore) Sessions(ctx context.Context, since time.Time) ([]history.Session, error) {
	if err := h.store.ensureReady(); err != nil {
		return nil, err
	}
	var cutoff int64
	if !since.IsZero() {
		cutoff = since.UTC().UnixNano()
	}
	rows := []sessionRow{}
	if err := h.store.db.SelectContext(ctx, &rows,
		`SELECT id, title, message_count, created_at, updated_at FROM chat_sessions WHERE updated_at >= ? ORDER BY updated_at DESC`, cutoff); err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	sessions := make([]history.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, history.Session{
			ID:           row.ID,
			Title:        row.Title,
			MessageCount: row.MessageCount,
			CreatedAt:    time.Unix(0, row.CreatedAt).UTC(),
			UpdatedAt:    time.Unix(0, row.UpdatedAt).UTC(),
		})
	}
	return sessions, nil
}

func (h *HistoryStore) Messages(ctx context.Context, id string) ([]model.Message, error) {
	if err := h.requireSession(ctx, id); err != nil {
		return nil, err
	}
	rows := []messageRow{}
	if err := h.store.db.SelectContext(ctx, &rows,
		`SELECT role, content, sql_query, table_json, refined_question, created_at FROM chat_messages WHERE session_id = ? ORDER BY id`, id); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	messages := make([]model.Message, 0, len(rows))
	for _, row := range rows {
		msg := model.Message{
			Role:      model.Role(row.Role),
			Content:   row.Content,
			Timestamp: time.Unix(0, row.CreatedAt).UTC(),
		}
		if row.SQL != nil {
			msg.SQL = *row.SQL
		}
		if row.RefinedQuestion != nil {
			msg.RefinedQuestion = *row.RefinedQuestion
		}
		if row.TableJSON != nil {
			if err := json.Unmarshal([]byte(*row.TableJSON), &msg.Rows); err != nil {
				return nil, fmt.Errorf("decode rows: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (h *HistoryStore) UpdateTitle(ctx context.Context, id, title string) error {
	if err := h.store.ensureReady(); err != nil {
		return err
	}
	res, err := h.store.db.ExecContext(ctx, `UPDATE chat_sessions SET title = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(title), time.Now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("update title %s: %w", id, err)
	}
	return expectAffected(res, id)
}

func (h *HistoryStore) DeleteSession(ctx context.Context, id string) error {
	if err := h.store.ensureReady(); err != nil {
		return err
	}
	return withTx(ctx, h.store.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("delete messages %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
		return expectAffected(res, id)
	})
}

// Close is a no-op; the warehouse owns the connection pool.
func (h *HistoryStore) Close() error {
	return nil
}

func (h *HistoryStore) requireSession(ctx context.Context, id string) error {
	if err := h.store.ensureReady(); err != nil {
		return err
	}
	var found string
	err := h.store.db.GetContext(ctx, &found, `SELECT id FROM chat_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", history.ErrSessionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("lookup session %s: %w", id, err)
	}
	return nil
}

func expectAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", history.ErrSessionNotFound, id)
	}
	return nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
