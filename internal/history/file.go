// File path: internal/history/file.go
package history

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// FileStore keeps one JSON header and one JSONL message log per session
// under a directory.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history dir required")
	}
	root := determineRoot(path)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &FileStore{path: root}, nil
}

// Root returns the directory used for persistence.
func (s *FileStore) Root() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *FileStore) CreateOrUpdateSession(ctx context.Context, id, firstQuestion string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	session, err := s.readSession(id)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		session = Session{ID: id, Title: Title(firstQuestion), CreatedAt: now}
	case err != nil:
		return err
	}
	session.UpdatedAt = now
	return s.writeSession(session)
}

func (s *FileStore) SaveMessage(ctx context.Context, id string, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.readSession(id)
	if err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	logPath, err := s.sessionFile(id, ".jsonl")
	if err != nil {
		return err
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	if err := json.NewEncoder(file).Encode(msg); err != nil {
		file.Close()
		return fmt.Errorf("encode message: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close message log: %w", err)
	}
	session.MessageCount++
	session.UpdatedAt = time.Now().UTC()
	return s.writeSession(session)
}

func (s *FileStore) Sessions(ctx context.Context, since time.Time) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("read history dir: %w", err)
	}
	sessions := make([]Session, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		id, ok := decodeSessionFile(entry.Name(), ".json")
		if !ok {
			continue
		}
		session, err := s.readSession(id)
		if err != nil {
			return nil, err
		}
		if !since.IsZero() && session.UpdatedAt.Before(since) {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *FileStore) Messages(ctx context.Context, id string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.readSession(id); err != nil {
		return nil, err
	}
	logPath, err := s.sessionFile(id, ".jsonl")
	if err != nil {
		return nil, err
	}
	file, err := os.Open(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Message{}, nil
		}
		return nil, fmt.Errorf("open message log: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), 8<<20)
	messages := []model.Message{}
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg model.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return messages, nil
}

func (s *FileStore) UpdateTitle(ctx context.Context, id, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.readSession(id)
	if err != nil {
		return err
	}
	session.Title = strings.TrimSpace(title)
	session.UpdatedAt = time.Now().UTC()
	return s.writeSession(session)
}

func (s *FileStore) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.readSession(id); err != nil {
		return err
	}
	for _, ext := range []string{".json", ".jsonl"} {
		path, err := s.sessionFile(id, ext)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) readSession(id string) (Session, error) {
	path, err := s.sessionFile(id, ".json")
	if err != nil {
		return Session{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return session, nil
}

func (s *FileStore) writeSession(session Session) error {
	path, err := s.sessionFile(session.ID, ".json")
	if err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (s *FileStore) sessionFile(id, ext string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("session id required")
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(trimmed))
	return filepath.Join(s.path, "session_"+encoded+ext), nil
}

func decodeSessionFile(name, ext string) (string, bool) {
	if !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(name, "session_"), ext)
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func determineRoot(path string) string {
	trimmed := strings.TrimSpace(path)
	info, err := os.Stat(trimmed)
	if err == nil {
		if info.IsDir() {
			return trimmed
		}
		return filepath.Dir(trimmed)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return filepath.Dir(trimmed)
	}
	// A missing path with an extension names a file; keep its directory.
	if filepath.Ext(trimmed) != "" {
		return filepath.Dir(trimmed)
	}
	return trimmed
}
