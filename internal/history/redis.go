// File path: internal/history/redis.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
)

// RedisStore keeps each session as a hash, its messages as a list of JSON
// documents and a sorted set of session ids scored by last update.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the configured Redis server and verifies it answers.
func NewRedis(ctx context.Context, cfg Config) (*RedisStore, error) {
	cfg.applyDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	common.Logger().Info("history: redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return NewRedisWithClient(client, cfg.RedisKeyPrefix), nil
}

func NewRedisWithClient(client *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "insight"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisStore) messagesKey(id string) string {
	return s.prefix + ":session:" + id + ":messages"
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":sessions"
}

func (s *RedisStore) CreateOrUpdateSession(ctx context.Context, id, firstQuestion string) error {
	now := time.Now().UTC()
	stamp := strconv.FormatInt(now.UnixNano(), 10)
	key := s.sessionKey(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "title", Title(firstQuestion))
		pipe.HSetNX(ctx, key, "created_at", stamp)
		pipe.HSetNX(ctx, key, "message_count", 0)
		pipe.HSet(ctx, key, "updated_at", stamp)
		pipe.ZAdd(ctx, s.indexKey(), &redis.Z{Score: float64(now.UnixNano()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) SaveMessage(ctx context.Context, id string, msg model.Message) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	now := time.Now().UTC()
	key := s.sessionKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.messagesKey(id), payload)
		pipe.HIncrBy(ctx, key, "message_count", 1)
		pipe.HSet(ctx, key, "updated_at", strconv.FormatInt(now.UnixNano(), 10))
		pipe.ZAdd(ctx, s.indexKey(), &redis.Z{Score: float64(now.UnixNano()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save message %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Sessions(ctx context.Context, since time.Time) ([]Session, error) {
	lower := "-inf"
	if !since.IsZero() {
		lower = strconv.FormatInt(since.UTC().UnixNano(), 10)
	}
	ids, err := s.client.ZRevRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{Min: lower, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		if len(fields) == 0 {
			continue
		}
		sessions = append(sessions, sessionFromHash(id, fields))
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *RedisStore) Messages(ctx context.Context, id string) ([]model.Message, error) {
	if err := s.requireSession(ctx, id); err != nil {
		return nil, err
	}
	raw, err := s.client.LRange(ctx, s.messagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load messages %s: %w", id, err)
	}
	messages := make([]model.Message, 0, len(raw))
	for i, item := range raw {
		var msg model.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message %d of %s: %w", i, id, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisStore) UpdateTitle(ctx context.Context, id, title string) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.sessionKey(id), "title", strings.TrimSpace(title)).Err(); err != nil {
		return fmt.Errorf("update title %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(id), s.messagesKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) requireSession(ctx context.Context, id string) error {
	n, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("lookup session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func sessionFromHash(id string, fields map[string]string) Session {
	session := Session{ID: id, Title: fields["title"]}
	session.CreatedAt = unixNano(fields["created_at"])
	session.UpdatedAt = unixNano(fields["updated_at"])
	if count, err := strconv.Atoi(fields["message_count"]); err == nil {
		session.MessageCount = count
	}
	return session
}

func unixNano(raw string) time.Time {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
