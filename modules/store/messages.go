package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/redis/go-redis/v9"
)

// updateScript sets fields on a message hash only if it still exists, so a
// record that expires or is cleared mid-update is never recreated without an expiry.
var updateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("HSET", KEYS[1], unpack(ARGV))
	return 1
end
return 0
`)

// MessageStore keeps a bounded, ordered history of messages per room.
//
// Each message is a hash at message:{room}:{id} with its own expiry. The list
// messages:{room} holds ids oldest first and is trimmed to the newest
// historyLimit entries; trimming only drops list membership, so a trimmed
// message stays readable by key until its hash expires.
type MessageStore struct {
	client       redis.Cmdable
	historyLimit int
	ttl          time.Duration
}

// NewMessageStore creates a MessageStore.
func NewMessageStore(client redis.Cmdable, historyLimit int, ttl time.Duration) *MessageStore {
	return &MessageStore{
		client:       client,
		historyLimit: historyLimit,
		ttl:          ttl,
	}
}

// HistoryLimit returns the number of ids retained per room.
func (s *MessageStore) HistoryLimit() int {
	return s.historyLimit
}

// Append stores the message and pushes its id onto the room history.
func (s *MessageStore) Append(ctx context.Context, m *domain.Message) error {
	key := domain.MessageKey(m.RoomID, m.ID)
	listKey := domain.MessageListKey(m.RoomID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, m.ToHash())
		pipe.Expire(ctx, key, s.ttl)
		pipe.RPush(ctx, listKey, m.ID)
		pipe.LTrim(ctx, listKey, int64(-s.historyLimit), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append message %s: %w", m.ID, err)
	}
	return nil
}

// GetRange returns up to limit messages starting skip positions from the
// oldest retained entry. Ids whose record is gone or unreadable are skipped.
func (s *MessageStore) GetRange(ctx context.Context, roomID string, skip, limit int) ([]*domain.Message, error) {
	if limit <= 0 || skip < 0 {
		return []*domain.Message{}, nil
	}

	ids, err := s.client.LRange(ctx, domain.MessageListKey(roomID), int64(skip), int64(skip+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history ids: %w", err)
	}
	return s.resolve(ctx, roomID, ids)
}

func (s *MessageStore) resolve(ctx context.Context, roomID string, ids []string) ([]*domain.Message, error) {
	messages := make([]*domain.Message, 0, len(ids))
	if len(ids) == 0 {
		return messages, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, domain.MessageKey(roomID, id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read history records: %w", err)
	}

	for _, cmd := range cmds {
		h, err := cmd.Result()
		if err != nil || len(h) == 0 {
			continue
		}
		m, err := domain.MessageFromHash(h)
		if err != nil {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Get returns a single message by id, including messages trimmed from the history list.
func (s *MessageStore) Get(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	h, err := s.client.HGetAll(ctx, domain.MessageKey(roomID, messageID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	m, err := domain.MessageFromHash(h)
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}
	return m, nil
}

// Edit replaces the content of a stored message and stamps edited_at.
// The record keeps its original expiry.
func (s *MessageStore) Edit(ctx context.Context, roomID, messageID, content string, at time.Time) (*domain.Message, error) {
	m, err := s.Get(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, roomID, messageID,
		"content", content,
		"edited_at", domain.FormatTimestamp(at),
	); err != nil {
		return nil, fmt.Errorf("edit message %s: %w", messageID, err)
	}
	m.Content = content
	m.EditedAt = &at
	return m, nil
}

// SoftDelete marks a stored message as deleted without removing it.
func (s *MessageStore) SoftDelete(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	m, err := s.Get(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, roomID, messageID, "is_deleted", domain.FormatBool(true)); err != nil {
		return nil, fmt.Errorf("delete message %s: %w", messageID, err)
	}
	m.Deleted = true
	return m, nil
}

// update sets field/value pairs on an existing message record. It returns
// ErrNotFound if the record is gone.
func (s *MessageStore) update(ctx context.Context, roomID, messageID string, fieldValues ...any) error {
	n, err := updateScript.Run(ctx, s.client, []string{domain.MessageKey(roomID, messageID)}, fieldValues...).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of ids in the room history.
func (s *MessageStore) Count(ctx context.Context, roomID string) (int64, error) {
	n, err := s.client.LLen(ctx, domain.MessageListKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Clear deletes every message record referenced by the room history and then
// the history list. It returns how many records were actually deleted; ids
// whose record already expired are not counted.
func (s *MessageStore) Clear(ctx context.Context, roomID string) (int, error) {
	listKey := domain.MessageListKey(roomID)

	ids, err := s.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("read history ids: %w", err)
	}

	deleted := 0
	if len(ids) > 0 {
		cmds := make([]*redis.IntCmd, len(ids))
		_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.Del(ctx, domain.MessageKey(roomID, id))
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("delete message records: %w", err)
		}
		for _, cmd := range cmds {
			if cmd.Val() == 1 {
				deleted++
			}
		}
	}

	if err := s.client.Del(ctx, listKey).Err(); err != nil {
		return deleted, fmt.Errorf("delete history list: %w", err)
	}
	return deleted, nil
}
