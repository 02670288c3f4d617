package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/redis/go-redis/v9"
)

// touchScript refreshes last_seen and the expiry of a presence record only if
// it still exists, so an expired record is never resurrected as a partial hash.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("HSET", KEYS[1], "last_seen", ARGV[1])
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// PresenceStore tracks which users are connected to a room.
//
// Each user has a hash at user:{room}:{user} with an expiry, and the set
// connected_users:{room} lists user ids. Set members never expire; List skips
// members whose hash is gone.
type PresenceStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewPresenceStore creates a PresenceStore.
func NewPresenceStore(client redis.Cmdable, ttl time.Duration) *PresenceStore {
	return &PresenceStore{client: client, ttl: ttl}
}

// Put upserts the presence record and its set membership.
func (s *PresenceStore) Put(ctx context.Context, p *domain.Presence) error {
	key := domain.PresenceKey(p.RoomID, p.UserID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, p.ToHash())
		pipe.SAdd(ctx, domain.ConnectedUsersKey(p.RoomID), p.UserID)
		pipe.PExpire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put presence %s/%s: %w", p.RoomID, p.UserID, err)
	}
	return nil
}

// Remove deletes the presence record and its set membership.
func (s *PresenceStore) Remove(ctx context.Context, roomID, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, domain.PresenceKey(roomID, userID))
		pipe.SRem(ctx, domain.ConnectedUsersKey(roomID), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove presence %s/%s: %w", roomID, userID, err)
	}
	return nil
}

// Touch refreshes last_seen and the expiry of an existing record.
// It reports false when the record has already expired.
func (s *PresenceStore) Touch(ctx context.Context, roomID, userID string, at time.Time) (bool, error) {
	n, err := touchScript.Run(ctx, s.client,
		[]string{domain.PresenceKey(roomID, userID)},
		domain.FormatTimestamp(at), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("touch presence %s/%s: %w", roomID, userID, err)
	}
	return n == 1, nil
}

// List returns the readable presence records for a room, ordered by user id.
func (s *PresenceStore) List(ctx context.Context, roomID string) ([]*domain.Presence, error) {
	members, err := s.client.SMembers(ctx, domain.ConnectedUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list presence members: %w", err)
	}
	sort.Strings(members)

	users := make([]*domain.Presence, 0, len(members))
	if len(members) == 0 {
		return users, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(members))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, userID := range members {
			cmds[i] = pipe.HGetAll(ctx, domain.PresenceKey(roomID, userID))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read presence records: %w", err)
	}

	for _, cmd := range cmds {
		h, err := cmd.Result()
		if err != nil || len(h) == 0 {
			continue
		}
		p, err := domain.PresenceFromHash(h)
		if err != nil {
			continue
		}
		users = append(users, p)
	}
	return users, nil
}
