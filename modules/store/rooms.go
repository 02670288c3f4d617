package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// createRoomScript writes the room hash only when no record exists yet.
var createRoomScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`)

// RoomStore reads and creates room records.
type RoomStore struct {
	client   redis.Cmdable
	maxUsers int
	group    singleflight.Group
	now      func() time.Time
}

// NewRoomStore creates a RoomStore. maxUsers is applied to lazily created rooms.
func NewRoomStore(client redis.Cmdable, maxUsers int) *RoomStore {
	return &RoomStore{
		client:   client,
		maxUsers: maxUsers,
		now:      time.Now,
	}
}

// Get returns the stored room or ErrNotFound.
func (s *RoomStore) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	h, err := s.client.HGetAll(ctx, domain.RoomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	room, err := domain.RoomFromHash(h)
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return room, nil
}

// GetOrCreate returns the stored room, creating a default one on first access.
// Concurrent callers for the same room share a single lookup.
func (s *RoomStore) GetOrCreate(ctx context.Context, roomID string) (*domain.Room, error) {
	v, err, _ := s.group.Do(roomID, func() (any, error) {
		// The result is shared with every waiting caller, so it must not
		// depend on whether the first caller gives up.
		ctx := context.WithoutCancel(ctx)

		room, err := s.Get(ctx, roomID)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		room = &domain.Room{
			ID:        roomID,
			Name:      domain.DefaultRoomName(roomID),
			CreatedAt: s.now().UTC().Truncate(time.Microsecond),
			CreatedBy: roomID,
			Active:    true,
			MaxUsers:  s.maxUsers,
		}
		created, err := s.create(ctx, room)
		if err != nil {
			return nil, err
		}
		if !created {
			// Another process created it between our read and write.
			return s.Get(ctx, roomID)
		}
		return room, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Room), nil
}

// Create stores a new room. It returns ErrRoomExists if the room is already stored.
func (s *RoomStore) Create(ctx context.Context, room *domain.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	}
	if room.MaxUsers == 0 {
		room.MaxUsers = s.maxUsers
	}
	created, err := s.create(ctx, room)
	if err != nil {
		return err
	}
	if !created {
		return ErrRoomExists
	}
	return nil
}

func (s *RoomStore) create(ctx context.Context, room *domain.Room) (bool, error) {
	h := room.ToHash()
	args := make([]any, 0, len(h)*2)
	for k, v := range h {
		args = append(args, k, v)
	}
	n, err := createRoomScript.Run(ctx, s.client, []string{domain.RoomKey(room.ID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("create room %s: %w", room.ID, err)
	}
	return n == 1, nil
}

// List returns every stored room ordered by id.
func (s *RoomStore) List(ctx context.Context) ([]*domain.Room, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, domain.RoomKeyPattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan rooms: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	rooms := make([]*domain.Room, 0, len(keys))
	for _, key := range keys {
		h, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("read room %s: %w", key, err)
		}
		room, err := domain.RoomFromHash(h)
		if err != nil {
			continue
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}
