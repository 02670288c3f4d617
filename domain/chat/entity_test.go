package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		maxLen  int
		want    string
		wantErr error
	}{
		{"plain", "hi", 10, "hi", nil},
		{"trimmed", "  hello \n", 10, "hello", nil},
		{"empty", "", 10, "", ErrEmptyContent},
		{"whitespace only", " \t\n ", 10, "", ErrEmptyContent},
		{"exactly max", strings.Repeat("a", 10), 10, strings.Repeat("a", 10), nil},
		{"over max", strings.Repeat("a", 11), 10, "", ErrContentTooLong},
		{"max counts characters not bytes", strings.Repeat("é", 10), 10, strings.Repeat("é", 10), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeContent(tt.raw, tt.maxLen)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMessageKind(t *testing.T) {
	for _, s := range []string{"text", "image", "file", "system"} {
		k, err := ParseMessageKind(s)
		require.NoError(t, err)
		assert.Equal(t, MessageKind(s), k)
	}

	k, err := ParseMessageKind("")
	require.NoError(t, err)
	assert.Equal(t, KindText, k)

	_, err = ParseMessageKind("video")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestValidateID(t *testing.T) {
	valid := []string{"1", "d1", "dash-42", "user_7", strings.Repeat("x", MaxIdentifierLength)}
	for _, id := range valid {
		assert.NoError(t, ValidateID(id), id)
	}

	invalid := []string{"", "a:b", "room*", strings.Repeat("x", MaxIdentifierLength+1), "café"}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateID(id), ErrInvalidIdentifier, id)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 15, 123456789, time.UTC)

	got, err := ParseTimestamp(FormatTimestamp(now))
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Truncate(time.Microsecond)), "got %v", got)

	_, err = ParseTimestamp("yesterday")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestMessageHash(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	edited := created.Add(time.Minute)
	msg := &Message{
		ID:         "m1",
		RoomID:     "d1",
		SenderID:   "u1",
		SenderName: "alice",
		Content:    "hi",
		Kind:       KindImage,
		CreatedAt:  created,
		EditedAt:   &edited,
		Deleted:    true,
		ReplyTo:    "m0",
	}

	h := msg.ToHash()
	assert.Equal(t, "1", h["is_deleted"])
	assert.Equal(t, "image", h["message_type"])

	got, err := MessageFromHash(stringify(h))
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, msg.RoomID, got.RoomID)
	assert.Equal(t, msg.SenderID, got.SenderID)
	assert.Equal(t, msg.Kind, got.Kind)
	assert.True(t, got.Deleted)
	assert.Equal(t, "m0", got.ReplyTo)
	require.NotNil(t, got.EditedAt)
	assert.True(t, got.EditedAt.Equal(edited))
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestMessageHash_OptionalFieldsOmitted(t *testing.T) {
	msg := &Message{ID: "m1", RoomID: "d1", SenderID: "u1", Content: "x", Kind: KindText, CreatedAt: time.Now()}
	h := msg.ToHash()

	assert.NotContains(t, h, "edited_at")
	assert.NotContains(t, h, "reply_to")
	assert.Equal(t, "0", h["is_deleted"])
}

func TestMessageFromHash_Malformed(t *testing.T) {
	base := map[string]string{
		"id": "m1", "dashboard_id": "d1", "user_id": "u1", "username": "a",
		"content": "hi", "message_type": "text", "timestamp": "1700000000.5", "is_deleted": "0",
	}

	tests := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"empty", func(h map[string]string) { clear(h) }},
		{"missing id", func(h map[string]string) { delete(h, "id") }},
		{"bad timestamp", func(h map[string]string) { h["timestamp"] = "noon" }},
		{"bad boolean", func(h map[string]string) { h["is_deleted"] = "true" }},
		{"bad kind", func(h map[string]string) { h["message_type"] = "audio" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(map[string]string, len(base))
			for k, v := range base {
				h[k] = v
			}
			tt.mutate(h)
			_, err := MessageFromHash(h)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "err = %v", err)
		})
	}
}

func TestRoomHash(t *testing.T) {
	room := &Room{
		ID:        "d1",
		Name:      DefaultRoomName("d1"),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: "d1",
		Active:    true,
		MaxUsers:  100,
	}

	h := room.ToHash()
	assert.Equal(t, "1", h["is_active"])
	assert.Equal(t, "100", h["max_users"])
	assert.NotContains(t, h, "description")

	got, err := RoomFromHash(stringify(h))
	require.NoError(t, err)
	assert.Equal(t, "Dashboard d1", got.Name)
	assert.True(t, got.Active)
	assert.Equal(t, 100, got.MaxUsers)
}

func TestPresenceHash(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Presence{
		UserID: "u1", RoomID: "d1", Username: "alice", Status: StatusOnline,
		ConnectedAt: now, LastSeen: now, SocketID: "s1",
	}

	got, err := PresenceFromHash(stringify(p.ToHash()))
	require.NoError(t, err)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, StatusOnline, got.Status)
	assert.Equal(t, "s1", got.SocketID)

	_, err = PresenceFromHash(map[string]string{"user_id": "u1"})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "message:d1:m1", MessageKey("d1", "m1"))
	assert.Equal(t, "messages:d1", MessageListKey("d1"))
	assert.Equal(t, "room:d1", RoomKey("d1"))
	assert.Equal(t, "user:d1:u1", PresenceKey("d1", "u1"))
	assert.Equal(t, "connected_users:d1", ConnectedUsersKey("d1"))
}

func stringify(h map[string]any) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v.(string)
	}
	return out
}
