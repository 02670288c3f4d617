package chat

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Stored records are flat string hashes. Timestamps are unix seconds with a
// fractional part and booleans are "1" or "0".

// FormatTimestamp encodes t with microsecond precision.
func FormatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

// ParseTimestamp decodes a stored timestamp as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRecord, s)
	}
	return time.UnixMicro(int64(math.Round(f * 1e6))).UTC(), nil
}

// FormatBool encodes b as "1" or "0".
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool decodes a stored boolean, rejecting anything but "1" or "0".
func ParseBool(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: boolean %q", ErrMalformedRecord, s)
	}
}

func requireFields(h map[string]string, fields ...string) error {
	if len(h) == 0 {
		return fmt.Errorf("%w: empty record", ErrMalformedRecord)
	}
	for _, f := range fields {
		if _, ok := h[f]; !ok {
			return fmt.Errorf("%w: missing field %q", ErrMalformedRecord, f)
		}
	}
	return nil
}

// ToHash encodes the message as a stored record.
func (m *Message) ToHash() map[string]any {
	h := map[string]any{
		"id":           m.ID,
		"dashboard_id": m.RoomID,
		"user_id":      m.SenderID,
		"username":     m.SenderName,
		"content":      m.Content,
		"message_type": string(m.Kind),
		"timestamp":    FormatTimestamp(m.CreatedAt),
		"is_deleted":   FormatBool(m.Deleted),
	}
	if m.EditedAt != nil {
		h["edited_at"] = FormatTimestamp(*m.EditedAt)
	}
	if m.ReplyTo != "" {
		h["reply_to"] = m.ReplyTo
	}
	return h
}

// MessageFromHash decodes a stored message record.
func MessageFromHash(h map[string]string) (*Message, error) {
	if err := requireFields(h, "id", "dashboard_id", "user_id", "content", "timestamp"); err != nil {
		return nil, err
	}
	createdAt, err := ParseTimestamp(h["timestamp"])
	if err != nil {
		return nil, err
	}
	kind, err := ParseMessageKind(h["message_type"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	m := &Message{
		ID:         h["id"],
		RoomID:     h["dashboard_id"],
		SenderID:   h["user_id"],
		SenderName: h["username"],
		Content:    h["content"],
		Kind:       kind,
		CreatedAt:  createdAt,
		ReplyTo:    h["reply_to"],
	}
	if v, ok := h["is_deleted"]; ok {
		if m.Deleted, err = ParseBool(v); err != nil {
			return nil, err
		}
	}
	if v, ok := h["edited_at"]; ok && v != "" {
		editedAt, err := ParseTimestamp(v)
		if err != nil {
			return nil, err
		}
		m.EditedAt = &editedAt
	}
	return m, nil
}

// ToHash encodes the room as a stored record.
func (r *Room) ToHash() map[string]any {
	h := map[string]any{
		"id":           r.ID,
		"dashboard_id": r.ID,
		"name":         r.Name,
		"created_at":   FormatTimestamp(r.CreatedAt),
		"created_by":   r.CreatedBy,
		"is_active":    FormatBool(r.Active),
		"max_users":    strconv.Itoa(r.MaxUsers),
	}
	if r.Description != "" {
		h["description"] = r.Description
	}
	return h
}

// RoomFromHash decodes a stored room record.
func RoomFromHash(h map[string]string) (*Room, error) {
	if err := requireFields(h, "id", "name", "created_at"); err != nil {
		return nil, err
	}
	createdAt, err := ParseTimestamp(h["created_at"])
	if err != nil {
		return nil, err
	}
	r := &Room{
		ID:          h["id"],
		Name:        h["name"],
		Description: h["description"],
		CreatedAt:   createdAt,
		CreatedBy:   h["created_by"],
		Active:      true,
	}
	if v, ok := h["is_active"]; ok {
		if r.Active, err = ParseBool(v); err != nil {
			return nil, err
		}
	}
	if v, ok := h["max_users"]; ok {
		if r.MaxUsers, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%w: max_users %q", ErrMalformedRecord, v)
		}
	}
	return r, nil
}

// ToHash encodes the presence as a stored record.
func (p *Presence) ToHash() map[string]any {
	return map[string]any{
		"user_id":      p.UserID,
		"dashboard_id": p.RoomID,
		"username":     p.Username,
		"status":       string(p.Status),
		"connected_at": FormatTimestamp(p.ConnectedAt),
		"last_seen":    FormatTimestamp(p.LastSeen),
		"socket_id":    p.SocketID,
	}
}

// PresenceFromHash decodes a stored presence record.
func PresenceFromHash(h map[string]string) (*Presence, error) {
	if err := requireFields(h, "user_id", "dashboard_id", "username", "status", "connected_at", "last_seen"); err != nil {
		return nil, err
	}
	status, err := ParsePresenceStatus(h["status"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	connectedAt, err := ParseTimestamp(h["connected_at"])
	if err != nil {
		return nil, err
	}
	lastSeen, err := ParseTimestamp(h["last_seen"])
	if err != nil {
		return nil, err
	}
	return &Presence{
		UserID:      h["user_id"],
		RoomID:      h["dashboard_id"],
		Username:    h["username"],
		Status:      status,
		ConnectedAt: connectedAt,
		LastSeen:    lastSeen,
		SocketID:    h["socket_id"],
	}, nil
}
