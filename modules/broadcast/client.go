package broadcast

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is a registered connection of one user in one room.
type Client struct {
	ID       string
	RoomID   string
	UserID   string
	Username string

	conn       Conn
	writeMu    sync.Mutex
	presenceMu sync.Mutex
	closeOnce  sync.Once
	closeErr   error
}

// NewClient wraps conn for the given room and user.
func NewClient(roomID, userID, username string, conn Conn) *Client {
	return &Client{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		UserID:   userID,
		Username: username,
		conn:     conn,
	}
}

// Send writes one text frame. Writes to the same client never overlap.
func (c *Client) Send(data []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying transport once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
