package broadcast

import "sync"

// Entry identifies what a client was registered under.
type Entry struct {
	RoomID   string
	UserID   string
	Username string
}

// Registry maps (room, user) to the live client, with a reverse index from
// client to its registration. It lives only in process memory.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]*Client // roomID -> userID -> client
	clients map[*Client]Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]map[string]*Client),
		clients: make(map[*Client]Entry),
	}
}

// Register stores c under (c.RoomID, c.UserID). A client already registered
// under that key is replaced and returned; it is no longer known to the
// registry, so a later Unregister of it reports not found.
func (r *Registry) Register(c *Client) (replaced *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[c.RoomID]
	if !ok {
		users = make(map[string]*Client)
		r.rooms[c.RoomID] = users
	}
	if prev, ok := users[c.UserID]; ok && prev != c {
		delete(r.clients, prev)
		replaced = prev
	}
	users[c.UserID] = c
	r.clients[c] = Entry{RoomID: c.RoomID, UserID: c.UserID, Username: c.Username}
	return replaced
}

// Unregister removes c and returns what it was registered under.
// It reports false if c was already removed or replaced.
func (r *Registry) Unregister(c *Client) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[c]
	if !ok {
		return Entry{}, false
	}
	delete(r.clients, c)

	if users, ok := r.rooms[entry.RoomID]; ok {
		if users[entry.UserID] == c {
			delete(users, entry.UserID)
		}
		if len(users) == 0 {
			delete(r.rooms, entry.RoomID)
		}
	}
	return entry, true
}

// Has reports whether c is currently registered.
func (r *Registry) Has(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[c]
	return ok
}

// List returns a snapshot of the clients registered in a room.
func (r *Registry) List(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := r.rooms[roomID]
	out := make([]*Client, 0, len(users))
	for _, c := range users {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every registered client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// RoomCount returns the number of clients registered in a room.
func (r *Registry) RoomCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// RoomCounts returns the number of clients per room.
func (r *Registry) RoomCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.rooms))
	for roomID, users := range r.rooms {
		out[roomID] = len(users)
	}
	return out
}
