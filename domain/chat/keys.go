package chat

// Key layout in the key-value store.

// MessageKey is the hash holding one message.
func MessageKey(roomID, messageID string) string {
	return "message:" + roomID + ":" + messageID
}

// MessageListKey is the list of a room's message ids, oldest first.
func MessageListKey(roomID string) string {
	return "messages:" + roomID
}

// RoomKey is the hash holding a room record.
func RoomKey(roomID string) string {
	return "room:" + roomID
}

// RoomKeyPattern matches every room record.
const RoomKeyPattern = "room:*"

// PresenceKey is the hash holding one user's presence in a room.
func PresenceKey(roomID, userID string) string {
	return "user:" + roomID + ":" + userID
}

// ConnectedUsersKey is the set of user ids connected to a room.
func ConnectedUsersKey(roomID string) string {
	return "connected_users:" + roomID
}
