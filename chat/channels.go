package chat

import "strings"

// Fanout channel naming. The global broadcast channel is deliberately
// outside the "chat:" namespace so the per-user pattern never matches it.
const (
	GlobalChannel     = "chat_channel"
	userChannelPrefix = "chat:"
	UserChannelGlob   = "chat:*"
)

// UserChannel returns the fanout channel for a user's private messages.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// ParseUserChannel extracts the user identity from a per-user channel
// name. Returns false for any other channel.
func ParseUserChannel(channel string) (string, bool) {
	userID, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
