package cache

import "fmt"

// Key layout:
// - memberKey(sessionID):            ZSet<userID, expireAtUnix>, score is the logical TTL
// - presenceKey(sessionID, userID):  serialized UserPresence, volatile

const (
	keyMembersFmt  = "collab:presence:members:%s"
	keyPresenceFmt = "collab:presence:%s:%s"
)

func memberKey(sessionID string) string {
	return fmt.Sprintf(keyMembersFmt, sessionID)
}

func presenceKey(sessionID, userID string) string {
	return fmt.Sprintf(keyPresenceFmt, sessionID, userID)
}
