package service

import "fmt"

// RoomKey returns the canonical broadcast-group identifier for a pair of
// users. The smaller ID always comes first, so both participants resolve to
// the same room no matter who computes it. There is no persisted conversation
// entity; this key is the conversation.
func RoomKey(userA, userB uint) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("chat:%d:%d", userA, userB)
}
