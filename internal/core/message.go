package core

import "time"

// Message is a chat line accepted by the hub. ID is zero until the store
// assigns one.
type Message struct {
	ID        int64
	Room      string
	Author    string
	Text      string
	CreatedAt time.Time
}
