// Package message defines the canonical chat message and the normalizer that
// maps heterogeneous wire records onto it.
package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is the canonical, immutable chat message seen by the client core.
type Message struct {
	ID        string
	Room      string
	Author    string
	Text      string
	CreatedAt time.Time
}

// namespace scopes derived message ids so they never collide with other
// name-based UUIDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wirechat:message"))

// DeriveID returns a deterministic id for a message without a server-issued
// one. Two deliveries of the same timestamped record derive the same id.
// Records without a timestamp are keyed by their receipt time, so a
// redelivery of such a record is a new message.
func DeriveID(room, author, text string, createdAt time.Time) string {
	var b strings.Builder
	b.WriteString(room)
	b.WriteByte(0)
	b.WriteString(author)
	b.WriteByte(0)
	b.WriteString(createdAt.UTC().Format(time.RFC3339Nano))
	b.WriteByte(0)
	b.WriteString(text)
	return uuid.NewSHA1(namespace, []byte(b.String())).String()
}
