// Package presence carries system notices (joins, leaves, status and
// recoverable errors) on a channel separate from the message timeline.
package presence

import (
	"sync/atomic"
	"time"
)

// Kind distinguishes notice types.
type Kind int

const (
	// KindSystem is a membership or status announcement.
	KindSystem Kind = iota
	// KindError is a recoverable error shown inline, e.g. failed history.
	KindError
)

// Notice is one entry on the system channel.
type Notice struct {
	Kind Kind
	Room string
	Text string
	At   time.Time
}

// Notifier is fire-and-forget: when the channel is full the notice is
// dropped and counted.
type Notifier struct {
	ch      chan Notice
	now     func() time.Time
	dropped atomic.Uint64
}

// New creates a notifier with the given channel capacity.
func New(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &Notifier{
		ch:  make(chan Notice, buffer),
		now: time.Now,
	}
}

// C returns the notice channel.
func (n *Notifier) C() <-chan Notice { return n.ch }

// Dropped returns how many notices were lost to backpressure.
func (n *Notifier) Dropped() uint64 { return n.dropped.Load() }

// Notify publishes a system notice.
func (n *Notifier) Notify(room, text string) {
	n.publish(Notice{Kind: KindSystem, Room: room, Text: text})
}

// Error publishes a recoverable error notice.
func (n *Notifier) Error(room, text string) {
	n.publish(Notice{Kind: KindError, Room: room, Text: text})
}

func (n *Notifier) publish(notice Notice) {
	notice.At = n.now()
	select {
	case n.ch <- notice:
	default:
		// Drop if slow consumer.
		n.dropped.Add(1)
	}
}
