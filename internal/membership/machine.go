// Package membership tracks which single room a session is in and guards
// every inbound event against rooms and epochs the session has moved past.
package membership

import (
	"errors"
	"fmt"
)

// State is the membership phase.
type State int

const (
	// Idle means no room is joined.
	Idle State = iota
	// Joining means a join was issued but not yet treated as joined.
	Joining
	// Joined means live events for the room are admitted.
	Joined
	// Leaving is the transient state between leaving a room and joining the next.
	Leaving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Leaving:
		return "leaving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an operation does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid membership transition")

// Discards counts rejected events by reason.
type Discards struct {
	NotJoined  uint64
	WrongRoom  uint64
	StaleEpoch uint64
}

// Total returns the number of rejected events.
func (d Discards) Total() uint64 {
	return d.NotJoined + d.WrongRoom + d.StaleEpoch
}

// Machine is the room membership state machine. It is not safe for
// concurrent use; the session controller drives it from one goroutine.
type Machine struct {
	state    State
	room     string
	epoch    uint64
	discards Discards
	observer func(Transition)
}

// Transition describes one state change.
type Transition struct {
	From  State
	To    State
	Room  string
	Epoch uint64
}

// New returns a machine in the Idle state.
func New() *Machine {
	return &Machine{}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Room returns the room of the current phase, empty when Idle.
func (m *Machine) Room() string { return m.room }

// Epoch returns the epoch tag of the current phase.
func (m *Machine) Epoch() uint64 { return m.epoch }

// Discards returns the rejection counters.
func (m *Machine) Discards() Discards { return m.discards }

// Observe registers fn to be called on every transition.
func (m *Machine) Observe(fn func(Transition)) {
	m.observer = fn
}

func (m *Machine) set(state State, room string, epoch uint64) {
	tr := Transition{From: m.state, To: state, Room: room, Epoch: epoch}
	m.state = state
	m.room = room
	m.epoch = epoch
	if m.observer != nil {
		m.observer(tr)
	}
}

// Join moves Idle to Joining(room).
func (m *Machine) Join(room string, epoch uint64) error {
	if m.state != Idle {
		return fmt.Errorf("%w: join %q from %s", ErrInvalidTransition, room, m.state)
	}
	if room == "" {
		return fmt.Errorf("%w: empty room", ErrInvalidTransition)
	}
	m.set(Joining, room, epoch)
	return nil
}

// Switch leaves the joined room and starts joining room. It returns the room
// that must receive a leave intent, or "" when the machine was Idle.
func (m *Machine) Switch(room string, epoch uint64) (string, error) {
	switch m.state {
	case Idle:
		return "", m.Join(room, epoch)
	case Joined, Joining:
		if room == "" {
			return "", fmt.Errorf("%w: empty room", ErrInvalidTransition)
		}
		left := m.room
		m.set(Leaving, left, m.epoch)
		m.set(Idle, "", m.epoch)
		return left, m.Join(room, epoch)
	default:
		return "", fmt.Errorf("%w: switch to %q from %s", ErrInvalidTransition, room, m.state)
	}
}

// Joined marks the pending join as complete. The epoch tag is preserved.
func (m *Machine) Joined() error {
	if m.state != Joining {
		return fmt.Errorf("%w: joined from %s", ErrInvalidTransition, m.state)
	}
	m.set(Joined, m.room, m.epoch)
	return nil
}

// Reset forces Idle, e.g. after connection loss.
func (m *Machine) Reset() {
	if m.state == Idle {
		return
	}
	m.set(Idle, "", m.epoch)
}

// Admit reports whether an event tagged with room and epoch belongs to the
// current subscription. An empty room means the event carries no room tag.
// Rejections are counted.
func (m *Machine) Admit(room string, epoch uint64) bool {
	switch {
	case m.state != Joined:
		m.discards.NotJoined++
		return false
	case epoch != m.epoch:
		m.discards.StaleEpoch++
		return false
	case room != "" && room != m.room:
		m.discards.WrongRoom++
		return false
	}
	return true
}
