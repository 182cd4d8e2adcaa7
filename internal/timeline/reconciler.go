// Package timeline merges a room's history backfill with its live event
// stream into one gap-free, duplicate-free sequence.
package timeline

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/vovakirdan/wirechat/internal/message"
)

// Phase is the reconciliation progress of one epoch.
type Phase int

const (
	// Pending means history is in flight and live events are buffered.
	Pending Phase = iota
	// Degraded means history failed; live events are rendered as they arrive.
	Degraded
	// Synced means history was rendered and the buffer drained.
	Synced
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Degraded:
		return "degraded"
	case Synced:
		return "synced"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrAlreadySynced is returned when history is applied twice in one epoch.
var ErrAlreadySynced = errors.New("timeline already synced")

// View is the rendering collaborator. Reset clears the displayed timeline
// and renders msgs; Append renders one more message at the end.
type View interface {
	Reset(room string, msgs []message.Message)
	Append(msg message.Message)
}

// Stats counts what the reconciler did with live events.
type Stats struct {
	Buffered   uint64
	Appended   uint64
	Duplicates uint64
}

// Reconciler owns the visible timeline of one room for one epoch. It is
// not safe for concurrent use and is never reused across epochs.
type Reconciler struct {
	room  string
	epoch uint64
	view  View
	phase Phase

	visible []message.Message
	seen    map[string]struct{}

	// seed is the timeline retained across a reconnect.
	seed []message.Message
	// live holds every admitted live event of the epoch until Synced, so a
	// history retry can rebuild and deduplicate.
	live    []message.Message
	liveIDs map[string]struct{}

	stats Stats
}

// New creates a reconciler for room at epoch. seed is shown as-is until
// history arrives and is merged with it afterwards.
func New(room string, epoch uint64, seed []message.Message, view View) *Reconciler {
	r := &Reconciler{
		room:    room,
		epoch:   epoch,
		view:    view,
		phase:   Pending,
		seen:    make(map[string]struct{}, len(seed)),
		liveIDs: make(map[string]struct{}),
	}
	for _, msg := range seed {
		if _, dup := r.seen[msg.ID]; dup {
			continue
		}
		r.seen[msg.ID] = struct{}{}
		r.visible = append(r.visible, msg)
	}
	r.seed = slices.Clone(r.visible)
	return r
}

// Room returns the reconciled room.
func (r *Reconciler) Room() string { return r.room }

// Epoch returns the epoch this reconciler belongs to.
func (r *Reconciler) Epoch() uint64 { return r.epoch }

// Phase returns the current phase.
func (r *Reconciler) Phase() Phase { return r.phase }

// Stats returns live event counters.
func (r *Reconciler) Stats() Stats { return r.stats }

// Len returns the number of visible messages.
func (r *Reconciler) Len() int { return len(r.visible) }

// Messages returns the visible timeline as a lazy sequence. Each call
// starts from the beginning.
func (r *Reconciler) Messages() iter.Seq[message.Message] {
	return func(yield func(message.Message) bool) {
		for _, msg := range r.visible {
			if !yield(msg) {
				return
			}
		}
	}
}

// Live accepts one admitted live event. It reports whether the event was
// kept (buffered or rendered) rather than dropped as a duplicate.
func (r *Reconciler) Live(msg message.Message) bool {
	switch r.phase {
	case Pending:
		if _, dup := r.liveIDs[msg.ID]; dup {
			r.stats.Duplicates++
			return false
		}
		r.remember(msg)
		r.stats.Buffered++
		return true
	case Degraded:
		if _, dup := r.seen[msg.ID]; dup {
			r.stats.Duplicates++
			return false
		}
		r.remember(msg)
		r.appendVisible(msg)
		return true
	default:
		if _, dup := r.seen[msg.ID]; dup {
			r.stats.Duplicates++
			return false
		}
		r.appendVisible(msg)
		return true
	}
}

// ApplyHistory renders the retrieved history and drains the live buffer,
// dropping live events whose id is already visible.
func (r *Reconciler) ApplyHistory(history []message.Message) error {
	if r.phase == Synced {
		return ErrAlreadySynced
	}

	seen := make(map[string]struct{}, len(history)+len(r.live))
	merged := make([]message.Message, 0, len(history)+len(r.seed)+len(r.live))
	for _, msg := range history {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
	}

	var retained bool
	for _, msg := range r.seed {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
		retained = true
	}
	if retained {
		slices.SortStableFunc(merged, func(a, b message.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}

	for _, msg := range r.live {
		if _, dup := seen[msg.ID]; dup {
			r.stats.Duplicates++
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
		r.stats.Appended++
	}

	r.visible = merged
	r.seen = seen
	r.seed = nil
	r.live = nil
	r.liveIDs = nil
	r.phase = Synced

	if r.view != nil {
		r.view.Reset(r.room, slices.Clone(r.visible))
	}
	return nil
}

// FailHistory records a failed history fetch. An empty timeline is shown
// unless a seed is retained, and buffered live events are rendered.
func (r *Reconciler) FailHistory() {
	if r.phase != Pending {
		return
	}
	r.phase = Degraded

	if len(r.seed) == 0 && r.view != nil {
		r.view.Reset(r.room, nil)
	}
	for _, msg := range r.live {
		if _, dup := r.seen[msg.ID]; dup {
			r.stats.Duplicates++
			continue
		}
		r.appendVisible(msg)
	}
}

func (r *Reconciler) remember(msg message.Message) {
	r.liveIDs[msg.ID] = struct{}{}
	r.live = append(r.live, msg)
}

func (r *Reconciler) appendVisible(msg message.Message) {
	r.seen[msg.ID] = struct{}{}
	r.visible = append(r.visible, msg)
	r.stats.Appended++
	if r.view != nil {
		r.view.Append(msg)
	}
}
