package session

import "context"

type command struct {
	fn   func(*Controller) error
	done chan error
}

// Loop runs a Controller on one goroutine. Every controller method is
// invoked from Run, so controller state needs no locking.
type Loop struct {
	c        *Controller
	commands chan command
}

// NewLoop wraps c.
func NewLoop(c *Controller) *Loop {
	return &Loop{
		c:        c,
		commands: make(chan command, 16),
	}
}

// Controller returns the wrapped controller. Only touch it from inside Do.
func (l *Loop) Controller() *Controller { return l.c }

// Do runs fn on the loop goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func(*Controller) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case l.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes commands, transport frames, connection states and history
// results until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, inbound <-chan Inbound, states <-chan ConnState) error {
	for {
		select {
		case <-ctx.Done():
			l.c.cancelInFlight()
			return nil
		case cmd := <-l.commands:
			cmd.done <- cmd.fn(l.c)
		case in, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			l.c.HandleInbound(in)
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			l.c.OnConnectionChange(st)
		case res := <-l.c.results:
			l.c.HandleHistory(res)
		}
	}
}
