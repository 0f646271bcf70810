// Package actor provides the bounded-channel message loop used by every
// orchestration-core component. Each component keeps its own command and
// response types; this package only supplies the generic plumbing: a
// buffered inbox, a single-threaded dispatch loop, and an ask-with-reply
// helper that honors a caller's deadline.
//
// A component's command type normally embeds a reply channel so the
// dispatch loop can answer without the caller blocking it:
//
//	type getUserCmd struct {
//		id    string
//		reply chan<- getUserResp
//	}
//
// The loop itself never performs blocking I/O; a handler that needs to
// call a driver, an LLM, or an index dispatches that work to its own
// goroutine and delivers the result on the reply channel, keeping the
// loop free to accept the next message in send order.
package actor

import "context"

// Mailbox is a single component's bounded inbox of commands of type Cmd.
type Mailbox[Cmd any] struct {
	inbox chan Cmd
}

// NewMailbox creates a mailbox with the given buffer size.
func NewMailbox[Cmd any](buffer int) *Mailbox[Cmd] {
	return &Mailbox[Cmd]{inbox: make(chan Cmd, buffer)}
}

// Inbox exposes the underlying channel for a component's own dispatch loop.
func (m *Mailbox[Cmd]) Inbox() <-chan Cmd {
	return m.inbox
}

// Send enqueues cmd, respecting ctx's deadline if the inbox is full.
func (m *Mailbox[Cmd]) Send(ctx context.Context, cmd Cmd) error {
	select {
	case m.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the component's single-threaded message loop: it reads one
// command at a time and calls handle, never starting the next command's
// handling before the previous handle call returns. handle is responsible
// for offloading any blocking I/O so the loop itself never stalls.
func Run[Cmd any](ctx context.Context, m *Mailbox[Cmd], handle func(Cmd)) {
	for {
		select {
		case cmd, ok := <-m.inbox:
			if !ok {
				return
			}
			handle(cmd)
		case <-ctx.Done():
			return
		}
	}
}

// Ask sends a command built by build (which must capture the supplied
// reply channel) and waits for either a reply or ctx's deadline. Replies
// are delivered to the original caller exactly once; a reply channel is
// never reused across calls.
func Ask[Cmd any, Resp any](ctx context.Context, m *Mailbox[Cmd], build func(reply chan<- Resp) Cmd) (Resp, error) {
	var zero Resp
	reply := make(chan Resp, 1)
	if err := m.Send(ctx, build(reply)); err != nil {
		return zero, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
