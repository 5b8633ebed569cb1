// Package notify delivers outbound, best-effort notifications. Delivery
// failures are logged, never returned to triage flows.
package notify

import (
	"context"
	"fmt"
	"log"
)

// Notification is one outbound message.
type Notification struct {
	Subject string
	Body    string
}

// Notifier sends a notification to one destination.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Fanout delivers each notification to every configured notifier.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout creates a Fanout over the given notifiers. Nil entries are
// skipped so callers can pass optionally-configured adapters directly.
func NewFanout(notifiers ...Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Send delivers to all notifiers, logging per-adapter failures. It only
// returns an error when every adapter failed.
func (f *Fanout) Send(ctx context.Context, n Notification) error {
	if len(f.notifiers) == 0 {
		return nil
	}
	failed := 0
	for _, target := range f.notifiers {
		if err := target.Send(ctx, n); err != nil {
			log.Printf("notify: send %q: %v", n.Subject, err)
			failed++
		}
	}
	if failed == len(f.notifiers) {
		return fmt.Errorf("notify: all %d adapters failed for %q", failed, n.Subject)
	}
	return nil
}
