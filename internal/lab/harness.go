// Package lab synchronizes an external test driver with a running JupyterLab
// page. The application's cell-execution pipeline is asynchronous and emits
// no single "done" event, so every primitive here infers completion by
// polling transient DOM markers and model fields through page-side
// JavaScript, with bounded wait semantics.
package lab

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Page is the JavaScript-evaluation surface of the host page. The production
// implementation is a CDP page handle; tests supply a scripted fake.
type Page interface {
	// Eval evaluates an expression and returns its JSON-decoded value.
	Eval(ctx context.Context, expression string) (interface{}, error)
	// EvalAsync evaluates a promise-yielding expression and returns the
	// resolved value.
	EvalAsync(ctx context.Context, expression string) (interface{}, error)
}

// Harness drives and observes a JupyterLab page.
type Harness struct {
	page     Page
	interval time.Duration
	diag     io.Writer
}

// Option configures a Harness.
type Option func(*Harness)

// WithPollInterval overrides the poll interval for all waiters. The default
// is DefaultPollInterval (200ms); downstream timing expectations assume it.
func WithPollInterval(d time.Duration) Option {
	return func(h *Harness) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithDiagnostics directs non-fatal diagnostic lines to w.
func WithDiagnostics(w io.Writer) Option {
	return func(h *Harness) {
		if w != nil {
			h.diag = w
		}
	}
}

// New returns a Harness bound to a page.
func New(page Page, opts ...Option) *Harness {
	h := &Harness{
		page:     page,
		interval: DefaultPollInterval,
		diag:     io.Discard,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PollInterval returns the configured poll interval.
func (h *Harness) PollInterval() time.Duration {
	return h.interval
}

func (h *Harness) diagf(format string, args ...interface{}) {
	fmt.Fprintf(h.diag, format+"\n", args...)
}

// tick sleeps one poll interval, honoring cancellation.
func (h *Harness) tick(ctx context.Context, interval time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(interval):
		return nil
	}
}

// Sleep pauses for d, honoring cancellation.
func (h *Harness) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// IsElementVisible reports whether the first element matching selector is
// rendered with nonzero size and not hidden by style.
func (h *Harness) IsElementVisible(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`
		(function() {
			const el = document.querySelector(%q);
			if (!el) return false;
			const style = window.getComputedStyle(el);
			const rect = el.getBoundingClientRect();
			return style.display !== 'none' &&
			       style.visibility !== 'hidden' &&
			       style.opacity !== '0' &&
			       rect.width > 0 && rect.height > 0;
		})()
	`, selector)

	value, err := h.page.Eval(ctx, js)
	if err != nil {
		return false, err
	}
	visible, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected visibility result: %T", value)
	}
	return visible, nil
}

// evalBool evaluates an expression expected to yield a boolean.
func (h *Harness) evalBool(ctx context.Context, expression string) (bool, error) {
	value, err := h.page.Eval(ctx, expression)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean result, got %T", value)
	}
	return b, nil
}
