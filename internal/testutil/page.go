// Package testutil provides test doubles for the harness packages.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakePage is a scripted page evaluator implementing the harness's Page
// interface. Handlers are matched against the evaluated expression by
// substring, in registration order, first match wins. Evaluating an
// expression no handler matches is an error, so tests fail loudly on
// unscripted probes.
type FakePage struct {
	mu       sync.Mutex
	handlers []pageHandler
	calls    []string
}

type pageHandler struct {
	substr string
	count  int
	fn     func(call int) (interface{}, error)
}

// NewFakePage returns an empty FakePage.
func NewFakePage() *FakePage {
	return &FakePage{}
}

// Handle registers fn for expressions containing substr. fn receives the
// zero-based count of prior matching calls.
func (p *FakePage) Handle(substr string, fn func(call int) (interface{}, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, pageHandler{substr: substr, fn: fn})
}

// HandleValue registers a fixed result for expressions containing substr.
func (p *FakePage) HandleValue(substr string, value interface{}) {
	p.Handle(substr, func(int) (interface{}, error) {
		return value, nil
	})
}

// HandleSequence registers per-call results for expressions containing
// substr; calls beyond the sequence repeat the last value.
func (p *FakePage) HandleSequence(substr string, values ...interface{}) {
	p.Handle(substr, func(call int) (interface{}, error) {
		if call >= len(values) {
			call = len(values) - 1
		}
		return values[call], nil
	})
}

// HandleError registers a fixed error for expressions containing substr.
func (p *FakePage) HandleError(substr string, err error) {
	p.Handle(substr, func(int) (interface{}, error) {
		return nil, err
	})
}

// Eval dispatches the expression to the first matching handler.
func (p *FakePage) Eval(ctx context.Context, expression string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.dispatch(expression)
}

// EvalAsync behaves like Eval; the fake has no promise semantics.
func (p *FakePage) EvalAsync(ctx context.Context, expression string) (interface{}, error) {
	return p.Eval(ctx, expression)
}

func (p *FakePage) dispatch(expression string) (interface{}, error) {
	p.mu.Lock()
	p.calls = append(p.calls, expression)
	for i := range p.handlers {
		h := &p.handlers[i]
		if h.substr != "" && strings.Contains(expression, h.substr) {
			call := h.count
			h.count++
			fn := h.fn
			p.mu.Unlock()
			return fn(call)
		}
	}
	p.mu.Unlock()
	return nil, fmt.Errorf("unscripted expression: %.80q", expression)
}

// CallCount returns how many evaluated expressions contained substr.
func (p *FakePage) CallCount(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if strings.Contains(call, substr) {
			n++
		}
	}
	return n
}

// Calls returns a copy of all evaluated expressions, in order.
func (p *FakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}
