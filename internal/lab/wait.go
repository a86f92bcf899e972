package lab

import (
	"context"
	"fmt"
	"time"
)

// WaitForSelector polls until an element matching the CSS selector appears
// under the subtree root (or, with opts.Hidden, until none matches). The
// first evaluation happens after the first interval tick. With a zero
// timeout the wait is unbounded and the enclosing context is the only way
// out; drivers are expected to impose their own deadline.
func (h *Harness) WaitForSelector(ctx context.Context, selector string, opts *WaitOptions) (*NodeRef, error) {
	probe := fmt.Sprintf(`
		(function() {
			const root = %s;
			if (!root) return null;
			const el = root.querySelector(%q);
			if (!el) return null;
			return { text: el.textContent || '', html: el.outerHTML || '' };
		})()
	`, rootExpr(opts), selector)

	ref, err := h.waitForNode(ctx, probe, opts)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		ref.Selector = selector
	}
	return ref, nil
}

// WaitForXPath is WaitForSelector with the condition expressed as an XPath
// expression instead of a structural selector.
func (h *Harness) WaitForXPath(ctx context.Context, expression string, opts *WaitOptions) (*NodeRef, error) {
	probe := fmt.Sprintf(`
		(function() {
			const root = %s;
			if (!root) return null;
			const result = document.evaluate(%q, root, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
			const el = result.singleNodeValue;
			if (!el) return null;
			return { text: el.textContent || '', html: el.outerHTML || '' };
		})()
	`, rootExpr(opts), expression)

	ref, err := h.waitForNode(ctx, probe, opts)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		ref.XPath = expression
	}
	return ref, nil
}

// rootExpr returns the JS expression for the wait's subtree root.
func rootExpr(opts *WaitOptions) string {
	if opts == nil || opts.Root == "" {
		return "document"
	}
	return fmt.Sprintf("document.querySelector(%q)", opts.Root)
}

// waitForNode runs the shared poll loop. The probe must evaluate to null
// when nothing matches and to {text, html} otherwise. A hidden wait
// resolves with a nil NodeRef once the probe stops matching.
func (h *Harness) waitForNode(ctx context.Context, probe string, opts *WaitOptions) (*NodeRef, error) {
	interval := h.interval
	hidden := false
	var deadline time.Time
	if opts != nil {
		if opts.Interval > 0 {
			interval = opts.Interval
		}
		hidden = opts.Hidden
		if opts.Timeout > 0 {
			deadline = time.Now().Add(opts.Timeout)
		}
	}

	for {
		if err := h.tick(ctx, interval); err != nil {
			return nil, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrWaitTimeout
		}

		value, err := h.page.Eval(ctx, probe)
		if err != nil {
			return nil, err
		}

		if hidden {
			if value == nil {
				return nil, nil
			}
			continue
		}

		if value == nil {
			continue
		}
		return decodeNodeRef(value)
	}
}

func decodeNodeRef(value interface{}) (*NodeRef, error) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected probe result: %T", value)
	}
	ref := &NodeRef{}
	if text, ok := m["text"].(string); ok {
		ref.Text = text
	}
	if html, ok := m["html"].(string); ok {
		ref.HTML = html
	}
	return ref, nil
}
