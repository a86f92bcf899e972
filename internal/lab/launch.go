package lab

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Capability IDs the launch wait depends on.
const (
	routerPluginID     = "@jupyterlab/application-extension:router"
	docManagerPluginID = "@jupyterlab/docmanager-extension:plugin"
)

// WaitForLaunch waits until the application has bootstrapped, its routing
// and document-manager capabilities are live, all previously open documents
// are closed, and the page has routed to path (default "/lab"). This is
// unbounded like the other waits; the caller's context is the deadline.
func (h *Harness) WaitForLaunch(ctx context.Context, path string) error {
	if path == "" {
		path = "/lab"
	}

	// The app handle appears only once the page bootstraps.
	for {
		err := h.requireApp(ctx)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrAppNotReady) {
			return err
		}
		if err := h.tick(ctx, h.interval); err != nil {
			return err
		}
	}

	if _, err := h.GetPlugin(ctx, routerPluginID); err != nil {
		return fmt.Errorf("resolving router: %w", err)
	}
	if _, err := h.GetPlugin(ctx, docManagerPluginID); err != nil {
		return fmt.Errorf("resolving document manager: %w", err)
	}

	if _, err := h.page.EvalAsync(ctx, fmt.Sprintf(
		"%s.commands.execute('docmanager:close-all').then(() => true)", appExpr)); err != nil {
		return fmt.Errorf("closing documents: %w", err)
	}

	// Poll the routed location until it lands on the requested path.
	for {
		if err := h.tick(ctx, h.interval); err != nil {
			return err
		}
		value, err := h.page.Eval(ctx, "document.location.pathname")
		if err != nil {
			return err
		}
		if pathname, ok := value.(string); ok && strings.Contains(pathname, path) {
			return nil
		}
	}
}
