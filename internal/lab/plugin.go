package lab

import (
	"context"
	"fmt"
)

// appExpr reaches the application handle JupyterLab exposes when started
// with expose-app-in-browser.
const appExpr = "window.jupyterapp"

// GetPlugin resolves a plugin by ID, activating it first if the registry
// reports it inactive. The result is tagged with how resolution completed.
//
// An unknown ID fails fast with ErrPluginNotFound. (The harness this
// replaces left the caller waiting forever in that case; that was a defect,
// not a contract.)
func (h *Harness) GetPlugin(ctx context.Context, id string) (*PluginResult, error) {
	if err := h.requireApp(ctx); err != nil {
		return nil, err
	}

	has, err := h.evalBool(ctx, fmt.Sprintf("%s.hasPlugin(%q)", appExpr, id))
	if err != nil {
		return nil, fmt.Errorf("querying plugin registry: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}

	// Prefer the public activation query where the host version exposes it.
	// Older hosts only offer activatePlugin, which is idempotent, so falling
	// through to activation is safe either way.
	active, err := h.page.Eval(ctx, fmt.Sprintf(
		"typeof %s.isPluginActivated === 'function' ? %s.isPluginActivated(%q) : null",
		appExpr, appExpr, id))
	if err != nil {
		return nil, fmt.Errorf("querying plugin activation: %w", err)
	}
	if active == true {
		return &PluginResult{ID: id, State: StateActive}, nil
	}

	// Resolve only once activation completes; the activation response
	// payload itself is irrelevant.
	if _, err := h.page.EvalAsync(ctx, fmt.Sprintf(
		"%s.activatePlugin(%q).then(() => true)", appExpr, id)); err != nil {
		return nil, fmt.Errorf("activating plugin %s: %w", id, err)
	}

	return &PluginResult{ID: id, State: StateActivated}, nil
}

// requireApp verifies the application handle is present on the page.
func (h *Harness) requireApp(ctx context.Context) error {
	ok, err := h.evalBool(ctx, fmt.Sprintf("typeof %s !== 'undefined' && %s !== null", appExpr, appExpr))
	if err != nil {
		return err
	}
	if !ok {
		return ErrAppNotReady
	}
	return nil
}
