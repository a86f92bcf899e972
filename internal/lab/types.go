package lab

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	// ErrAppNotReady means window.jupyterapp is not exposed on the page yet.
	// JupyterLab publishes the handle when started with expose-app-in-browser.
	ErrAppNotReady = errors.New("jupyter application handle not available")

	// ErrPluginNotFound means the capability is unknown to the plugin registry.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrWaitTimeout means a bounded wait expired before its condition held.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrNoNotebook means no notebook panel is the current shell widget.
	ErrNoNotebook = errors.New("no active notebook")
)

// Defaults. The 200ms poll interval is load-bearing: downstream test suites
// time their expectations against it, so changing it is a breaking change.
const (
	DefaultPollInterval   = 200 * time.Millisecond
	DefaultCellRunTimeout = 2 * time.Second

	// DefaultScrollThreshold is the percentage-of-viewport-height distance
	// beyond which a reveal is predicted to require scrolling.
	DefaultScrollThreshold = 25

	// runScrollThreshold is the wider threshold used by the sequential
	// orchestrator, which scrolls cell anchors rather than arbitrary nodes.
	runScrollThreshold = 45
)

// Prompt markers shown in a code cell's input area. The transition
// "[ ]:" gone, then "[*]:" gone is the only reliable signal of kernel-side
// execution progress.
const (
	promptQueued  = "[ ]:"
	promptRunning = "[*]:"
)

// loadingWidgetText is the literal placeholder an output area shows while an
// interactive widget is still loading. Output pinned at this text is treated
// as a stalled widget once the stall timeout fires.
const loadingWidgetText = "Loading widget..."

// CellKind is a notebook cell type.
type CellKind string

// Cell kinds
const (
	CellCode     CellKind = "code"
	CellMarkdown CellKind = "markdown"
	CellRaw      CellKind = "raw"
)

// PluginState tags how a plugin resolution completed.
type PluginState string

// Plugin resolution states
const (
	// StateActive means the plugin was already activated before the call.
	StateActive PluginState = "active"
	// StateActivated means the call triggered activation and waited for it.
	StateActivated PluginState = "activated"
)

// PluginResult is the outcome of resolving a plugin.
type PluginResult struct {
	ID    string      `json:"id"`
	State PluginState `json:"state"`
}

// WaitOptions configures a DOM condition wait.
type WaitOptions struct {
	// Root is a CSS selector for the subtree root. Empty means the document.
	Root string
	// Hidden inverts the polarity: wait until no node matches.
	Hidden bool
	// Interval between polls. Zero means DefaultPollInterval.
	Interval time.Duration
	// Timeout bounds the wait. Zero means unbounded: the enclosing context
	// is then the only way out, which callers must impose themselves.
	Timeout time.Duration
}

// NodeRef is a snapshot reference to a matched DOM node.
type NodeRef struct {
	Selector string `json:"selector,omitempty"`
	XPath    string `json:"xpath,omitempty"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
}

// BoundingBox is an element's position and size in viewport coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the y coordinate of the box's bottom edge.
func (b BoundingBox) Bottom() float64 {
	return b.Y + b.Height
}

// RunHooks are caller-supplied lifecycle callbacks for the sequential
// orchestrator. Each hook is awaited; a nil hook is skipped. Hooks are
// strictly ordered relative to cell progression.
type RunHooks struct {
	// OnBeforeScroll fires after a cell's run has settled, only when a
	// scroll is predicted, before the scroll happens.
	OnBeforeScroll func(ctx context.Context, index int) error
	// OnAfterScroll fires after a predicted scroll was performed.
	OnAfterScroll func(ctx context.Context, index int) error
	// OnAfterCellRun fires once a cell's run has settled, before any
	// scrolling and before the next cell starts.
	OnAfterCellRun func(ctx context.Context, index int) error
}

// CellRunResult records one cell's outcome in an orchestrated run.
type CellRunResult struct {
	Index           int      `json:"index"`
	Kind            CellKind `json:"kind"`
	HasOutput       bool     `json:"hasOutput"`
	ScrollPredicted bool     `json:"scrollPredicted"`
	Scrolled        bool     `json:"scrolled"`
}

// RunReport summarizes an orchestrated cell-by-cell run.
type RunReport struct {
	RunID string          `json:"runId"`
	Cells []CellRunResult `json:"cells"`
}
