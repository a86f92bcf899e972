package lab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WaitForCellRun waits until a single cell's run has produced a stable,
// final result and returns the output node snapshot, or nil when the cell
// settles without output. timeout bounds only the stalled-widget case; the
// prompt waits are unbounded and governed by ctx. Passing timeout <= 0
// selects DefaultCellRunTimeout.
//
// The prompt transitions are the only reliable signal of kernel-side
// progress: the queued marker must clear, then the running marker, before
// the output area is inspected at all.
func (h *Harness) WaitForCellRun(ctx context.Context, index int, timeout time.Duration) (*CellOutput, error) {
	if timeout <= 0 {
		timeout = DefaultCellRunTimeout
	}

	source, err := h.CellSource(ctx, index)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		// Nothing will run for an empty cell, so no DOM polling either.
		return nil, nil
	}

	if err := h.waitPromptCleared(ctx, index, promptQueued); err != nil {
		return nil, err
	}
	if err := h.waitPromptCleared(ctx, index, promptRunning); err != nil {
		return nil, err
	}

	kind, err := h.CellKind(ctx, index)
	if err != nil {
		return nil, err
	}

	switch kind {
	case CellMarkdown:
		return nil, h.waitMarkdownRendered(ctx, index)
	case CellRaw:
		// Raw cells have no execution semantics and no output concept.
		return nil, nil
	default:
		return h.waitCodeOutput(ctx, index, timeout)
	}
}

// waitPromptCleared polls until the cell's input prompt no longer shows the
// given marker.
func (h *Harness) waitPromptCleared(ctx context.Context, index int, marker string) error {
	for {
		if err := h.tick(ctx, h.interval); err != nil {
			return err
		}
		text, err := h.cellPromptText(ctx, index)
		if err != nil {
			return err
		}
		if text != marker {
			return nil
		}
	}
}

// waitMarkdownRendered waits for the cell's readiness signal, then polls
// until the cell reports itself rendered. Markdown re-renders on its own
// cycle, so prompt clearing alone proves nothing here.
func (h *Harness) waitMarkdownRendered(ctx context.Context, index int) error {
	_, err := h.page.EvalAsync(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return Promise.reject(new Error('no notebook'));
			const cell = nb.content.widgets[%d];
			if (!cell) return Promise.reject(new Error('no cell'));
			return cell.ready.then(() => true);
		})()
	`, notebookExpr, index))
	if err != nil {
		return fmt.Errorf("waiting for cell %d readiness: %w", index, err)
	}

	for {
		if err := h.tick(ctx, h.interval); err != nil {
			return err
		}
		rendered, err := h.evalBool(ctx, fmt.Sprintf(`
			(function() {
				const nb = %s;
				if (!nb || !nb.content) return false;
				const cell = nb.content.widgets[%d];
				return cell ? cell.rendered === true : false;
			})()
		`, notebookExpr, index))
		if err != nil {
			return err
		}
		if rendered {
			return nil
		}
	}
}

// waitCodeOutput polls the cell's output area until it settles.
//
// The first poll never treats an absent output node as completion: output
// may simply not have attached yet. From the second poll onward, absence
// means the run completed with no output. Output pinned at the
// loading-widget placeholder arms a one-shot stall timeout; the timeout and
// a later non-placeholder render are mutually exclusive outcomes, whichever
// comes first.
func (h *Harness) waitCodeOutput(ctx context.Context, index int, timeout time.Duration) (*CellOutput, error) {
	first := true
	var stallDeadline time.Time

	for {
		if err := h.tick(ctx, h.interval); err != nil {
			return nil, err
		}

		value, err := h.page.Eval(ctx, fmt.Sprintf(`
			(function() {
				const nb = %s;
				if (!nb || !nb.content) return null;
				const cell = nb.content.widgets[%d];
				if (!cell) return null;
				const out = cell.node.querySelector('.jp-OutputArea-output');
				if (!out) return null;
				return { text: (out.textContent || '').trim(), html: out.outerHTML || '' };
			})()
		`, notebookExpr, index))
		if err != nil {
			return nil, err
		}

		if value == nil {
			if first {
				first = false
				continue
			}
			// Settled with no output
			return nil, nil
		}
		first = false

		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected output probe result: %T", value)
		}
		text, _ := m["text"].(string)

		if text == loadingWidgetText {
			if stallDeadline.IsZero() {
				stallDeadline = time.Now().Add(timeout)
			} else if time.Now().After(stallDeadline) {
				h.diagf("cell %d: output stuck at widget placeholder after %s, treating as no output", index, timeout)
				return nil, nil
			}
			continue
		}

		html, _ := m["html"].(string)
		return &CellOutput{Index: index, HTML: html}, nil
	}
}

// RunAll triggers the host's bulk run-all command without per-cell
// synchronization. Pair with WaitForAllCellsRun to observe settling.
func (h *Harness) RunAll(ctx context.Context) error {
	_, err := h.page.EvalAsync(ctx, fmt.Sprintf(
		"%s.commands.execute('notebook:run-all-cells').then(() => true)", appExpr))
	if err != nil {
		return fmt.Errorf("running all cells: %w", err)
	}
	return nil
}

// WaitForAllCellsRun fires the cell synchronizer for every existing cell
// concurrently and returns when all settle. Safe to fan out because
// synchronization is read-only polling; it never triggers execution, so it
// only makes sense after a bulk run.
func (h *Harness) WaitForAllCellsRun(ctx context.Context, timeout time.Duration) error {
	count, err := h.CellCount(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			_, err := h.WaitForCellRun(ctx, i, timeout)
			return err
		})
	}
	return g.Wait()
}

// RunCellByCell executes the whole notebook strictly one cell at a time:
// select, run, synchronize, invoke the caller's hooks, then reveal the
// cell's result with scroll prediction. Each cell's full contract,
// including awaited hooks, completes before the next cell starts.
func (h *Harness) RunCellByCell(ctx context.Context, hooks *RunHooks) (*RunReport, error) {
	if hooks == nil {
		hooks = &RunHooks{}
	}
	report := &RunReport{RunID: uuid.NewString()}

	if err := h.deselectAllCells(ctx); err != nil {
		return report, fmt.Errorf("deselecting cells: %w", err)
	}

	count, err := h.CellCount(ctx)
	if err != nil {
		return report, err
	}

	for i := 0; i < count; i++ {
		if err := h.activateCell(ctx, i); err != nil {
			return report, err
		}
		if err := h.runActiveCell(ctx); err != nil {
			return report, fmt.Errorf("cell %d: %w", i, err)
		}

		output, err := h.WaitForCellRun(ctx, i, DefaultCellRunTimeout)
		if err != nil {
			return report, fmt.Errorf("synchronizing cell %d: %w", i, err)
		}

		result := CellRunResult{Index: i, HasOutput: output != nil}
		if kind, err := h.CellKind(ctx, i); err == nil {
			result.Kind = kind
		}

		if hooks.OnAfterCellRun != nil {
			if err := hooks.OnAfterCellRun(ctx, i); err != nil {
				return report, fmt.Errorf("after-cell hook (cell %d): %w", i, err)
			}
		}

		predicted, scrolled, err := h.revealCell(ctx, report.RunID, i, output != nil, hooks)
		if err != nil {
			return report, err
		}
		result.ScrollPredicted = predicted
		result.Scrolled = scrolled

		report.Cells = append(report.Cells, result)
	}

	return report, nil
}
