package lab

import (
	"context"
	"fmt"
	"math"
)

// PredictScroll reports whether revealing anchorBottom will require moving
// the viewport: true iff the anchor's vertical distance from the viewport
// center exceeds thresholdPct percent of the viewport height.
func PredictScroll(viewport BoundingBox, anchorBottom float64, thresholdPct int) bool {
	center := viewport.Y + viewport.Height/2
	return math.Abs(anchorBottom-center) > float64(thresholdPct)/100*viewport.Height
}

// notebookViewport returns the bounding box of the notebook's scroll area.
func (h *Harness) notebookViewport(ctx context.Context) (BoundingBox, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			const rect = nb.content.node.getBoundingClientRect();
			return { x: rect.x, y: rect.y, width: rect.width, height: rect.height };
		})()
	`, notebookExpr))
	if err != nil {
		return BoundingBox{}, err
	}
	box, ok := decodeBox(value)
	if !ok {
		return BoundingBox{}, ErrNoNotebook
	}
	return box, nil
}

// cellAnchorBox returns the bounding box of the cell's reveal anchor: the
// output area when the run produced output, the input area otherwise. The
// second return is false when the anchor node does not exist.
func (h *Harness) cellAnchorBox(ctx context.Context, index int, hasOutput bool) (BoundingBox, bool, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			const cell = nb.content.widgets[%d];
			if (!cell) return null;
			const anchor = cell.node.querySelector(%q);
			if (!anchor) return false;
			const rect = anchor.getBoundingClientRect();
			return { x: rect.x, y: rect.y, width: rect.width, height: rect.height };
		})()
	`, notebookExpr, index, anchorSelector(hasOutput)))
	if err != nil {
		return BoundingBox{}, false, err
	}
	if value == false {
		return BoundingBox{}, false, nil
	}
	box, ok := decodeBox(value)
	if !ok {
		return BoundingBox{}, false, fmt.Errorf("no cell at index %d", index)
	}
	return box, true, nil
}

func anchorSelector(hasOutput bool) string {
	if hasOutput {
		return ".jp-OutputArea-output"
	}
	return ".jp-InputArea"
}

func decodeBox(value interface{}) (BoundingBox, bool) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return BoundingBox{}, false
	}
	box := BoundingBox{}
	if x, ok := m["x"].(float64); ok {
		box.X = x
	}
	if y, ok := m["y"].(float64); ok {
		box.Y = y
	}
	if w, ok := m["width"].(float64); ok {
		box.Width = w
	}
	if hgt, ok := m["height"].(float64); ok {
		box.Height = hgt
	}
	return box, true
}

// notebookScrollTop reads the notebook scroll position.
func (h *Harness) notebookScrollTop(ctx context.Context) (float64, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			return nb.content.node.scrollTop;
		})()
	`, notebookExpr))
	if err != nil {
		return 0, err
	}
	top, ok := value.(float64)
	if !ok {
		return 0, ErrNoNotebook
	}
	return top, nil
}

// scrollCellAnchor scrolls the cell's anchor into view and forces a layout
// update, returning the resulting scroll position.
func (h *Harness) scrollCellAnchor(ctx context.Context, index int, hasOutput bool) (float64, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			const cell = nb.content.widgets[%d];
			if (!cell) return null;
			const anchor = cell.node.querySelector(%q) || cell.node;
			anchor.scrollIntoView({ behavior: 'instant', block: 'center' });
			nb.content.update();
			return nb.content.node.scrollTop;
		})()
	`, notebookExpr, index, anchorSelector(hasOutput)))
	if err != nil {
		return 0, err
	}
	top, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("no cell at index %d", index)
	}
	return top, nil
}

// revealCell performs the post-run reveal for one orchestrated cell: predict
// whether a scroll is needed, bracket the actual scroll with the caller's
// hooks when it is, and flag prediction mismatches as diagnostics.
func (h *Harness) revealCell(ctx context.Context, runID string, index int, hasOutput bool, hooks *RunHooks) (predicted, scrolled bool, err error) {
	viewport, err := h.notebookViewport(ctx)
	if err != nil {
		return false, false, err
	}
	anchor, ok, err := h.cellAnchorBox(ctx, index, hasOutput)
	if err != nil {
		return false, false, err
	}
	if !ok {
		// Nothing to reveal
		return false, false, nil
	}

	predicted = PredictScroll(viewport, anchor.Bottom(), runScrollThreshold)

	if predicted && hooks.OnBeforeScroll != nil {
		if err := hooks.OnBeforeScroll(ctx, index); err != nil {
			return predicted, false, fmt.Errorf("before-scroll hook (cell %d): %w", index, err)
		}
	}

	before, err := h.notebookScrollTop(ctx)
	if err != nil {
		return predicted, false, err
	}
	after, err := h.scrollCellAnchor(ctx, index, hasOutput)
	if err != nil {
		return predicted, false, err
	}
	scrolled = after != before

	if predicted {
		if hooks.OnAfterScroll != nil {
			if err := hooks.OnAfterScroll(ctx, index); err != nil {
				return predicted, scrolled, fmt.Errorf("after-scroll hook (cell %d): %w", index, err)
			}
		}
		if !scrolled {
			h.diagf("run %s: cell %d: scroll predicted but position unchanged (top=%.0f)", runID, index, after)
		}
	}

	return predicted, scrolled, nil
}
