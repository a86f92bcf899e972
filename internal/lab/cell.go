package lab

import (
	"context"
	"encoding/json"
	"fmt"
)

// notebookExpr reaches the current notebook panel in the shell.
const notebookExpr = appExpr + ".shell.currentWidget"

// jsString embeds s into JavaScript source as a string literal. JSON string
// escaping is a strict subset of JS, so this is safe for arbitrary content
// (cell sources in particular).
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// CellCount returns the number of cells in the active notebook.
func (h *Harness) CellCount(ctx context.Context) (int, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content || !nb.content.widgets) return null;
			return nb.content.widgets.length;
		})()
	`, notebookExpr))
	if err != nil {
		return 0, err
	}
	count, ok := value.(float64)
	if !ok {
		return 0, ErrNoNotebook
	}
	return int(count), nil
}

// CellKind returns the kind of the cell at index.
func (h *Harness) CellKind(ctx context.Context, index int) (CellKind, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			const cell = nb.content.widgets[%d];
			return cell ? cell.model.type : null;
		})()
	`, notebookExpr, index))
	if err != nil {
		return "", err
	}
	kind, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("no cell at index %d", index)
	}
	return CellKind(kind), nil
}

// CellSource returns the source text of the cell at index.
func (h *Harness) CellSource(ctx context.Context, index int) (string, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			const cell = nb.content.widgets[%d];
			return cell ? cell.model.sharedModel.getSource() : null;
		})()
	`, notebookExpr, index))
	if err != nil {
		return "", err
	}
	source, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("no cell at index %d", index)
	}
	return source, nil
}

// DeleteCells removes every cell from the active notebook. The host model
// keeps one empty cell behind, as the delete command always does.
func (h *Harness) DeleteCells(ctx context.Context) error {
	_, err := h.page.EvalAsync(ctx, fmt.Sprintf(`
		(async function() {
			const app = %s;
			await app.commands.execute('notebook:select-all');
			await app.commands.execute('notebook:delete-cell');
			return true;
		})()
	`, appExpr))
	if err != nil {
		return fmt.Errorf("deleting cells: %w", err)
	}
	return nil
}

// AddCell appends a cell of the given kind with the given source. The
// insertion runs inside the shared model's transaction boundary so the
// mutation lands as one undo-coherent compound operation.
func (h *Harness) AddCell(ctx context.Context, kind CellKind, source string) error {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content || !nb.content.model) return null;
			const shared = nb.content.model.sharedModel;
			shared.transact(() => {
				shared.insertCell(shared.cells.length, {
					cell_type: %s,
					source: %s
				});
			});
			nb.content.update();
			return true;
		})()
	`, notebookExpr, jsString(string(kind)), jsString(source)))
	if err != nil {
		return fmt.Errorf("adding cell: %w", err)
	}
	if value != true {
		return ErrNoNotebook
	}
	return nil
}

// SetCell replaces the cell at index with a new cell of the given kind and
// source. It reports false, without touching the model, when the index is
// out of range. The replace happens inside one transaction; the commit is
// tied to the transact scope, so it lands even if the callback faults
// mid-mutation.
func (h *Harness) SetCell(ctx context.Context, index int, kind CellKind, source string) (bool, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content || !nb.content.model) return null;
			const shared = nb.content.model.sharedModel;
			if (%d < 0 || %d >= shared.cells.length) return false;
			shared.transact(() => {
				shared.deleteCell(%d);
				shared.insertCell(%d, {
					cell_type: %s,
					source: %s
				});
			});
			nb.content.update();
			return true;
		})()
	`, notebookExpr, index, index, index, index, jsString(string(kind)), jsString(source)))
	if err != nil {
		return false, fmt.Errorf("replacing cell %d: %w", index, err)
	}
	switch value {
	case true:
		return true, nil
	case false:
		return false, nil
	default:
		return false, ErrNoNotebook
	}
}

// Save saves the active notebook.
func (h *Harness) Save(ctx context.Context) error {
	_, err := h.page.EvalAsync(ctx, fmt.Sprintf(
		"%s.commands.execute('docmanager:save').then(() => true)", appExpr))
	if err != nil {
		return fmt.Errorf("saving notebook: %w", err)
	}
	return nil
}

// deselectAllCells clears the notebook selection.
func (h *Harness) deselectAllCells(ctx context.Context) error {
	_, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			nb.content.deselectAll();
			return true;
		})()
	`, notebookExpr))
	return err
}

// activateCell makes the cell at index the active cell.
func (h *Harness) activateCell(ctx context.Context, index int) error {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			nb.content.activeCellIndex = %d;
			return nb.content.activeCellIndex === %d;
		})()
	`, notebookExpr, index, index))
	if err != nil {
		return err
	}
	if value != true {
		return fmt.Errorf("activating cell %d", index)
	}
	return nil
}

// runActiveCell triggers a run of the active cell against the current
// execution session. Completion is not awaited beyond command dispatch;
// the synchronizer owns settling.
func (h *Harness) runActiveCell(ctx context.Context) error {
	_, err := h.page.EvalAsync(ctx, fmt.Sprintf(
		"%s.commands.execute('notebook:run-cell').then(() => true)", appExpr))
	if err != nil {
		return fmt.Errorf("running cell: %w", err)
	}
	return nil
}

// cellPromptText returns the input-area prompt text of the cell at index,
// or "" when the prompt node is absent.
func (h *Harness) cellPromptText(ctx context.Context, index int) (string, error) {
	value, err := h.page.Eval(ctx, fmt.Sprintf(`
		(function() {
			const nb = %s;
			if (!nb || !nb.content) return null;
			const cell = nb.content.widgets[%d];
			if (!cell) return null;
			const prompt = cell.node.querySelector('.jp-InputArea-prompt');
			return prompt ? (prompt.textContent || '').trim() : '';
		})()
	`, notebookExpr, index))
	if err != nil {
		return "", err
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("no cell at index %d", index)
	}
	return text, nil
}
