package lab

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labcap/internal/testutil"
)

func TestJSString(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"say \"hi\"\nbye"`, jsString("say \"hi\"\nbye"))
	assert.Equal(t, `""`, jsString(""))
}

func TestCellCount(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("widgets.length", float64(3))

	h := newTestHarness(page)
	count, err := h.CellCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCellCountNoNotebook(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("widgets.length", nil)

	h := newTestHarness(page)
	_, err := h.CellCount(context.Background())
	assert.True(t, errors.Is(err, ErrNoNotebook))
}

func TestCellKind(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("model.type", "markdown")

	h := newTestHarness(page)
	kind, err := h.CellKind(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, CellMarkdown, kind)
}

func TestCellSource(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "print('hello')")

	h := newTestHarness(page)
	source, err := h.CellSource(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "print('hello')", source)
}

func TestCellSourceMissingCell(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", nil)

	h := newTestHarness(page)
	_, err := h.CellSource(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 9")
}

func TestAddCellEscapesSource(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("insertCell", true)

	h := newTestHarness(page)
	err := h.AddCell(context.Background(), CellCode, "print(\"a\\nb\")")
	require.NoError(t, err)

	calls := page.Calls()
	require.Len(t, calls, 1)
	// The source must land as a JS string literal, not raw text.
	assert.Contains(t, calls[0], `"print(\"a\\nb\")"`)
	assert.Contains(t, calls[0], "transact")
}

func TestAddCellNoNotebook(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("insertCell", nil)

	h := newTestHarness(page)
	err := h.AddCell(context.Background(), CellCode, "1 + 1")
	assert.True(t, errors.Is(err, ErrNoNotebook))
}

func TestSetCellOutOfRange(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("deleteCell", false)

	h := newTestHarness(page)
	replaced, err := h.SetCell(context.Background(), 42, CellCode, "x = 1")
	require.NoError(t, err)
	assert.False(t, replaced)
}

func TestSetCellReplaces(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("deleteCell", true)

	h := newTestHarness(page)
	replaced, err := h.SetCell(context.Background(), 0, CellMarkdown, "# Title")
	require.NoError(t, err)
	assert.True(t, replaced)

	calls := page.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "transact")
	assert.Contains(t, calls[0], `"markdown"`)
}

func TestDeleteCells(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("notebook:select-all", true)

	h := newTestHarness(page)
	require.NoError(t, h.DeleteCells(context.Background()))

	calls := page.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "notebook:delete-cell")
}

func TestSave(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("docmanager:save", true)

	h := newTestHarness(page)
	require.NoError(t, h.Save(context.Background()))
	assert.Equal(t, 1, page.CallCount("docmanager:save"))
}
