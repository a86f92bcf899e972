package lab

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labcap/internal/testutil"
)

func outputNode(text, html string) map[string]interface{} {
	return map[string]interface{}{"text": text, "html": html}
}

func TestWaitForCellRunEmptySource(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "   \n\t")

	h := newTestHarness(page)
	output, err := h.WaitForCellRun(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, output)
	// Whitespace-only cells never run, so nothing may be polled.
	assert.Equal(t, 0, page.CallCount("jp-InputArea-prompt"))
	assert.Equal(t, 0, page.CallCount("jp-OutputArea-output"))
}

func TestWaitForCellRunCodeOutput(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "2 * 3")
	page.HandleSequence("jp-InputArea-prompt", "[ ]:", "[*]:", "[1]:")
	page.HandleValue("model.type", "code")
	page.HandleSequence("jp-OutputArea-output",
		nil,
		outputNode("6", "<pre>6</pre>"))

	h := newTestHarness(page)
	output, err := h.WaitForCellRun(context.Background(), 0, 0)
	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, 0, output.Index)
	assert.Equal(t, "<pre>6</pre>", output.HTML)
	assert.Equal(t, "6", output.Text())
}

func TestWaitForCellRunNoOutput(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "x = 1")
	page.HandleValue("jp-InputArea-prompt", "[2]:")
	page.HandleValue("model.type", "code")
	page.HandleValue("jp-OutputArea-output", nil)

	h := newTestHarness(page)
	output, err := h.WaitForCellRun(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Nil(t, output)
	// Absent output counts as completion only from the second poll on.
	assert.Equal(t, 2, page.CallCount("jp-OutputArea-output"))
}

func TestWaitForCellRunMarkdown(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "# Heading")
	page.HandleValue("jp-InputArea-prompt", "")
	page.HandleValue("model.type", "markdown")
	page.HandleValue("cell.ready", true)
	page.HandleSequence("rendered === true", false, true)

	h := newTestHarness(page)
	output, err := h.WaitForCellRun(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, output)
	// Markdown settles on rendering, never on the output area.
	assert.Equal(t, 0, page.CallCount("jp-OutputArea-output"))
	assert.Equal(t, 2, page.CallCount("rendered === true"))
}

func TestWaitForCellRunRaw(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "raw content")
	page.HandleValue("jp-InputArea-prompt", "")
	page.HandleValue("model.type", "raw")

	h := newTestHarness(page)
	output, err := h.WaitForCellRun(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Nil(t, output)
	assert.Equal(t, 0, page.CallCount("jp-OutputArea-output"))
}

func TestWaitForCellRunStalledWidget(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "show_widget()")
	page.HandleValue("jp-InputArea-prompt", "[3]:")
	page.HandleValue("model.type", "code")
	page.HandleValue("jp-OutputArea-output",
		outputNode("Loading widget...", "<div>Loading widget...</div>"))

	var diag bytes.Buffer
	h := New(page, WithPollInterval(time.Millisecond), WithDiagnostics(&diag))

	const stallTimeout = 20 * time.Millisecond
	start := time.Now()
	output, err := h.WaitForCellRun(context.Background(), 0, stallTimeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Nil(t, output)
	// The stall window starts at the first placeholder sighting.
	assert.GreaterOrEqual(t, elapsed, stallTimeout)
	assert.Contains(t, diag.String(), "widget placeholder")
}

func TestWaitForCellRunWidgetRendersBeforeStall(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "show_widget()")
	page.HandleValue("jp-InputArea-prompt", "[3]:")
	page.HandleValue("model.type", "code")
	page.HandleSequence("jp-OutputArea-output",
		outputNode("Loading widget...", "<div>Loading widget...</div>"),
		outputNode("Loading widget...", "<div>Loading widget...</div>"),
		outputNode("slider", "<div class=\"widget\">slider</div>"))

	h := newTestHarness(page)
	output, err := h.WaitForCellRun(context.Background(), 0, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, "slider", output.Text())
}

func TestWaitForCellRunPromptBlocks(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getSource", "import time; time.sleep(60)")
	page.HandleValue("jp-InputArea-prompt", "[*]:")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	h := newTestHarness(page)
	_, err := h.WaitForCellRun(ctx, 0, 0)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	// Still queued or running, so the output area is never consulted.
	assert.Equal(t, 0, page.CallCount("jp-OutputArea-output"))
}

func TestRunAll(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("notebook:run-all-cells", true)

	h := newTestHarness(page)
	require.NoError(t, h.RunAll(context.Background()))
	assert.Equal(t, 1, page.CallCount("notebook:run-all-cells"))
}

func TestWaitForAllCellsRun(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("widgets.length", float64(3))
	page.HandleValue("getSource", "")

	h := newTestHarness(page)
	require.NoError(t, h.WaitForAllCellsRun(context.Background(), 0))
	assert.Equal(t, 3, page.CallCount("getSource"))
}

func TestRunCellByCell(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("deselectAll", true)
	page.HandleValue("widgets.length", float64(2))
	page.HandleValue("activeCellIndex", true)
	page.HandleValue("notebook:run-cell", true)
	page.HandleValue("getSource", "print('ok')")
	page.HandleValue("jp-InputArea-prompt", "[1]:")
	page.HandleValue("model.type", "code")
	// The reveal probes embed the output selector too, so they must be
	// scripted ahead of the plain output probe.
	page.HandleValue("content.node.getBoundingClientRect",
		map[string]interface{}{"x": 0.0, "y": 0.0, "width": 800.0, "height": 400.0})
	// Anchor bottom 210 vs center 200: within the run threshold, no scroll.
	page.HandleValue("anchor.getBoundingClientRect",
		map[string]interface{}{"x": 0.0, "y": 190.0, "width": 800.0, "height": 20.0})
	page.HandleValue("scrollIntoView", float64(100))
	page.HandleValue("return nb.content.node.scrollTop", float64(100))
	page.HandleSequence("jp-OutputArea-output",
		nil, outputNode("ok", "<pre>ok</pre>"),
		nil, outputNode("ok", "<pre>ok</pre>"))

	var afterRuns []int
	hooks := &RunHooks{
		OnBeforeScroll: func(ctx context.Context, index int) error {
			t.Errorf("before-scroll hook fired for cell %d without a predicted scroll", index)
			return nil
		},
		OnAfterCellRun: func(ctx context.Context, index int) error {
			afterRuns = append(afterRuns, index)
			return nil
		},
	}

	h := newTestHarness(page)
	report, err := h.RunCellByCell(context.Background(), hooks)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(report.RunID)
	assert.NoError(t, parseErr)

	require.Len(t, report.Cells, 2)
	for i, cell := range report.Cells {
		assert.Equal(t, i, cell.Index)
		assert.Equal(t, CellCode, cell.Kind)
		assert.True(t, cell.HasOutput)
		assert.False(t, cell.ScrollPredicted)
		assert.False(t, cell.Scrolled)
	}
	assert.Equal(t, []int{0, 1}, afterRuns)
}

func TestRunCellByCellScrollHooks(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("deselectAll", true)
	page.HandleValue("widgets.length", float64(1))
	page.HandleValue("activeCellIndex", true)
	page.HandleValue("notebook:run-cell", true)
	page.HandleValue("getSource", "plot()")
	page.HandleValue("jp-InputArea-prompt", "[1]:")
	page.HandleValue("model.type", "code")
	page.HandleValue("content.node.getBoundingClientRect",
		map[string]interface{}{"x": 0.0, "y": 0.0, "width": 800.0, "height": 400.0})
	// Anchor bottom 600 vs center 200: far past the threshold, scroll predicted.
	page.HandleValue("anchor.getBoundingClientRect",
		map[string]interface{}{"x": 0.0, "y": 500.0, "width": 800.0, "height": 100.0})
	page.HandleValue("scrollIntoView", float64(300))
	page.HandleValue("return nb.content.node.scrollTop", float64(100))
	page.HandleSequence("jp-OutputArea-output",
		nil, outputNode("figure", "<img/>"))

	var events []string
	hooks := &RunHooks{
		OnBeforeScroll: func(ctx context.Context, index int) error {
			events = append(events, "before-scroll")
			return nil
		},
		OnAfterScroll: func(ctx context.Context, index int) error {
			events = append(events, "after-scroll")
			return nil
		},
		OnAfterCellRun: func(ctx context.Context, index int) error {
			events = append(events, "after-run")
			return nil
		},
	}

	h := newTestHarness(page)
	report, err := h.RunCellByCell(context.Background(), hooks)
	require.NoError(t, err)

	require.Len(t, report.Cells, 1)
	assert.True(t, report.Cells[0].ScrollPredicted)
	assert.True(t, report.Cells[0].Scrolled)
	assert.Equal(t, []string{"after-run", "before-scroll", "after-scroll"}, events)
}

func TestRunCellByCellHookErrorStops(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("deselectAll", true)
	page.HandleValue("widgets.length", float64(3))
	page.HandleValue("activeCellIndex", true)
	page.HandleValue("notebook:run-cell", true)
	page.HandleValue("getSource", "")
	page.HandleValue("model.type", "code")
	page.HandleValue("content.node.getBoundingClientRect",
		map[string]interface{}{"x": 0.0, "y": 0.0, "width": 800.0, "height": 400.0})
	page.HandleValue("anchor.getBoundingClientRect",
		map[string]interface{}{"x": 0.0, "y": 190.0, "width": 800.0, "height": 20.0})
	page.HandleValue("scrollIntoView", float64(0))
	page.HandleValue("return nb.content.node.scrollTop", float64(0))

	hookErr := errors.New("screenshot failed")
	hooks := &RunHooks{
		OnAfterCellRun: func(ctx context.Context, index int) error {
			if index == 1 {
				return hookErr
			}
			return nil
		},
	}

	h := newTestHarness(page)
	report, err := h.RunCellByCell(context.Background(), hooks)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hookErr))
	// Cell 0 completed; cell 1's hook aborted the run before cell 2 started.
	assert.Len(t, report.Cells, 1)
	assert.Equal(t, 2, page.CallCount("notebook:run-cell"))
}
