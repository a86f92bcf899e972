package lab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labcap/internal/testutil"
)

func TestNewDefaults(t *testing.T) {
	h := New(testutil.NewFakePage())
	assert.Equal(t, DefaultPollInterval, h.PollInterval())
}

func TestWithPollInterval(t *testing.T) {
	h := New(testutil.NewFakePage(), WithPollInterval(5*time.Millisecond))
	assert.Equal(t, 5*time.Millisecond, h.PollInterval())

	// Non-positive intervals keep the default.
	h = New(testutil.NewFakePage(), WithPollInterval(0))
	assert.Equal(t, DefaultPollInterval, h.PollInterval())
}

func TestIsElementVisible(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getComputedStyle", true)

	h := newTestHarness(page)
	visible, err := h.IsElementVisible(context.Background(), ".jp-Notebook")
	require.NoError(t, err)
	assert.True(t, visible)

	calls := page.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], `".jp-Notebook"`)
}

func TestIsElementVisibleHidden(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("getComputedStyle", false)

	h := newTestHarness(page)
	visible, err := h.IsElementVisible(context.Background(), ".gone")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestSleep(t *testing.T) {
	h := newTestHarness(testutil.NewFakePage())
	start := time.Now()
	require.NoError(t, h.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newTestHarness(testutil.NewFakePage())
	err := h.Sleep(ctx, time.Minute)
	assert.True(t, errors.Is(err, context.Canceled))
}
