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

func TestWaitForLaunch(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("hasPlugin", true)
	page.HandleValue("isPluginActivated", true)
	// The app handle shows up on the second poll.
	page.HandleSequence("typeof window.jupyterapp", false, true)
	page.HandleValue("docmanager:close-all", true)
	page.HandleSequence("location.pathname", "/tree", "/lab/workspaces/auto")

	h := newTestHarness(page)
	require.NoError(t, h.WaitForLaunch(context.Background(), ""))

	assert.Equal(t, 1, page.CallCount("docmanager:close-all"))
	assert.Equal(t, 2, page.CallCount("hasPlugin"))
	assert.Equal(t, 2, page.CallCount("location.pathname"))
}

func TestWaitForLaunchCustomPath(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("hasPlugin", true)
	page.HandleValue("isPluginActivated", true)
	page.HandleValue("typeof window.jupyterapp", true)
	page.HandleValue("docmanager:close-all", true)
	page.HandleValue("location.pathname", "/user/alice/lab")

	h := newTestHarness(page)
	require.NoError(t, h.WaitForLaunch(context.Background(), "/user/alice/lab"))
}

func TestWaitForLaunchAppNeverAppears(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("typeof window.jupyterapp", false)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	h := newTestHarness(page)
	err := h.WaitForLaunch(ctx, "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitForLaunchMissingCapability(t *testing.T) {
	page := testutil.NewFakePage()
	page.HandleValue("hasPlugin", false)
	page.HandleValue("typeof window.jupyterapp", true)

	h := newTestHarness(page)
	err := h.WaitForLaunch(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPluginNotFound))
	assert.Equal(t, 0, page.CallCount("docmanager:close-all"))
}
