package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"labcap/internal/lab"
)

// WaitResult is returned by the wait and waitx commands.
type WaitResult struct {
	Found    bool   `json:"found"`
	Selector string `json:"selector,omitempty"`
	XPath    string `json:"xpath,omitempty"`
	Text     string `json:"text"`
}

// WaitGoneResult is returned by wait --hidden.
type WaitGoneResult struct {
	Gone     bool   `json:"gone"`
	Selector string `json:"selector,omitempty"`
	XPath    string `json:"xpath,omitempty"`
}

func cmdWait(cfg *Config, args []string, xpath bool) int {
	name := "wait"
	if xpath {
		name = "waitx"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	hidden := fs.Bool("hidden", false, "Wait for absence instead of presence")
	timeout := fs.Duration("timeout", 30*time.Second, "Max wait time (0 = unbounded)")
	interval := fs.Duration("interval", 0, "Poll interval (0 = default)")
	root := fs.String("root", "", "Subtree root selector")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintf(cfg.Stderr, "usage: labcap %s <expression> [--hidden] [--timeout <duration>] [--interval <duration>] [--root <selector>]\n", name)
		return ExitError
	}
	expr := remaining[0]

	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		opts := &lab.WaitOptions{
			Root:     *root,
			Hidden:   *hidden,
			Interval: *interval,
			Timeout:  *timeout,
		}

		var (
			ref *lab.NodeRef
			err error
		)
		if xpath {
			ref, err = h.WaitForXPath(ctx, expr, opts)
		} else {
			ref, err = h.WaitForSelector(ctx, expr, opts)
		}
		if err != nil {
			return nil, err
		}

		if *hidden {
			result := WaitGoneResult{Gone: true}
			if xpath {
				result.XPath = expr
			} else {
				result.Selector = expr
			}
			return result, nil
		}

		result := WaitResult{Found: true, Text: ref.Text}
		if xpath {
			result.XPath = ref.XPath
		} else {
			result.Selector = ref.Selector
		}
		return result, nil
	})
}

// SleepResult is returned by the sleep command.
type SleepResult struct {
	Slept string `json:"slept"`
}

func cmdSleep(cfg *Config, arg string) int {
	d, err := time.ParseDuration(arg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "invalid duration: %s\n", arg)
		return ExitError
	}
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		if err := h.Sleep(ctx, d); err != nil {
			return nil, err
		}
		return SleepResult{Slept: d.String()}, nil
	})
}

// VisibleResult is returned by the visible command.
type VisibleResult struct {
	Visible  bool   `json:"visible"`
	Selector string `json:"selector"`
}

func cmdVisible(cfg *Config, selector string) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		visible, err := h.IsElementVisible(ctx, selector)
		if err != nil {
			return nil, err
		}
		return VisibleResult{Visible: visible, Selector: selector}, nil
	})
}
