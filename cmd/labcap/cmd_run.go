package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"labcap/internal/lab"
)

// TriggeredResult is returned by the run command.
type TriggeredResult struct {
	Triggered bool `json:"triggered"`
}

func cmdRun(cfg *Config) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		if err := h.RunAll(ctx); err != nil {
			return nil, err
		}
		return TriggeredResult{Triggered: true}, nil
	})
}

// run-seq returns the orchestrator's run report as-is.
func cmdRunSeq(cfg *Config) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		report, err := h.RunCellByCell(ctx, nil)
		if err != nil {
			return nil, err
		}
		return report, nil
	})
}

// SettledResult is returned by the wait-run command.
type SettledResult struct {
	Settled bool `json:"settled"`
	Cells   int  `json:"cells"`
}

func cmdWaitRun(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("wait-run", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	timeout := fs.Duration("timeout", 0, "Stalled-widget timeout per cell (0 = default)")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		count, err := h.CellCount(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.WaitForAllCellsRun(ctx, *timeout); err != nil {
			return nil, err
		}
		return SettledResult{Settled: true, Cells: count}, nil
	})
}

// CellWaitResult is returned by the wait-cell command.
type CellWaitResult struct {
	Index     int    `json:"index"`
	HasOutput bool   `json:"hasOutput"`
	Text      string `json:"text"`
	HTML      string `json:"html,omitempty"`
}

func cmdWaitCell(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("wait-cell", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	timeout := fs.Duration("timeout", 0, "Stalled-widget timeout (0 = default)")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintln(cfg.Stderr, "usage: labcap wait-cell <index> [--timeout <duration>]")
		return ExitError
	}
	index, err := strconv.Atoi(remaining[0])
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "invalid index: %s\n", remaining[0])
		return ExitError
	}

	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		output, err := h.WaitForCellRun(ctx, index, *timeout)
		if err != nil {
			return nil, err
		}
		result := CellWaitResult{Index: index}
		if output != nil {
			result.HasOutput = true
			result.Text = output.Text()
			result.HTML = output.HTML
		}
		return result, nil
	})
}
