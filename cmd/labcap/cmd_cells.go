package main

import (
	"context"
	"fmt"
	"strconv"

	"labcap/internal/lab"
)

// CellInfo describes one notebook cell.
type CellInfo struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// CountResult is returned by the cells command.
type CountResult struct {
	Count int        `json:"count"`
	Cells []CellInfo `json:"cells"`
}

func cmdCells(cfg *Config) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		count, err := h.CellCount(ctx)
		if err != nil {
			return nil, err
		}
		result := CountResult{Count: count, Cells: []CellInfo{}}
		for i := 0; i < count; i++ {
			kind, err := h.CellKind(ctx, i)
			if err != nil {
				return nil, err
			}
			source, err := h.CellSource(ctx, i)
			if err != nil {
				return nil, err
			}
			result.Cells = append(result.Cells, CellInfo{Index: i, Kind: string(kind), Source: source})
		}
		return result, nil
	})
}

// ClearedResult is returned by the cells-clear command.
type ClearedResult struct {
	Cleared bool `json:"cleared"`
}

func cmdCellsClear(cfg *Config) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		if err := h.DeleteCells(ctx); err != nil {
			return nil, err
		}
		return ClearedResult{Cleared: true}, nil
	})
}

// AddedResult is returned by the cells-add command.
type AddedResult struct {
	Added bool   `json:"added"`
	Kind  string `json:"kind"`
}

func cmdCellsAdd(cfg *Config, kind, source string) int {
	ck, ok := parseCellKind(kind)
	if !ok {
		fmt.Fprintf(cfg.Stderr, "invalid cell kind: %s (want code, markdown or raw)\n", kind)
		return ExitError
	}
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		if err := h.AddCell(ctx, ck, source); err != nil {
			return nil, err
		}
		return AddedResult{Added: true, Kind: kind}, nil
	})
}

// ReplacedResult is returned by the cells-set command.
type ReplacedResult struct {
	Replaced bool `json:"replaced"`
	Index    int  `json:"index"`
}

func cmdCellsSet(cfg *Config, indexArg, kind, source string) int {
	index, err := strconv.Atoi(indexArg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "invalid index: %s\n", indexArg)
		return ExitError
	}
	ck, ok := parseCellKind(kind)
	if !ok {
		fmt.Fprintf(cfg.Stderr, "invalid cell kind: %s (want code, markdown or raw)\n", kind)
		return ExitError
	}
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		replaced, err := h.SetCell(ctx, index, ck, source)
		if err != nil {
			return nil, err
		}
		return ReplacedResult{Replaced: replaced, Index: index}, nil
	})
}

// SavedResult is returned by the save command.
type SavedResult struct {
	Saved bool `json:"saved"`
}

func cmdSave(cfg *Config) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		if err := h.Save(ctx); err != nil {
			return nil, err
		}
		return SavedResult{Saved: true}, nil
	})
}

func parseCellKind(kind string) (lab.CellKind, bool) {
	switch lab.CellKind(kind) {
	case lab.CellCode, lab.CellMarkdown, lab.CellRaw:
		return lab.CellKind(kind), true
	default:
		return "", false
	}
}
