package main

import (
	"flag"
	"fmt"
	"sort"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name     string
	Desc     string
	Category string
	Run      func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands = map[string]CommandInfo{
	// Startup & plugins
	"plugin": {Name: "plugin", Desc: "Resolve (and activate) a plugin by ID", Category: "Startup & plugins", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: labcap plugin <id>")
		}
		return cmdPlugin(cfg, args[0])
	}},
	"launch-wait": {Name: "launch-wait", Desc: "Wait for the application to launch and route", Category: "Startup & plugins", Run: func(cfg *Config, args []string) int {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return cmdLaunchWait(cfg, path)
	}},
	"tabs": {Name: "tabs", Desc: "List open page targets", Category: "Startup & plugins", Run: func(cfg *Config, args []string) int { return cmdTabs(cfg) }},
	"version": {Name: "version", Desc: "Print the version", Category: "Startup & plugins", Run: func(cfg *Config, args []string) int {
		return outputResult(cfg, VersionResult{Version: Version})
	}},

	// Waiting
	"wait": {Name: "wait", Desc: "Wait for a selector (or its absence)", Category: "Waiting", Run: func(cfg *Config, args []string) int {
		return cmdWait(cfg, args, false)
	}},
	"waitx": {Name: "waitx", Desc: "Wait for an XPath match (or its absence)", Category: "Waiting", Run: func(cfg *Config, args []string) int {
		return cmdWait(cfg, args, true)
	}},
	"sleep": {Name: "sleep", Desc: "Sleep for a duration", Category: "Waiting", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: labcap sleep <duration>")
		}
		return cmdSleep(cfg, args[0])
	}},
	"visible": {Name: "visible", Desc: "Check if an element is visible", Category: "Waiting", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: labcap visible <selector>")
		}
		return cmdVisible(cfg, args[0])
	}},

	// Notebook cells
	"cells": {Name: "cells", Desc: "List cells of the active notebook", Category: "Notebook cells", Run: func(cfg *Config, args []string) int { return cmdCells(cfg) }},
	"cells-clear": {Name: "cells-clear", Desc: "Delete all notebook cells", Category: "Notebook cells", Run: func(cfg *Config, args []string) int { return cmdCellsClear(cfg) }},
	"cells-add": {Name: "cells-add", Desc: "Append a cell", Category: "Notebook cells", Run: func(cfg *Config, args []string) int {
		if len(args) < 1 {
			return cmdMissingArg(cfg, "usage: labcap cells-add <kind> [source]")
		}
		source := ""
		if len(args) > 1 {
			source = args[1]
		}
		return cmdCellsAdd(cfg, args[0], source)
	}},
	"cells-set": {Name: "cells-set", Desc: "Replace a cell by index", Category: "Notebook cells", Run: func(cfg *Config, args []string) int {
		if len(args) < 2 {
			return cmdMissingArg(cfg, "usage: labcap cells-set <index> <kind> [source]")
		}
		source := ""
		if len(args) > 2 {
			source = args[2]
		}
		return cmdCellsSet(cfg, args[0], args[1], source)
	}},
	"save": {Name: "save", Desc: "Save the active notebook", Category: "Notebook cells", Run: func(cfg *Config, args []string) int { return cmdSave(cfg) }},

	// Running
	"run": {Name: "run", Desc: "Trigger bulk run-all (no synchronization)", Category: "Running", Run: func(cfg *Config, args []string) int { return cmdRun(cfg) }},
	"run-seq": {Name: "run-seq", Desc: "Run the notebook cell by cell, synchronized", Category: "Running", Run: func(cfg *Config, args []string) int { return cmdRunSeq(cfg) }},
	"wait-run": {Name: "wait-run", Desc: "Wait for all cells to settle (after run)", Category: "Running", Run: func(cfg *Config, args []string) int { return cmdWaitRun(cfg, args) }},
	"wait-cell": {Name: "wait-cell", Desc: "Wait for one cell's run to settle", Category: "Running", Run: func(cfg *Config, args []string) int { return cmdWaitCell(cfg, args) }},
}

func cmdMissingArg(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

// printUsage prints a category-grouped command summary.
func printUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: labcap [flags] <command> [args]")
	fmt.Fprintln(cfg.Stderr)

	byCategory := map[string][]CommandInfo{}
	for _, info := range commands {
		byCategory[info.Category] = append(byCategory[info.Category], info)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(cfg.Stderr, "%s:\n", category)
		infos := byCategory[category]
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
		for _, info := range infos {
			fmt.Fprintf(cfg.Stderr, "  %-12s %s\n", info.Name, info.Desc)
		}
		fmt.Fprintln(cfg.Stderr)
	}

	fmt.Fprintln(cfg.Stderr, "Flags:")
	fs.PrintDefaults()
}
