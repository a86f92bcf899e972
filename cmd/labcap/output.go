package main

import (
	"encoding/json"
	"fmt"
)

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

// Implement TextValuer for scalar-ish result types.

// VersionResult is returned by the version command.
type VersionResult struct {
	Version string `json:"version"`
}

func (r VersionResult) TextValue() string    { return r.Version }
func (r ActivationResult) TextValue() string { return r.State }
func (r LaunchResult) TextValue() string     { return r.Path }
func (r WaitResult) TextValue() string       { return r.Text }
func (r WaitGoneResult) TextValue() string   { return fmt.Sprintf("%t", r.Gone) }
func (r SleepResult) TextValue() string      { return r.Slept }
func (r VisibleResult) TextValue() string    { return fmt.Sprintf("%t", r.Visible) }
func (r CountResult) TextValue() string      { return fmt.Sprintf("%d", r.Count) }
func (r ClearedResult) TextValue() string    { return fmt.Sprintf("%t", r.Cleared) }
func (r AddedResult) TextValue() string      { return fmt.Sprintf("%t", r.Added) }
func (r ReplacedResult) TextValue() string   { return fmt.Sprintf("%t", r.Replaced) }
func (r SavedResult) TextValue() string      { return fmt.Sprintf("%t", r.Saved) }
func (r TriggeredResult) TextValue() string  { return fmt.Sprintf("%t", r.Triggered) }
func (r SettledResult) TextValue() string    { return fmt.Sprintf("%t", r.Settled) }
func (r CellWaitResult) TextValue() string   { return r.Text }

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			// Fall back to JSON for complex types
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}
