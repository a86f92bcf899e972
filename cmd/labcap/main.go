// labcap is the external driver surface for the JupyterLab synchronization
// harness: it connects to a browser over the DevTools protocol, binds to the
// page running JupyterLab, and exposes the harness's wait/run primitives as
// commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"labcap/internal/cdp"
	"labcap/internal/lab"
)

// Version is the release version, overridable at link time.
var Version = "0.1.0-dev"

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
)

// Config holds the CLI configuration.
type Config struct {
	Port    int
	Host    string
	Timeout time.Duration
	Output  string // json, ndjson, text
	Target  string // target index or ID

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns the built-in defaults. The config file and
// environment are applied later in the config chain.
func DefaultConfig() *Config {
	return &Config{
		Port:    9222,
		Host:    "localhost",
		Timeout: 60 * time.Second,
		Output:  "json",
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues snapshots values parsed from CLI flags before the rest of the
// config chain may overwrite them.
type flagValues struct {
	port    int
	host    string
	timeout time.Duration
	output  string
	target  string
}

func run(args []string, cfg *Config) int {
	var fv flagValues
	fs := flag.NewFlagSet("labcap", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.IntVar(&fv.port, "port", cfg.Port, "Browser debug port (env: LABCAP_PORT)")
	fs.StringVar(&fv.host, "host", cfg.Host, "Browser debug host (env: LABCAP_HOST)")
	fs.DurationVar(&fv.timeout, "timeout", cfg.Timeout, "Command timeout")
	fs.StringVar(&fv.output, "output", cfg.Output, "Output format: json, ndjson, text")
	fs.StringVar(&fv.target, "target", cfg.Target, "Target page (index or ID)")

	fs.Usage = func() { printUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	// Config precedence: built-in defaults < .labcaprc < env vars < CLI flags
	loadConfigFile(cfg)
	applyEnvVars(cfg, explicit)
	reapplyExplicitFlags(cfg, &fv, explicit)

	remaining := fs.Args()
	if len(remaining) < 1 {
		printUsage(cfg, fs)
		return ExitError
	}

	cmd := remaining[0]
	info, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", cmd)
		return ExitError
	}
	return info.Run(cfg, remaining[1:])
}

// applyEnvVars applies environment variables, skipping fields already set
// by explicit CLI flags.
func applyEnvVars(cfg *Config, explicit map[string]bool) {
	if !explicit["port"] {
		if v := os.Getenv("LABCAP_PORT"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				cfg.Port = i
			}
		}
	}
	if !explicit["host"] {
		if v := os.Getenv("LABCAP_HOST"); v != "" {
			cfg.Host = v
		}
	}
}

// reapplyExplicitFlags re-applies flag values explicitly set on the command
// line, since config file loading may have overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["port"] {
		cfg.Port = fv.port
	}
	if explicit["host"] {
		cfg.Host = fv.host
	}
	if explicit["timeout"] {
		cfg.Timeout = fv.timeout
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["target"] {
		cfg.Target = fv.target
	}
}

// resolveTarget picks the page target from cfg.Target: empty selects the
// first page, a number is an index, anything else a target ID.
func resolveTarget(ctx context.Context, client *cdp.Client, cfg *Config) (*cdp.TargetInfo, error) {
	pages, err := client.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages available")
	}

	if cfg.Target == "" {
		return &pages[0], nil
	}

	if idx, err := strconv.Atoi(cfg.Target); err == nil {
		if idx < 0 || idx >= len(pages) {
			return nil, fmt.Errorf("invalid target index: %d (have %d pages)", idx, len(pages))
		}
		return &pages[idx], nil
	}

	for i := range pages {
		if pages[i].ID == cfg.Target {
			return &pages[i], nil
		}
	}

	return nil, fmt.Errorf("invalid target: %s (not found)", cfg.Target)
}

// withClient executes a function with a connected protocol client.
func withClient(cfg *Config, fn func(ctx context.Context, client *cdp.Client) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := cdp.Connect(ctx, cfg.Host, cfg.Port)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	defer client.Close()

	result, err := fn(ctx, client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintln(cfg.Stderr, "error: timeout")
			return ExitTimeout
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	return outputResult(cfg, result)
}

// withHarness executes a function with a harness bound to the resolved page.
func withHarness(cfg *Config, fn func(ctx context.Context, h *lab.Harness) (interface{}, error)) int {
	return withClient(cfg, func(ctx context.Context, client *cdp.Client) (interface{}, error) {
		target, err := resolveTarget(ctx, client, cfg)
		if err != nil {
			return nil, err
		}
		h := lab.New(client.Page(target.ID), lab.WithDiagnostics(cfg.Stderr))
		return fn(ctx, h)
	})
}
