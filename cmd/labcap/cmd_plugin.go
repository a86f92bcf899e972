package main

import (
	"context"

	"labcap/internal/cdp"
	"labcap/internal/lab"
)

// ActivationResult is returned by the plugin command.
type ActivationResult struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func cmdPlugin(cfg *Config, id string) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		result, err := h.GetPlugin(ctx, id)
		if err != nil {
			return nil, err
		}
		return ActivationResult{ID: result.ID, State: string(result.State)}, nil
	})
}

// LaunchResult is returned by the launch-wait command.
type LaunchResult struct {
	Ready bool   `json:"ready"`
	Path  string `json:"path"`
}

func cmdLaunchWait(cfg *Config, path string) int {
	return withHarness(cfg, func(ctx context.Context, h *lab.Harness) (interface{}, error) {
		if err := h.WaitForLaunch(ctx, path); err != nil {
			return nil, err
		}
		if path == "" {
			path = "/lab"
		}
		return LaunchResult{Ready: true, Path: path}, nil
	})
}

// TabInfo describes one open page target.
type TabInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TabsResult is returned by the tabs command.
type TabsResult struct {
	Tabs []TabInfo `json:"tabs"`
}

func cmdTabs(cfg *Config) int {
	return withClient(cfg, func(ctx context.Context, client *cdp.Client) (interface{}, error) {
		pages, err := client.Pages(ctx)
		if err != nil {
			return nil, err
		}
		result := TabsResult{Tabs: []TabInfo{}}
		for _, p := range pages {
			result.Tabs = append(result.Tabs, TabInfo{ID: p.ID, Title: p.Title, URL: p.URL})
		}
		return result, nil
	})
}
