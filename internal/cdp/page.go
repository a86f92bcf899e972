package cdp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Eval evaluates a JavaScript expression in a target's page context and
// returns the result by value.
func (c *Client) Eval(ctx context.Context, targetID string, expression string) (*EvalResult, error) {
	return c.eval(ctx, targetID, expression, false)
}

// EvalAsync evaluates an expression that yields a promise and resolves it
// before returning.
func (c *Client) EvalAsync(ctx context.Context, targetID string, expression string) (*EvalResult, error) {
	return c.eval(ctx, targetID, expression, true)
}

func (c *Client) eval(ctx context.Context, targetID string, expression string, awaitPromise bool) (*EvalResult, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	result, err := c.CallSession(ctx, sessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  awaitPromise,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	var evalResp struct {
		Result struct {
			Type  string      `json:"type"`
			Value interface{} `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(result, &evalResp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if evalResp.ExceptionDetails != nil {
		text := evalResp.ExceptionDetails.Text
		if evalResp.ExceptionDetails.Exception != nil && evalResp.ExceptionDetails.Exception.Description != "" {
			text = evalResp.ExceptionDetails.Exception.Description
		}
		return nil, fmt.Errorf("JS exception: %s", text)
	}

	return &EvalResult{
		Value: evalResp.Result.Value,
		Type:  evalResp.Result.Type,
	}, nil
}

// Page is a client bound to a single page target. It satisfies the page
// interface consumed by the notebook harness.
type Page struct {
	client   *Client
	targetID string
}

// Page binds the client to a target.
func (c *Client) Page(targetID string) *Page {
	return &Page{client: c, targetID: targetID}
}

// Eval evaluates an expression in the bound page and returns its value.
func (p *Page) Eval(ctx context.Context, expression string) (interface{}, error) {
	result, err := p.client.Eval(ctx, p.targetID, expression)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// EvalAsync evaluates a promise-yielding expression in the bound page and
// returns the resolved value.
func (p *Page) EvalAsync(ctx context.Context, expression string) (interface{}, error) {
	result, err := p.client.EvalAsync(ctx, p.targetID, expression)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// URL returns the current page URL.
func (p *Page) URL(ctx context.Context) (string, error) {
	value, err := p.Eval(ctx, "document.location.href")
	if err != nil {
		return "", err
	}
	url, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected URL type: %T", value)
	}
	return url, nil
}
