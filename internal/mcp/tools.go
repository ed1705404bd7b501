package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aistudio-bridge/internal/browser"
	"aistudio-bridge/internal/journal"
	"aistudio-bridge/internal/params"
)

// decodeRequest converts raw tool arguments into a request through the JSON
// layer so the overloaded fields (stop, reasoning_effort) decode exactly as
// they would from an API body.
func decodeRequest(args map[string]interface{}) (*params.Request, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	var req params.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func requestSchema(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"model":             map[string]interface{}{"type": "string", "description": "Model ID used to resolve the output-token ceiling"},
		"temperature":       map[string]interface{}{"type": "number", "description": "Sampling temperature, clamped to [0, 2]"},
		"max_output_tokens": map[string]interface{}{"type": "integer", "description": "Output token limit, clamped to the model ceiling"},
		"top_p":             map[string]interface{}{"type": "number", "description": "Nucleus sampling mass, clamped to [0, 1]"},
		"stop": map[string]interface{}{
			"description": "Stop sequence or list of stop sequences",
		},
		"reasoning_effort": map[string]interface{}{
			"description": "Thinking effort: a token budget, 0 to disable, -1 or \"none\" for unbounded, or low/medium/high",
		},
		"thinking_config": map[string]interface{}{
			"type":        "object",
			"description": "Structured thinking directive; include_thoughts plus optional thinking_budget",
		},
		"tools": map[string]interface{}{
			"type":        "array",
			"description": "Tool declarations; google_search_retrieval or a googleSearch function enables search grounding",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

// AdjustParametersTool reconciles the playground controls against the given
// request without submitting anything.
type AdjustParametersTool struct {
	server *Server
}

func (t *AdjustParametersTool) Name() string { return "adjust_parameters" }

func (t *AdjustParametersTool) Description() string {
	return "Reconcile AI Studio playground parameters (temperature, token limit, top-p, stop sequences, thinking, search grounding) with the given request. Controls already at the desired value are left untouched."
}

func (t *AdjustParametersTool) InputSchema() map[string]interface{} {
	return requestSchema(nil)
}

func (t *AdjustParametersTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	req, err := decodeRequest(args)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}

	ctrl, reqID, err := t.server.controller(ctx)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}

	if err := ctrl.AdjustAll(ctx, req); err != nil {
		return map[string]interface{}{"success": false, "request_id": reqID, "error": err.Error()}, nil
	}
	return map[string]interface{}{"success": true, "request_id": reqID}, nil
}

// SubmitPromptTool fills the prompt and fires submission on the already
// reconciled surface.
type SubmitPromptTool struct {
	server *Server
}

func (t *SubmitPromptTool) Name() string { return "submit_prompt" }

func (t *SubmitPromptTool) Description() string {
	return "Fill the playground prompt and submit it. Tries the run button, Enter, and Ctrl+Enter until one shows submission evidence."
}

func (t *SubmitPromptTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"prompt": map[string]interface{}{"type": "string", "description": "Prompt text to submit"},
		},
		"required": []string{"prompt"},
	}
}

func (t *SubmitPromptTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	prompt := getStringArg(args, "prompt")
	if prompt == "" {
		return map[string]interface{}{"success": false, "error": "prompt is required"}, nil
	}

	ctrl, reqID, err := t.server.controller(ctx)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}

	if err := ctrl.SubmitPrompt(ctx, prompt); err != nil {
		return map[string]interface{}{"success": false, "request_id": reqID, "error": err.Error()}, nil
	}
	return map[string]interface{}{"success": true, "request_id": reqID}, nil
}

// GetResponseTool waits for the current model turn to complete and returns
// its text.
type GetResponseTool struct {
	server *Server
}

func (t *GetResponseTool) Name() string { return "get_response" }

func (t *GetResponseTool) Description() string {
	return "Wait for the in-flight playground response to complete and return its text."
}

func (t *GetResponseTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *GetResponseTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ctrl, reqID, err := t.server.controller(ctx)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}

	text, err := ctrl.GetResponse(ctx)
	if err != nil {
		return map[string]interface{}{"success": false, "request_id": reqID, "error": err.Error()}, nil
	}
	return map[string]interface{}{"success": true, "request_id": reqID, "text": text}, nil
}

// GenerateTool runs the full pipeline: reconcile parameters, submit the
// prompt, and wait for the response.
type GenerateTool struct {
	server *Server
}

func (t *GenerateTool) Name() string { return "generate" }

func (t *GenerateTool) Description() string {
	return "Reconcile parameters, submit the prompt, and return the completed response text in one call."
}

func (t *GenerateTool) InputSchema() map[string]interface{} {
	return requestSchema(map[string]interface{}{
		"prompt": map[string]interface{}{"type": "string", "description": "Prompt text to submit"},
	})
}

func (t *GenerateTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	req, err := decodeRequest(args)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}
	if req.Prompt == "" {
		return map[string]interface{}{"success": false, "error": "prompt is required"}, nil
	}

	ctrl, reqID, err := t.server.controller(ctx)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}

	if err := ctrl.AdjustAll(ctx, req); err != nil {
		return map[string]interface{}{"success": false, "request_id": reqID, "stage": "adjust", "error": err.Error()}, nil
	}
	if err := ctrl.SubmitPrompt(ctx, req.Prompt); err != nil {
		return map[string]interface{}{"success": false, "request_id": reqID, "stage": "submit", "error": err.Error()}, nil
	}
	text, err := ctrl.GetResponse(ctx)
	if err != nil {
		return map[string]interface{}{"success": false, "request_id": reqID, "stage": "response", "error": err.Error()}, nil
	}
	return map[string]interface{}{"success": true, "request_id": reqID, "text": text}, nil
}

// DiagnoseReconciliationTool surfaces what the journal knows: controls whose
// writes keep failing verification, plus recent failure facts.
type DiagnoseReconciliationTool struct {
	journal *journal.Journal
}

func (t *DiagnoseReconciliationTool) Name() string { return "diagnose_reconciliation" }

func (t *DiagnoseReconciliationTool) Description() string {
	return "Report controls with repeated verification failures and recent reconciliation facts from the journal."
}

func (t *DiagnoseReconciliationTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"window_minutes": map[string]interface{}{"type": "integer", "description": "How far back to look for failure facts (default 30)"},
			"include_facts":  map[string]interface{}{"type": "boolean", "description": "Include the raw facts, not just the flaky-control summary (default true)"},
		},
	}
}

func (t *DiagnoseReconciliationTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if t.journal == nil {
		return map[string]interface{}{"success": false, "error": "journal not configured"}, nil
	}

	window := getIntArg(args, "window_minutes", 30)
	after := time.Now().Add(-time.Duration(window) * time.Minute)

	result := map[string]interface{}{
		"success":        true,
		"flaky_controls": t.journal.FlakyControls(ctx),
	}
	if getBoolArg(args, "include_facts", true) {
		result["verify_failures"] = t.journal.QueryTemporal("verify_failed", after, time.Time{})
		result["skipped_steps"] = t.journal.QueryTemporal("step_skipped", after, time.Time{})
		result["toggle_unavailable"] = t.journal.QueryTemporal("toggle_unavailable", after, time.Time{})
	}
	return result, nil
}

// LaunchBrowserTool connects to or launches Chrome.
type LaunchBrowserTool struct {
	sessions *browser.SessionManager
}

func (t *LaunchBrowserTool) Name() string { return "launch_browser" }

func (t *LaunchBrowserTool) Description() string {
	return "Connect to the configured Chrome instance, launching one if a launch command is configured."
}

func (t *LaunchBrowserTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *LaunchBrowserTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if err := t.sessions.Start(ctx); err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}
	return map[string]interface{}{
		"success":     true,
		"control_url": t.sessions.ControlURL(),
	}, nil
}

// ShutdownBrowserTool closes the playground page and the browser.
type ShutdownBrowserTool struct {
	sessions *browser.SessionManager
}

func (t *ShutdownBrowserTool) Name() string { return "shutdown_browser" }

func (t *ShutdownBrowserTool) Description() string {
	return "Close the playground page and shut down the browser connection."
}

func (t *ShutdownBrowserTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ShutdownBrowserTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if err := t.sessions.Shutdown(ctx); err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}
	return map[string]interface{}{"success": true}, nil
}
