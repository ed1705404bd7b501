package mcp

import (
	"context"
	"testing"

	"aistudio-bridge/internal/config"
	"aistudio-bridge/internal/journal"
)

func TestDecodeRequestOverloadedFields(t *testing.T) {
	args := map[string]interface{}{
		"model":             "gemini-2.5-pro",
		"prompt":            "hello",
		"temperature":       0.4,
		"max_output_tokens": float64(2048),
		"stop":              []interface{}{"END", "STOP"},
		"reasoning_effort":  "low",
		"tools": []interface{}{
			map[string]interface{}{"google_search_retrieval": map[string]interface{}{}},
		},
	}

	req, err := decodeRequest(args)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Model != "gemini-2.5-pro" || req.Prompt != "hello" {
		t.Errorf("unexpected model/prompt: %q %q", req.Model, req.Prompt)
	}
	if req.Temperature == nil || *req.Temperature != 0.4 {
		t.Errorf("unexpected temperature: %v", req.Temperature)
	}
	if req.MaxOutputTokens == nil || *req.MaxOutputTokens != 2048 {
		t.Errorf("unexpected max tokens: %v", req.MaxOutputTokens)
	}
	if len(req.Stop) != 2 || req.Stop[0] != "END" {
		t.Errorf("unexpected stop sequences: %v", req.Stop)
	}
	if !req.ReasoningEffort.Present() {
		t.Error("reasoning effort must decode as present")
	}
	if !req.WantsSearchGrounding(false) {
		t.Error("google_search_retrieval tool must enable grounding")
	}
}

func TestDecodeRequestScalarStop(t *testing.T) {
	req, err := decodeRequest(map[string]interface{}{"stop": "END"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "END" {
		t.Errorf("scalar stop must decode as one-element list, got %v", req.Stop)
	}
}

func TestDecodeRequestNumericEffort(t *testing.T) {
	req, err := decodeRequest(map[string]interface{}{"reasoning_effort": float64(0)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !req.ReasoningEffort.Present() {
		t.Error("numeric zero effort must decode as present")
	}
}

func TestDecodeRequestOmittedFieldsStayNil(t *testing.T) {
	req, err := decodeRequest(map[string]interface{}{"prompt": "hi"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Temperature != nil || req.MaxOutputTokens != nil || req.TopP != nil {
		t.Error("omitted scalars must stay nil so defaults apply")
	}
	if req.Stop != nil {
		t.Errorf("omitted stop must stay nil, got %v", req.Stop)
	}
	if req.ReasoningEffort.Present() {
		t.Error("omitted effort must be absent")
	}
	if req.Tools != nil {
		t.Error("omitted tools must stay nil so the grounding fallback applies")
	}
}

func TestDiagnoseReconciliationTool(t *testing.T) {
	jrnl, err := journal.New(config.JournalConfig{Enable: true, FactBufferLimit: 64})
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	ctx := context.Background()
	jrnl.Emit(ctx, "verify_failed", "temperature", "0.7", "1")
	jrnl.Emit(ctx, "verify_failed", "temperature", "0.7", "1")

	tool := &DiagnoseReconciliationTool{journal: jrnl}
	out, err := tool.Execute(ctx, map[string]interface{}{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	result, ok := out.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if result["success"] != true {
		t.Errorf("expected success, got %v", result)
	}
	if _, ok := result["verify_failures"]; !ok {
		t.Error("expected verify_failures in default output")
	}

	summary, err := tool.Execute(ctx, map[string]interface{}{"include_facts": false})
	if err != nil {
		t.Fatalf("execute summary: %v", err)
	}
	if _, ok := summary.(map[string]interface{})["verify_failures"]; ok {
		t.Error("include_facts=false must omit raw facts")
	}
}

func TestGetIntArg(t *testing.T) {
	args := map[string]interface{}{"window_minutes": float64(15)}
	if got := getIntArg(args, "window_minutes", 30); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
	if got := getIntArg(args, "missing", 30); got != 30 {
		t.Errorf("expected fallback 30, got %d", got)
	}
	if got := getIntArg(map[string]interface{}{"n": "ten"}, "n", 7); got != 7 {
		t.Errorf("expected fallback for non-numeric value, got %d", got)
	}
}

func TestGetStringArg(t *testing.T) {
	args := map[string]interface{}{"prompt": "hello", "n": float64(3)}
	if got := getStringArg(args, "prompt"); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if got := getStringArg(args, "missing"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := getStringArg(args, "n"); got != "3" {
		t.Errorf("expected stringified value, got %q", got)
	}
}
