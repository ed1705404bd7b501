package params

import (
	"encoding/json"
	"fmt"
)

// Request is the caller's desired configuration for one generation call.
// Immutable for the duration of the request. Optional fields are pointers so
// "not specified" is distinguishable from a zero value.
type Request struct {
	Model           string          `json:"model,omitempty"`
	Prompt          string          `json:"prompt,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Stop            StopField       `json:"stop,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	Tools           []Tool          `json:"tools,omitempty"`
	ReasoningEffort EffortValue     `json:"reasoning_effort,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinking_config,omitempty"`
}

// ThinkingConfig is the structured encoding of the thinking directive, as
// carried by Gemini-shaped request bodies.
type ThinkingConfig struct {
	IncludeThoughts bool `json:"include_thoughts"`
	// ThinkingBudget of 0 is a valid, explicit budget; nil means unbounded.
	ThinkingBudget *int `json:"thinking_budget,omitempty"`
}

// Tool is one entry of a request's tools list. Only the fields the bridge
// inspects are decoded; everything else passes through untouched.
type Tool struct {
	GoogleSearchRetrieval json.RawMessage `json:"google_search_retrieval,omitempty"`
	Function              *ToolFunction   `json:"function,omitempty"`
}

type ToolFunction struct {
	Name string `json:"name"`
}

// WantsSearchGrounding decides the desired state of the search-grounding
// toggle. A request that declares tools speaks for itself, even when the
// list is empty; a request silent on tools defers to the process default.
func (r *Request) WantsSearchGrounding(fallback bool) bool {
	if r.Tools == nil {
		return fallback
	}
	for _, t := range r.Tools {
		if len(t.GoogleSearchRetrieval) > 0 {
			return true
		}
		if t.Function != nil && t.Function.Name == "googleSearch" {
			return true
		}
	}
	return false
}

// StopField accepts both a bare string and an ordered list of strings.
type StopField []string

func (s *StopField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StopField{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = StopField(many)
		return nil
	}
	return fmt.Errorf("stop must be a string or a list of strings")
}

// EffortValue is the deliberately overloaded reasoning-effort channel: a bare
// integer or a string, with absence tracked explicitly. Normalization into a
// ThinkingDirective happens in one place (NormalizeThinking), not here.
type EffortValue struct {
	present  bool
	isString bool
	str      string
	num      int
}

// EffortInt builds a numeric effort value (tests and programmatic callers).
func EffortInt(n int) EffortValue {
	return EffortValue{present: true, num: n}
}

// EffortString builds a string effort value.
func EffortString(s string) EffortValue {
	return EffortValue{present: true, isString: true, str: s}
}

func (e *EffortValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = EffortString(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*e = EffortInt(n)
		return nil
	}
	return fmt.Errorf("reasoning_effort must be a string or an integer")
}

func (e EffortValue) MarshalJSON() ([]byte, error) {
	if !e.present {
		return []byte("null"), nil
	}
	if e.isString {
		return json.Marshal(e.str)
	}
	return json.Marshal(e.num)
}

// Present reports whether the request carried any reasoning-effort value.
func (e EffortValue) Present() bool { return e.present }

// Raw returns the original value for diagnostics, or nil when absent.
func (e EffortValue) Raw() any {
	if !e.present {
		return nil
	}
	if e.isString {
		return e.str
	}
	return e.num
}
