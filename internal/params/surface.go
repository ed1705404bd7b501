// Package params reconciles a request's desired generation parameters against
// the externally-owned playground control surface. The surface offers no
// transactions: every adjustment is a read-compare-write-verify pass over
// point operations, backed by a per-surface cache of last committed values.
package params

import "context"

// Role identifies a control on the playground surface by what it does,
// independent of the CSS selector that currently locates it.
type Role string

const (
	RoleTemperature     Role = "temperature"
	RoleMaxOutputTokens Role = "max_output_tokens"
	RoleTopP            Role = "top_p"
	RoleStopInput       Role = "stop_sequence_input"
	RoleStopChipRemove  Role = "stop_chip_remove"

	RoleToolsPanel          Role = "tools_panel"
	RoleURLContext          Role = "url_context"
	RoleThinking            Role = "thinking_mode"
	RoleThinkingBudget      Role = "thinking_budget"
	RoleThinkingBudgetInput Role = "thinking_budget_input"
	RoleSearchGrounding     Role = "search_grounding"

	RolePrompt       Role = "prompt"
	RoleSubmit       Role = "submit"
	RoleSpinner      Role = "loading_spinner"
	RoleResponseText Role = "response_text"
	RoleEditMessage  Role = "edit_message"
)

// ControlState is the bounded set of observable signals the engine trusts.
// Anything not expressible here is treated as unknown, never inferred.
type ControlState struct {
	Visible  bool
	Disabled bool
	// Checked reflects aria-checked for toggles; for the tools panel it
	// reflects whether the panel is expanded.
	Checked bool
	// Value is the field text for inputs, the text content otherwise.
	Value string
}

// Handle is an opaque reference to a located control, owned transiently for
// the duration of one reconciliation call.
type Handle interface {
	Role() Role
}

// Surface is the control surface adapter. Every method is a point operation
// with its own intrinsic timeout; the engine never retries an adapter call
// internally except the bounded chip-removal loop.
type Surface interface {
	Locate(ctx context.Context, role Role) (Handle, error)
	State(ctx context.Context, h Handle) (ControlState, error)
	Fill(ctx context.Context, h Handle, text string) error
	Click(ctx context.Context, h Handle) error
	Press(ctx context.Context, h Handle, key string) error
	// Count reports how many controls currently match the role (chip lists).
	Count(ctx context.Context, role Role) (int, error)
}

// SnapshotSink receives diagnostic snapshot requests on verification failures.
// Implementations must be best-effort and never fail the caller.
type SnapshotSink interface {
	CaptureSnapshot(ctx context.Context, tag string)
}
