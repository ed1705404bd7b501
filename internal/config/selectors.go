package config

// SelectorConfig maps each control role on the playground surface to a CSS
// selector. AI Studio ships UI changes without notice, so every selector is
// overridable in YAML; the defaults track the current Angular Material markup.
type SelectorConfig struct {
	PromptTextarea string `yaml:"prompt_textarea"`
	SubmitButton   string `yaml:"submit_button"`
	LoadingSpinner string `yaml:"loading_spinner"`

	ResponseContainer string `yaml:"response_container"`
	ResponseText      string `yaml:"response_text"`
	EditMessageButton string `yaml:"edit_message_button"`

	TemperatureInput  string `yaml:"temperature_input"`
	MaxOutputTokens   string `yaml:"max_output_tokens"`
	TopPInput         string `yaml:"top_p_input"`
	StopSequenceInput string `yaml:"stop_sequence_input"`
	StopChipRemove    string `yaml:"stop_chip_remove"`
	ToolsPanelToggle  string `yaml:"tools_panel_toggle"`
	URLContextToggle  string `yaml:"url_context_toggle"`

	// The thinking toggles share identical markup and are told apart by their
	// label text, so each carries a selector plus a text pattern.
	ThinkingToggle           string `yaml:"thinking_toggle"`
	ThinkingToggleText       string `yaml:"thinking_toggle_text"`
	ThinkingBudgetToggle     string `yaml:"thinking_budget_toggle"`
	ThinkingBudgetToggleText string `yaml:"thinking_budget_toggle_text"`
	ThinkingBudgetInput      string `yaml:"thinking_budget_input"`

	SearchToggle string `yaml:"search_toggle"`
}

// DefaultSelectors returns the selector set for the current AI Studio markup.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		PromptTextarea: "ms-prompt-input-wrapper ms-autosize-textarea textarea",
		SubmitButton:   `button[aria-label="Run"].run-button, ms-run-button button[type="submit"].run-button`,
		LoadingSpinner: `button[aria-label="Run"].run-button svg .stoppable-spinner`,

		ResponseContainer: "ms-chat-turn .chat-turn-container.model",
		ResponseText:      "ms-cmark-node.cmark-node",
		EditMessageButton: "ms-chat-turn:last-child .actions-container button.toggle-edit-button",

		TemperatureInput:  `ms-slider input[type="number"][max="2"]`,
		MaxOutputTokens:   `input[aria-label="Maximum output tokens"]`,
		TopPInput:         `ms-slider input[type="number"][max="1"]`,
		StopSequenceInput: `input[aria-label="Add stop token"]`,
		StopChipRemove:    `mat-chip-set mat-chip-row button[aria-label*="Remove"]`,
		ToolsPanelToggle:  `button[aria-label="Expand or collapse tools"]`,
		URLContextToggle:  `button[aria-label="Browse the url context"]`,

		ThinkingToggle:           `mat-slide-toggle`,
		ThinkingToggleText:       `Thinking mode`,
		ThinkingBudgetToggle:     `mat-slide-toggle`,
		ThinkingBudgetToggleText: `Set thinking budget`,
		ThinkingBudgetInput:      `[data-test-slider] input[type="number"]`,

		SearchToggle: `div[data-test-id="searchAsAToolTooltip"] mat-slide-toggle button`,
	}
}
