package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures all tunable settings for the AI Studio bridge.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Browser    BrowserConfig    `yaml:"browser"`
	Generation GenerationConfig `yaml:"generation"`
	Features   FeatureConfig    `yaml:"features"`
	Selectors  SelectorConfig   `yaml:"selectors"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Snapshots  SnapshotConfig   `yaml:"snapshots"`
	Journal    JournalConfig    `yaml:"journal"`
	MCP        MCPConfig        `yaml:"mcp"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// BrowserConfig configures how we attach to or launch Chrome for Rod,
// plus the per-operation timeouts every surface interaction carries.
type BrowserConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). Required when launch is empty.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional launch command to start Chrome in detached mode.
	Launch []string `yaml:"launch"`
	// AutoStart controls whether the bridge launches/attaches to Chrome at startup.
	AutoStart bool `yaml:"auto_start"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// PlaygroundURL is the AI Studio page driven by the bridge.
	PlaygroundURL string `yaml:"playground_url"`
	// Default navigation timeout (e.g., "15s").
	DefaultNavigationTimeout string `yaml:"default_navigation_timeout"`
	// Bounded wait for an element to become visible (e.g., "5s").
	WaitElementTimeout string `yaml:"wait_element_timeout"`
	// Timeout for a single click (e.g., "3s").
	ClickTimeout string `yaml:"click_timeout"`
	// Timeout for reading a field value back (e.g., "3s").
	ValueReadTimeout string `yaml:"value_read_timeout"`
	// Delay after writing a field before re-reading it (e.g., "100ms").
	FillSettleDelay string `yaml:"fill_settle_delay"`
	// Delay after clicking a toggle before re-reading its state (e.g., "500ms").
	ToggleSettleDelay string `yaml:"toggle_settle_delay"`
	// How long to wait for the run button to become enabled after filling the prompt.
	SubmitEnableTimeout string `yaml:"submit_enable_timeout"`
	// How long to wait for a model response to complete.
	ResponseTimeout string `yaml:"response_timeout"`
	// Optional path to persist session metadata between bridge restarts.
	SessionStore string `yaml:"session_store"`
	// Viewport width for the playground page (default: 1920).
	ViewportWidth int `yaml:"viewport_width"`
	// Viewport height for the playground page (default: 1080).
	ViewportHeight int `yaml:"viewport_height"`
}

// GenerationConfig holds the process-wide defaults applied when a request
// leaves a parameter unspecified.
type GenerationConfig struct {
	Temperature     float64  `yaml:"temperature"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	StopSequences   []string `yaml:"stop_sequences"`
	TopP            float64  `yaml:"top_p"`
	// ThinkingEnabled is the default state of the master thinking toggle.
	ThinkingEnabled bool `yaml:"thinking_enabled"`
	// ThinkingBudgetEnabled limits the thinking budget by default.
	ThinkingBudgetEnabled bool `yaml:"thinking_budget_enabled"`
	// ThinkingBudget is the default budget in tokens when the limiter is on.
	ThinkingBudget int `yaml:"thinking_budget"`
}

// FeatureConfig gates surface features applied independent of the request body.
type FeatureConfig struct {
	// URLContext enables the "Browse the url context" toggle on every request.
	URLContext bool `yaml:"url_context"`
	// GoogleSearch is the grounding default used when a request carries no tools.
	GoogleSearch bool `yaml:"google_search"`
}

type CatalogConfig struct {
	// Path to the YAML model list with per-model output-token ceilings.
	Path string `yaml:"path"`
}

type SnapshotConfig struct {
	// Dir is where diagnostic snapshots (screenshot + HTML) are written.
	Dir string `yaml:"dir"`
	// Keep bounds how many snapshots are retained (oldest rotated out).
	Keep int `yaml:"keep"`
}

// JournalConfig controls the embedded reconciliation fact journal.
type JournalConfig struct {
	Enable          bool `yaml:"enable"`
	FactBufferLimit int  `yaml:"fact_buffer_limit"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// DefaultConfig provides reasonable defaults for driving the AI Studio playground.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "aistudio-bridge",
			Version: "0.1.0",
			LogFile: "aistudio-bridge.log",
		},
		Browser: BrowserConfig{
			AutoStart:                true,
			PlaygroundURL:            "https://aistudio.google.com/prompts/new_chat",
			DefaultNavigationTimeout: "15s",
			WaitElementTimeout:       "5s",
			ClickTimeout:             "3s",
			ValueReadTimeout:         "3s",
			FillSettleDelay:          "100ms",
			ToggleSettleDelay:        "500ms",
			SubmitEnableTimeout:      "100s",
			ResponseTimeout:          "90s",
			SessionStore:             "sessions.json",
			ViewportWidth:            1920,
			ViewportHeight:           1080,
		},
		Generation: GenerationConfig{
			Temperature:           1.0,
			MaxOutputTokens:       65536,
			StopSequences:         nil,
			TopP:                  0.95,
			ThinkingEnabled:       true,
			ThinkingBudgetEnabled: false,
			ThinkingBudget:        8192,
		},
		Features: FeatureConfig{
			URLContext:   false,
			GoogleSearch: false,
		},
		Selectors: DefaultSelectors(),
		Catalog: CatalogConfig{
			Path: "models.yaml",
		},
		Snapshots: SnapshotConfig{
			Dir:  "data/snapshots",
			Keep: 20,
		},
		Journal: JournalConfig{
			Enable:          true,
			FactBufferLimit: 2048,
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate ensures required fields exist so the bridge can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Browser.AutoStart {
		if c.Browser.DebuggerURL == "" && len(c.Browser.Launch) == 0 {
			return errors.New("browser.debugger_url or browser.launch must be provided")
		}
	}
	if c.Browser.PlaygroundURL == "" {
		return errors.New("browser.playground_url is required")
	}
	if c.Generation.MaxOutputTokens < 1 {
		return fmt.Errorf("generation.max_output_tokens must be positive, got %d", c.Generation.MaxOutputTokens)
	}
	return nil
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// NavigationTimeout returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	return parseDurationOr(b.DefaultNavigationTimeout, 15*time.Second)
}

// ElementTimeout returns the bounded wait for element visibility.
func (b BrowserConfig) ElementTimeout() time.Duration {
	return parseDurationOr(b.WaitElementTimeout, 5*time.Second)
}

// ClickWait returns the timeout for a single click operation.
func (b BrowserConfig) ClickWait() time.Duration {
	return parseDurationOr(b.ClickTimeout, 3*time.Second)
}

// ReadWait returns the timeout for a value readback.
func (b BrowserConfig) ReadWait() time.Duration {
	return parseDurationOr(b.ValueReadTimeout, 3*time.Second)
}

// FillSettle returns the delay between a write and its verification read.
func (b BrowserConfig) FillSettle() time.Duration {
	return parseDurationOr(b.FillSettleDelay, 100*time.Millisecond)
}

// ToggleSettle returns the delay between a toggle click and its verification read.
func (b BrowserConfig) ToggleSettle() time.Duration {
	return parseDurationOr(b.ToggleSettleDelay, 500*time.Millisecond)
}

// SubmitEnableWait returns how long to wait for the run button to enable.
func (b BrowserConfig) SubmitEnableWait() time.Duration {
	return parseDurationOr(b.SubmitEnableTimeout, 100*time.Second)
}

// ResponseWait returns how long to wait for a completed response.
func (b BrowserConfig) ResponseWait() time.Duration {
	return parseDurationOr(b.ResponseTimeout, 90*time.Second)
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}

// GetViewportWidth returns the viewport width with a sane default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1920
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 1080
	}
	return b.ViewportHeight
}

// KeepSnapshots returns the snapshot retention count with a sane default.
func (s SnapshotConfig) KeepSnapshots() int {
	if s.Keep <= 0 {
		return 20
	}
	return s.Keep
}
