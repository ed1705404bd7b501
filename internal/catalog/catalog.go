// Package catalog resolves per-model limits for the playground surface.
package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FallbackMaxOutputTokens is used when a model is unknown or carries no limit.
const FallbackMaxOutputTokens = 65536

// Model describes one entry in the model list.
type Model struct {
	ID              string `yaml:"id"`
	DisplayName     string `yaml:"display_name,omitempty"`
	MaxOutputTokens int    `yaml:"max_output_tokens,omitempty"`
}

// Catalog is an immutable-after-load model list with ceiling lookups.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]Model
}

// New builds a catalog from an in-memory model list.
func New(models []Model) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		if m.ID == "" {
			continue
		}
		c.models[m.ID] = m
	}
	return c
}

// Load reads a YAML model list from disk. A missing file yields an empty
// catalog rather than an error: every lookup then falls back to the default
// ceiling, which is the safe degraded mode.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read model catalog: %w", err)
	}

	var doc struct {
		Models []Model `yaml:"models"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	return New(doc.Models), nil
}

// MaxOutputTokens returns the output-token ceiling for a model, falling back
// to FallbackMaxOutputTokens for unknown models or non-positive entries.
func (c *Catalog) MaxOutputTokens(modelID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[modelID]
	if !ok || m.MaxOutputTokens <= 0 {
		return FallbackMaxOutputTokens
	}
	return m.MaxOutputTokens
}

// Has reports whether the model is present in the list.
func (c *Catalog) Has(modelID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.models[modelID]
	return ok
}

// Len returns the number of models in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}
