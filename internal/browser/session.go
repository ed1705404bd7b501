// Package browser owns the Chrome connection and the single playground page
// the reconciliation engine drives.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aistudio-bridge/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// Session describes the tracked playground page.
type Session struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// Invalidator is notified when the page navigates or reloads. The parameter
// cache registers here: any navigation may have reset the control surface.
type Invalidator interface {
	Invalidate()
}

// FactSink receives navigation facts for the journal.
type FactSink interface {
	Emit(ctx context.Context, predicate string, args ...any)
}

// SessionManager owns the Chrome instance and the playground page.
type SessionManager struct {
	cfg     config.BrowserConfig
	journal FactSink

	mu           sync.RWMutex
	browser      *rod.Browser
	page         *rod.Page
	controlURL   string
	meta         Session
	invalidators []Invalidator
}

func NewSessionManager(cfg config.BrowserConfig, sink FactSink) *SessionManager {
	return &SessionManager{cfg: cfg, journal: sink}
}

// OnNavigation registers an invalidator. Must be called before OpenPlayground.
func (m *SessionManager) OnNavigation(inv Invalidator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidators = append(m.invalidators, inv)
}

// Start connects to an existing Chrome or launches one with Rod's launcher.
// A stale connection from a previous run is detected and replaced.
func (m *SessionManager) Start(ctx context.Context) error {
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		log.Printf("Stale browser connection detected, reconnecting...")
		_ = m.browser.Close()
		m.mu.Lock()
		m.browser = nil
		m.page = nil
		m.controlURL = ""
		m.mu.Unlock()
	}

	if err := m.loadSession(); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" && len(m.cfg.Launch) > 0 {
		bin := m.cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(m.cfg.IsHeadless())
		for _, rawFlag := range m.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			// Fallback: let Rod pick the port and defaults.
			fallback := launcher.New().Bin(bin).Headless(m.cfg.IsHeadless())
			alt, altErr := fallback.Launch()
			if altErr != nil {
				return fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
			controlURL = alt
		} else {
			controlURL = url
		}
	}

	if controlURL == "" {
		return errors.New("no debugger_url or launch command provided")
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.mu.Lock()
	m.browser = browser
	m.controlURL = controlURL
	m.mu.Unlock()
	log.Printf("Browser connected at %s", controlURL)
	return nil
}

// OpenPlayground opens (or reuses) the playground page and wires navigation
// tracking. Safe to call repeatedly; a live page is reused.
func (m *SessionManager) OpenPlayground(ctx context.Context) (*rod.Page, error) {
	m.mu.Lock()
	if m.browser == nil {
		m.mu.Unlock()
		return nil, errors.New("browser not connected")
	}
	if m.page != nil {
		page := m.page
		m.mu.Unlock()
		if _, err := page.Info(); err == nil {
			return page, nil
		}
		m.mu.Lock()
		m.page = nil
	}
	browser := m.browser
	m.mu.Unlock()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		log.Printf("warning: failed to set viewport: %v", err)
	}

	if err := page.Timeout(m.cfg.NavigationTimeout()).Navigate(m.cfg.PlaygroundURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate to playground: %w", err)
	}

	meta := Session{
		ID:         uuid.NewString(),
		TargetID:   string(page.TargetID),
		URL:        m.cfg.PlaygroundURL,
		Status:     "active",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	m.mu.Lock()
	m.page = page
	m.meta = meta
	m.mu.Unlock()

	m.watchNavigation(ctx, meta.ID, page)
	_ = m.persistSession()

	log.Printf("[session:%s] playground opened at %s", meta.ID, m.cfg.PlaygroundURL)
	return page, nil
}

// watchNavigation streams frame navigations. Every navigation invalidates the
// registered caches and records a fact; the playground resets its control
// surface on reload and the engine must not trust stale values.
func (m *SessionManager) watchNavigation(ctx context.Context, sessionID string, page *rod.Page) {
	wait := page.Context(ctx).EachEvent(func(ev *proto.PageFrameNavigated) {
		now := time.Now()
		log.Printf("[session:%s] navigated to %s, invalidating caches", sessionID, ev.Frame.URL)

		m.mu.RLock()
		invs := make([]Invalidator, len(m.invalidators))
		copy(invs, m.invalidators)
		m.mu.RUnlock()
		for _, inv := range invs {
			inv.Invalidate()
		}

		if m.journal != nil {
			m.journal.Emit(ctx, "navigation_event", sessionID, ev.Frame.URL)
		}

		m.mu.Lock()
		m.meta.URL = ev.Frame.URL
		m.meta.LastActive = now
		m.mu.Unlock()
	})
	go wait()
}

// Page returns the playground page when one is open.
func (m *SessionManager) Page() (*rod.Page, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.page == nil {
		return nil, false
	}
	return m.page, true
}

// Meta returns the current session metadata.
func (m *SessionManager) Meta() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.page == nil {
		return Session{}, false
	}
	return m.meta, true
}

// ControlURL returns the WebSocket debugger URL for the connected browser.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected reports whether the browser is currently connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown closes the playground page and the underlying browser.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.page != nil {
		_ = m.page.Close()
		m.page = nil
	}
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.controlURL = ""
	log.Printf("Browser shutdown complete")
	return err
}

// persistSession writes session metadata to disk for continuity across
// restarts.
func (m *SessionManager) persistSession() error {
	if m.cfg.SessionStore == "" {
		return nil
	}

	m.mu.RLock()
	meta := m.meta
	m.mu.RUnlock()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.SessionStore), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.cfg.SessionStore, data, 0o644)
}

// loadSession loads persisted metadata. The page itself is never reattached;
// a fresh OpenPlayground call binds a live page.
func (m *SessionManager) loadSession() error {
	if m.cfg.SessionStore == "" {
		return nil
	}

	data, err := os.ReadFile(m.cfg.SessionStore)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var meta Session
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	meta.Status = "detached"

	m.mu.Lock()
	m.meta = meta
	m.mu.Unlock()
	return nil
}
