package browser

import (
	"context"
	"fmt"
	"strings"

	"aistudio-bridge/internal/config"
	"aistudio-bridge/internal/params"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Surface adapts a Rod page to the control-surface interface the
// reconciliation engine drives. Selectors come from configuration so UI
// changes in AI Studio can be absorbed without a rebuild.
type Surface struct {
	page *rod.Page
	sel  config.SelectorConfig
	cfg  config.BrowserConfig
}

func NewSurface(page *rod.Page, cfg config.BrowserConfig, sel config.SelectorConfig) *Surface {
	return &Surface{page: page, sel: sel, cfg: cfg}
}

type handle struct {
	role params.Role
	el   *rod.Element
}

func (h *handle) Role() params.Role { return h.role }

// selectorFor maps a role to its selector and, for controls told apart by
// label text, the text pattern.
func (s *Surface) selectorFor(role params.Role) (selector, text string) {
	switch role {
	case params.RoleTemperature:
		return s.sel.TemperatureInput, ""
	case params.RoleMaxOutputTokens:
		return s.sel.MaxOutputTokens, ""
	case params.RoleTopP:
		return s.sel.TopPInput, ""
	case params.RoleStopInput:
		return s.sel.StopSequenceInput, ""
	case params.RoleStopChipRemove:
		return s.sel.StopChipRemove, ""
	case params.RoleToolsPanel:
		return s.sel.ToolsPanelToggle, ""
	case params.RoleURLContext:
		return s.sel.URLContextToggle, ""
	case params.RoleThinking:
		return s.sel.ThinkingToggle, s.sel.ThinkingToggleText
	case params.RoleThinkingBudget:
		return s.sel.ThinkingBudgetToggle, s.sel.ThinkingBudgetToggleText
	case params.RoleThinkingBudgetInput:
		return s.sel.ThinkingBudgetInput, ""
	case params.RoleSearchGrounding:
		return s.sel.SearchToggle, ""
	case params.RolePrompt:
		return s.sel.PromptTextarea, ""
	case params.RoleSubmit:
		return s.sel.SubmitButton, ""
	case params.RoleSpinner:
		return s.sel.LoadingSpinner, ""
	case params.RoleResponseText:
		return s.sel.ResponseText, ""
	case params.RoleEditMessage:
		return s.sel.EditMessageButton, ""
	default:
		return "", ""
	}
}

// Locate finds the control for a role, waiting up to the element timeout.
// Label-matched toggles resolve to their inner switch button, which carries
// the aria state and receives the click.
func (s *Surface) Locate(ctx context.Context, role params.Role) (params.Handle, error) {
	selector, text := s.selectorFor(role)
	if selector == "" {
		return nil, fmt.Errorf("no selector for role %s", role)
	}

	page := s.page.Context(ctx).Timeout(s.cfg.ElementTimeout())

	var el *rod.Element
	var err error
	if text != "" {
		el, err = page.ElementR(selector, text)
		if err == nil {
			if btn, berr := el.Element("button"); berr == nil {
				el = btn
			}
		}
	} else {
		el, err = page.Element(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("locate %s (%s): %w", role, selector, params.ErrControlNotFound)
	}
	return &handle{role: role, el: el}, nil
}

// State reads the observable signals for a located control.
func (s *Surface) State(ctx context.Context, h params.Handle) (params.ControlState, error) {
	hd, ok := h.(*handle)
	if !ok {
		return params.ControlState{}, fmt.Errorf("foreign handle for role %s", h.Role())
	}
	el := hd.el.Context(ctx).Timeout(s.cfg.ReadWait())

	var st params.ControlState

	visible, err := el.Visible()
	if err != nil {
		return st, fmt.Errorf("read visibility of %s: %w", h.Role(), err)
	}
	st.Visible = visible

	if v, err := el.Attribute("aria-disabled"); err == nil && v != nil && *v == "true" {
		st.Disabled = true
	}
	if !st.Disabled {
		if p, err := el.Property("disabled"); err == nil && p.Bool() {
			st.Disabled = true
		}
	}

	if v, err := el.Attribute("aria-checked"); err == nil && v != nil {
		st.Checked = *v == "true"
	} else if v, err := el.Attribute("aria-expanded"); err == nil && v != nil {
		st.Checked = *v == "true"
	}

	if p, err := el.Property("value"); err == nil && !p.Nil() {
		st.Value = p.String()
	} else {
		text, err := el.Text()
		if err != nil {
			return st, fmt.Errorf("read text of %s: %w", h.Role(), err)
		}
		st.Value = text
	}
	return st, nil
}

// Fill replaces the control's current text with the given text.
func (s *Surface) Fill(ctx context.Context, h params.Handle, text string) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("foreign handle for role %s", h.Role())
	}
	el := hd.el.Context(ctx).Timeout(s.cfg.ClickWait())

	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", h.Role(), err)
	}
	if text == "" {
		if err := el.Focus(); err != nil {
			return fmt.Errorf("focus %s: %w", h.Role(), err)
		}
		if err := s.page.Context(ctx).Keyboard.Press(input.Backspace); err != nil {
			return fmt.Errorf("clear %s: %w", h.Role(), err)
		}
		return nil
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input into %s: %w", h.Role(), err)
	}
	return nil
}

// Click left-clicks the control once.
func (s *Surface) Click(ctx context.Context, h params.Handle) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("foreign handle for role %s", h.Role())
	}
	el := hd.el.Context(ctx).Timeout(s.cfg.ClickWait())
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", h.Role(), err)
	}
	return nil
}

// Press focuses the control and sends a key or "Modifier+Key" combination
// through the page keyboard, holding the modifier for the keypress.
func (s *Surface) Press(ctx context.Context, h params.Handle, key string) error {
	hd, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("foreign handle for role %s", h.Role())
	}
	el := hd.el.Context(ctx).Timeout(s.cfg.ClickWait())
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", h.Role(), err)
	}

	keyboard := s.page.Context(ctx).Keyboard
	mod, base, hasMod := strings.Cut(key, "+")
	if !hasMod {
		base = key
	}

	baseKey, err := namedKey(base)
	if err != nil {
		return err
	}

	if hasMod {
		modKey, err := modifierKey(mod)
		if err != nil {
			return err
		}
		if err := keyboard.Press(modKey); err != nil {
			return fmt.Errorf("press modifier %s: %w", mod, err)
		}
		defer func() { _ = keyboard.Release(modKey) }()
	}

	if err := keyboard.Press(baseKey); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, h.Role(), err)
	}
	return nil
}

// Count reports how many controls currently match the role without waiting.
func (s *Surface) Count(ctx context.Context, role params.Role) (int, error) {
	selector, _ := s.selectorFor(role)
	if selector == "" {
		return 0, fmt.Errorf("no selector for role %s", role)
	}
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", role, err)
	}
	return len(els), nil
}

func modifierKey(name string) (input.Key, error) {
	switch strings.ToLower(name) {
	case "control", "ctrl":
		return input.ControlLeft, nil
	case "shift":
		return input.ShiftLeft, nil
	case "alt":
		return input.AltLeft, nil
	case "meta":
		return input.MetaLeft, nil
	default:
		return 0, fmt.Errorf("unknown modifier %q", name)
	}
}

func namedKey(name string) (input.Key, error) {
	switch strings.ToLower(name) {
	case "enter":
		return input.Enter, nil
	case "tab":
		return input.Tab, nil
	case "escape", "esc":
		return input.Escape, nil
	case "backspace":
		return input.Backspace, nil
	default:
		if len(name) == 1 {
			return input.Key(rune(name[0])), nil
		}
		return 0, fmt.Errorf("unknown key %q", name)
	}
}
