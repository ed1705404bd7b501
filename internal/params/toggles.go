package params

import (
	"context"
	"log"
)

// ToggleResult reports how a toggle reconciliation ended.
type ToggleResult int

const (
	// ToggleApplied means the toggle now matches (or already matched) the
	// desired state.
	ToggleApplied ToggleResult = iota
	// ToggleUnavailable means the control is missing or disabled in a state
	// that conflicts with the desired one. Callers decide the fallback.
	ToggleUnavailable
)

// reconcileToggle drives one binary control to the desired state. At most one
// click per pass: if a single click plus settle does not land the toggle in
// the desired state, the result is reported honestly and the surface left
// alone. Clicking a disabled toggle is never attempted.
func (c *Controller) reconcileToggle(ctx context.Context, role Role, desired bool) (ToggleResult, bool, error) {
	if err := c.checkDisconnect(ctx, "toggle_"+string(role)); err != nil {
		return ToggleUnavailable, false, err
	}

	h, err := c.surface.Locate(ctx, role)
	if err != nil {
		log.Printf("[req:%s] toggle %s not found: %v", c.reqID, role, err)
		c.emit(ctx, "toggle_unavailable", string(role), "not_found")
		return ToggleUnavailable, false, nil
	}

	st, err := c.surface.State(ctx, h)
	if err != nil {
		c.emit(ctx, "toggle_unavailable", string(role), "unreadable")
		return ToggleUnavailable, false, &SurfaceError{Op: "read", Role: role, Err: err}
	}

	if st.Disabled {
		if st.Checked == desired {
			return ToggleApplied, st.Checked, nil
		}
		log.Printf("[req:%s] toggle %s is disabled at %v, want %v", c.reqID, role, st.Checked, desired)
		c.emit(ctx, "toggle_unavailable", string(role), "disabled")
		return ToggleUnavailable, st.Checked, nil
	}

	if st.Checked == desired {
		return ToggleApplied, st.Checked, nil
	}

	if err := c.checkDisconnect(ctx, "click_"+string(role)); err != nil {
		return ToggleUnavailable, st.Checked, err
	}
	if err := c.surface.Click(ctx, h); err != nil {
		c.emit(ctx, "toggle_unavailable", string(role), "click_failed")
		return ToggleUnavailable, st.Checked, &SurfaceError{Op: "click", Role: role, Err: err}
	}
	c.emit(ctx, "toggle_clicked", string(role), desired)
	if err := c.settle(ctx, c.timing.ToggleSettle); err != nil {
		return ToggleUnavailable, st.Checked, &DisconnectedError{Stage: "settle_" + string(role)}
	}

	st, err = c.surface.State(ctx, h)
	if err != nil {
		return ToggleUnavailable, desired, &SurfaceError{Op: "verify", Role: role, Err: err}
	}
	if st.Checked != desired {
		log.Printf("[req:%s] toggle %s did not take: want %v, read %v", c.reqID, role, desired, st.Checked)
		c.emit(ctx, "verify_failed", string(role), desired, st.Checked)
		c.snapshot(ctx, "toggle_verify_failed_"+string(role))
		return ToggleUnavailable, st.Checked, nil
	}
	log.Printf("[req:%s] toggle %s set to %v", c.reqID, role, desired)
	return ToggleApplied, st.Checked, nil
}

// ensureToolsPanelExpanded opens the tools panel if it is collapsed. The
// feature toggles inside it cannot be located while it is closed.
func (c *Controller) ensureToolsPanelExpanded(ctx context.Context) error {
	h, err := c.surface.Locate(ctx, RoleToolsPanel)
	if err != nil {
		return &SurfaceError{Op: "locate", Role: RoleToolsPanel, Err: err}
	}
	st, err := c.surface.State(ctx, h)
	if err != nil {
		return &SurfaceError{Op: "read", Role: RoleToolsPanel, Err: err}
	}
	if st.Checked {
		return nil
	}
	if err := c.surface.Click(ctx, h); err != nil {
		return &SurfaceError{Op: "click", Role: RoleToolsPanel, Err: err}
	}
	if err := c.settle(ctx, c.timing.ToggleSettle); err != nil {
		return &DisconnectedError{Stage: "expand_tools_panel"}
	}
	return nil
}
