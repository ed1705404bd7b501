package params

import (
	"context"
	"log"
	"strconv"
)

// AdjustAll runs the full reconciliation pass for one request: value
// parameters first, then the tools panel and its feature toggles, then the
// thinking directive, then search grounding. Each step is recoverable on its
// own; only disconnection aborts the pass.
func (c *Controller) AdjustAll(ctx context.Context, req *Request) error {
	if err := c.checkDisconnect(ctx, "adjust_start"); err != nil {
		return err
	}

	if err := c.recover(ctx, "temperature", c.AdjustTemperature(ctx, req.Temperature)); err != nil {
		return err
	}
	if err := c.recover(ctx, "max_output_tokens", c.AdjustMaxOutputTokens(ctx, req.Model, req.MaxOutputTokens)); err != nil {
		return err
	}

	stops := []string(req.Stop)
	if req.Stop == nil {
		stops = c.defaults.StopSequences
	}
	if err := c.recover(ctx, "stop_sequences", c.AdjustStopSequences(ctx, stops)); err != nil {
		return err
	}
	if err := c.recover(ctx, "top_p", c.AdjustTopP(ctx, req.TopP)); err != nil {
		return err
	}

	if err := c.recover(ctx, "tools_panel", c.ensureToolsPanelExpanded(ctx)); err != nil {
		return err
	}
	if c.features.URLContext {
		_, _, err := c.reconcileToggle(ctx, RoleURLContext, true)
		if err := c.recover(ctx, "url_context", err); err != nil {
			return err
		}
	}

	directive := NormalizeThinking(req.ReasoningEffort, req.ThinkingConfig, c.thinking)
	if err := c.ApplyThinkingDirective(ctx, directive); err != nil {
		return err
	}

	wantSearch := req.WantsSearchGrounding(c.features.GoogleSearch)
	_, _, err := c.reconcileToggle(ctx, RoleSearchGrounding, wantSearch)
	if err := c.recover(ctx, "search_grounding", err); err != nil {
		return err
	}

	return c.checkDisconnect(ctx, "adjust_end")
}

// ApplyThinkingDirective reconciles the master thinking toggle, the budget
// toggle, and the budget value against one normalized directive.
//
// Some models pin the master toggle on. When the directive wants thinking off
// but the toggle cannot be flipped, the fallback is to engage the budget
// toggle and write a budget of zero, which suppresses thinking output on
// those models.
func (c *Controller) ApplyThinkingDirective(ctx context.Context, d ThinkingDirective) error {
	log.Printf("[req:%s] thinking directive: enabled=%v budget_enabled=%v level=%s",
		c.reqID, d.ThinkingEnabled, d.BudgetEnabled, d.Level)

	res, _, err := c.reconcileToggle(ctx, RoleThinking, d.ThinkingEnabled)
	if err := c.recover(ctx, "thinking_toggle", err); err != nil {
		return err
	}

	if !d.ThinkingEnabled {
		if res == ToggleApplied {
			return nil
		}
		log.Printf("[req:%s] thinking toggle locked on, falling back to zero budget", c.reqID)
		bres, _, err := c.reconcileToggle(ctx, RoleThinkingBudget, true)
		if err := c.recover(ctx, "thinking_budget_toggle", err); err != nil {
			return err
		}
		if bres != ToggleApplied {
			log.Printf("[req:%s] zero-budget fallback unavailable, thinking stays on", c.reqID)
			return nil
		}
		return c.recover(ctx, "thinking_budget_value", c.setThinkingBudget(ctx, 0))
	}

	bres, _, err := c.reconcileToggle(ctx, RoleThinkingBudget, d.BudgetEnabled)
	if err := c.recover(ctx, "thinking_budget_toggle", err); err != nil {
		return err
	}
	if d.BudgetEnabled && d.BudgetValue != nil && bres == ToggleApplied {
		return c.recover(ctx, "thinking_budget_value", c.setThinkingBudget(ctx, *d.BudgetValue))
	}
	return nil
}

// setThinkingBudget writes the budget input and verifies the read-back. The
// budget input is never cached: its visibility flips with the budget toggle,
// so a stale entry would be worthless.
func (c *Controller) setThinkingBudget(ctx context.Context, budget int) error {
	if err := c.checkDisconnect(ctx, "write_thinking_budget"); err != nil {
		return err
	}
	h, err := c.locate(ctx, RoleThinkingBudgetInput)
	if err != nil {
		return err
	}
	text := strconv.Itoa(budget)
	if err := c.surface.Fill(ctx, h, text); err != nil {
		return &SurfaceError{Op: "fill", Role: RoleThinkingBudgetInput, Err: err}
	}
	if err := c.settle(ctx, c.timing.FillSettle); err != nil {
		return &DisconnectedError{Stage: "settle_thinking_budget"}
	}
	st, err := c.surface.State(ctx, h)
	if err != nil {
		return &SurfaceError{Op: "verify", Role: RoleThinkingBudgetInput, Err: err}
	}
	got, perr := strconv.Atoi(st.Value)
	if perr != nil || got != budget {
		c.emit(ctx, "verify_failed", string(RoleThinkingBudgetInput), text, st.Value)
		c.snapshot(ctx, "verify_failed_thinking_budget")
		log.Printf("[req:%s] thinking budget wrote %s but read back %q", c.reqID, text, st.Value)
		return nil
	}
	c.emit(ctx, "param_written", string(RoleThinkingBudgetInput), text)
	return nil
}
