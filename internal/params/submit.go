package params

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// confirmWindow bounds how long a submission strategy gets to show evidence
// of having taken effect before the next strategy is tried.
const confirmWindow = 5 * time.Second

// SubmitPrompt fills the prompt input and fires submission. Three strategies
// are tried in order: clicking the run button, pressing Enter in the prompt
// input, and the Control+Enter combination. A strategy counts as successful
// once the loading spinner appears or the prompt input empties.
func (c *Controller) SubmitPrompt(ctx context.Context, prompt string) error {
	if err := c.checkDisconnect(ctx, "submit_start"); err != nil {
		return err
	}

	promptH, err := c.locate(ctx, RolePrompt)
	if err != nil {
		return err
	}
	if err := c.surface.Fill(ctx, promptH, prompt); err != nil {
		return &SurfaceError{Op: "fill", Role: RolePrompt, Err: err}
	}
	if err := c.settle(ctx, c.timing.FillSettle); err != nil {
		return &DisconnectedError{Stage: "fill_prompt"}
	}

	submitH, err := c.waitSubmitEnabled(ctx)
	if err != nil {
		c.snapshot(ctx, "submit_never_enabled")
		return &SubmissionError{Err: err}
	}
	if err := c.settle(ctx, preSubmitDelay); err != nil {
		return &DisconnectedError{Stage: "pre_submit"}
	}

	strategies := []struct {
		name string
		fire func(context.Context) error
	}{
		{"button_click", func(ctx context.Context) error {
			return c.surface.Click(ctx, submitH)
		}},
		{"enter_key", func(ctx context.Context) error {
			return c.surface.Press(ctx, promptH, "Enter")
		}},
		{"combo_key", func(ctx context.Context) error {
			return c.surface.Press(ctx, promptH, "Control+Enter")
		}},
	}

	var lastErr error
	for _, s := range strategies {
		if err := c.checkDisconnect(ctx, "submit_"+s.name); err != nil {
			return err
		}
		if err := s.fire(ctx); err != nil {
			log.Printf("[req:%s] submit via %s failed: %v", c.reqID, s.name, err)
			lastErr = err
			continue
		}
		ok, err := c.confirmSubmission(ctx, promptH)
		if err != nil {
			return err
		}
		if ok {
			log.Printf("[req:%s] submitted via %s", c.reqID, s.name)
			c.emit(ctx, "param_written", "submit_strategy", s.name)
			return nil
		}
		log.Printf("[req:%s] submit via %s showed no effect", c.reqID, s.name)
		lastErr = errors.New("no submission evidence after " + s.name)
	}

	c.snapshot(ctx, "submit_failed")
	if lastErr == nil {
		lastErr = errors.New("no strategy produced submission evidence")
	}
	return &SubmissionError{Err: lastErr}
}

// waitSubmitEnabled polls the run button until it is clickable.
func (c *Controller) waitSubmitEnabled(ctx context.Context) (Handle, error) {
	deadline := time.Now().Add(c.timing.SubmitEnableWait)
	for {
		if err := c.checkDisconnect(ctx, "wait_submit_enabled"); err != nil {
			return nil, err
		}
		h, err := c.surface.Locate(ctx, RoleSubmit)
		if err == nil {
			st, serr := c.surface.State(ctx, h)
			if serr == nil && st.Visible && !st.Disabled {
				return h, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, errors.New("run button never became enabled")
		}
		if err := c.settle(ctx, pollInterval); err != nil {
			return nil, &DisconnectedError{Stage: "wait_submit_enabled"}
		}
	}
}

// confirmSubmission watches for evidence that a submission attempt took:
// either the loading spinner appears or the prompt input empties.
func (c *Controller) confirmSubmission(ctx context.Context, promptH Handle) (bool, error) {
	deadline := time.Now().Add(confirmWindow)
	for time.Now().Before(deadline) {
		if err := c.checkDisconnect(ctx, "confirm_submission"); err != nil {
			return false, err
		}
		if c.spinnerVisible(ctx) {
			return true, nil
		}
		if st, err := c.surface.State(ctx, promptH); err == nil && strings.TrimSpace(st.Value) == "" {
			return true, nil
		}
		if err := c.settle(ctx, pollInterval); err != nil {
			return false, &DisconnectedError{Stage: "confirm_submission"}
		}
	}
	return false, nil
}

// spinnerVisible probes the loading spinner without waiting. Count does not
// block on an absent element, so an idle surface costs one cheap query per
// poll instead of a full element-wait timeout.
func (c *Controller) spinnerVisible(ctx context.Context) bool {
	n, err := c.surface.Count(ctx, RoleSpinner)
	if err != nil || n == 0 {
		return false
	}
	h, err := c.surface.Locate(ctx, RoleSpinner)
	if err != nil {
		return false
	}
	st, err := c.surface.State(ctx, h)
	return err == nil && st.Visible
}

// GetResponse waits for the model turn to finish and returns its text.
// Completion requires the spinner to be gone and the edit button present on
// two consecutive polls; a single observation is not trusted because the UI
// briefly shows both during streaming.
func (c *Controller) GetResponse(ctx context.Context) (string, error) {
	deadline := time.Now().Add(c.timing.ResponseWait)
	streak := 0
	for {
		if err := c.checkDisconnect(ctx, "await_response"); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			c.snapshot(ctx, "response_timeout")
			return "", errors.New("timed out waiting for response completion")
		}

		done := !c.spinnerVisible(ctx)
		if done {
			if n, err := c.surface.Count(ctx, RoleEditMessage); err != nil || n == 0 {
				done = false
			}
		}
		if done {
			streak++
		} else {
			streak = 0
		}
		if streak >= 2 {
			break
		}
		if err := c.settle(ctx, pollInterval); err != nil {
			return "", &DisconnectedError{Stage: "await_response"}
		}
	}

	h, err := c.locate(ctx, RoleResponseText)
	if err != nil {
		c.snapshot(ctx, "response_missing")
		return "", err
	}
	st, err := c.surface.State(ctx, h)
	if err != nil {
		return "", &SurfaceError{Op: "read", Role: RoleResponseText, Err: err}
	}
	text := st.Value
	if strings.TrimSpace(text) == "" {
		log.Printf("[req:%s] response turn completed with empty text", c.reqID)
		c.snapshot(ctx, "empty_response")
	}
	return text, nil
}
