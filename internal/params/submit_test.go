package params

import (
	"context"
	"errors"
	"testing"
	"time"
)

func submitTiming() Timing {
	return Timing{
		SubmitEnableWait: 2 * time.Second,
		ResponseWait:     5 * time.Second,
	}
}

func TestSubmitPromptSpinnerEvidence(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RolePrompt, ControlState{Visible: true})
	fs.addControl(RoleSubmit, ControlState{Visible: true})
	fs.addControl(RoleSpinner, ControlState{Visible: true})
	ctrl, _, _ := newTestController(fs)
	ctrl.timing = submitTiming()

	if err := ctrl.SubmitPrompt(context.Background(), "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := fs.controls[RolePrompt].state.Value; got != "hello" {
		t.Errorf("prompt not filled, got %q", got)
	}
	if fs.clicks[RoleSubmit] != 1 {
		t.Errorf("expected single button click, got %d", fs.clicks[RoleSubmit])
	}
}

func TestSubmitPromptEmptyInputEvidence(t *testing.T) {
	fs := newFakeSurface()
	// Sticky prompt keeps its empty value, which reads as submission
	// evidence after the first strategy fires.
	c := fs.addControl(RolePrompt, ControlState{Visible: true})
	c.sticky = true
	fs.addControl(RoleSubmit, ControlState{Visible: true})
	ctrl, _, _ := newTestController(fs)
	ctrl.timing = submitTiming()

	if err := ctrl.SubmitPrompt(context.Background(), "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fs.clicks[RoleSubmit] != 1 {
		t.Errorf("expected single button click, got %d", fs.clicks[RoleSubmit])
	}
}

func TestSubmitPromptNeverEnabled(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RolePrompt, ControlState{Visible: true})
	fs.addControl(RoleSubmit, ControlState{Visible: true, Disabled: true})
	ctrl, _, snaps := newTestController(fs)
	ctrl.timing = Timing{SubmitEnableWait: 500 * time.Millisecond}

	err := ctrl.SubmitPrompt(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected submission error")
	}
	var serr *SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SubmissionError, got %T", err)
	}
	if snaps.count() != 1 {
		t.Errorf("expected diagnostic snapshot, got %d", snaps.count())
	}
	if fs.clicks[RoleSubmit] != 0 {
		t.Error("disabled run button must not be clicked")
	}
}

func TestGetResponseCompletes(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleEditMessage, ControlState{Visible: true})
	fs.addControl(RoleResponseText, ControlState{Visible: true, Value: "the answer"})
	ctrl, _, _ := newTestController(fs)
	ctrl.timing = submitTiming()

	text, err := ctrl.GetResponse(context.Background())
	if err != nil {
		t.Fatalf("get response: %v", err)
	}
	if text != "the answer" {
		t.Errorf("expected response text, got %q", text)
	}
}

func TestGetResponseAbsentSpinnerNotLocated(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleEditMessage, ControlState{Visible: true})
	fs.addControl(RoleResponseText, ControlState{Visible: true, Value: "done"})
	ctrl, _, _ := newTestController(fs)
	ctrl.timing = submitTiming()

	if _, err := ctrl.GetResponse(context.Background()); err != nil {
		t.Fatalf("get response: %v", err)
	}
	// An absent spinner must be probed by count only; a locate would block
	// for the element wait on a real surface.
	if fs.locates[RoleSpinner] != 0 {
		t.Errorf("absent spinner must not be located, got %d locates", fs.locates[RoleSpinner])
	}
	if fs.locates[RoleEditMessage] != 0 {
		t.Errorf("edit button presence is a count probe, got %d locates", fs.locates[RoleEditMessage])
	}
}

func TestGetResponseTimesOutWhileStreaming(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleSpinner, ControlState{Visible: true})
	fs.addControl(RoleResponseText, ControlState{Visible: true, Value: "partial"})
	ctrl, _, snaps := newTestController(fs)
	ctrl.timing = Timing{ResponseWait: 700 * time.Millisecond}

	_, err := ctrl.GetResponse(context.Background())
	if err == nil {
		t.Fatal("expected timeout while spinner is visible")
	}
	if snaps.count() != 1 {
		t.Errorf("expected timeout snapshot, got %d", snaps.count())
	}
}

func TestGetResponseEmptyTextSnapshots(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleEditMessage, ControlState{Visible: true})
	fs.addControl(RoleResponseText, ControlState{Visible: true, Value: "   "})
	ctrl, _, snaps := newTestController(fs)
	ctrl.timing = submitTiming()

	text, err := ctrl.GetResponse(context.Background())
	if err != nil {
		t.Fatalf("get response: %v", err)
	}
	if text != "   " {
		t.Errorf("raw text must be returned as read, got %q", text)
	}
	if snaps.count() != 1 {
		t.Errorf("expected snapshot for empty response, got %d", snaps.count())
	}
}
