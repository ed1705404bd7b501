package params

import (
	"context"
	"testing"
)

func TestReconcileToggleAlreadyMatching(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleSearchGrounding, ControlState{Visible: true, Checked: true})
	ctrl, _, _ := newTestController(fs)

	res, checked, err := ctrl.reconcileToggle(context.Background(), RoleSearchGrounding, true)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res != ToggleApplied {
		t.Error("expected applied")
	}
	if !checked {
		t.Error("expected checked state reported")
	}
	if fs.clicks[RoleSearchGrounding] != 0 {
		t.Errorf("matching toggle must not be clicked, got %d clicks", fs.clicks[RoleSearchGrounding])
	}
}

func TestReconcileToggleSingleClick(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleSearchGrounding, ControlState{Visible: true, Checked: false})
	ctrl, jrnl, _ := newTestController(fs)

	res, checked, err := ctrl.reconcileToggle(context.Background(), RoleSearchGrounding, true)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res != ToggleApplied || !checked {
		t.Errorf("expected applied and checked, got %v %v", res, checked)
	}
	if fs.clicks[RoleSearchGrounding] != 1 {
		t.Errorf("expected exactly one click, got %d", fs.clicks[RoleSearchGrounding])
	}
	if jrnl.count("toggle_clicked") != 1 {
		t.Errorf("expected toggle_clicked fact, got %d", jrnl.count("toggle_clicked"))
	}
}

func TestReconcileToggleDisabledMatching(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleThinking, ControlState{Visible: true, Disabled: true, Checked: true})
	ctrl, _, _ := newTestController(fs)

	res, _, err := ctrl.reconcileToggle(context.Background(), RoleThinking, true)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res != ToggleApplied {
		t.Error("disabled toggle already in desired state is applied")
	}
	if fs.clicks[RoleThinking] != 0 {
		t.Error("disabled toggle must never be clicked")
	}
}

func TestReconcileToggleDisabledConflicting(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleThinking, ControlState{Visible: true, Disabled: true, Checked: true})
	ctrl, jrnl, _ := newTestController(fs)

	res, checked, err := ctrl.reconcileToggle(context.Background(), RoleThinking, false)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res != ToggleUnavailable {
		t.Error("disabled toggle in the wrong state is unavailable")
	}
	if !checked {
		t.Error("observed state must be reported for fallback decisions")
	}
	if fs.clicks[RoleThinking] != 0 {
		t.Error("disabled toggle must never be clicked")
	}
	if jrnl.count("toggle_unavailable") != 1 {
		t.Errorf("expected toggle_unavailable fact, got %d", jrnl.count("toggle_unavailable"))
	}
}

func TestReconcileToggleMissing(t *testing.T) {
	fs := newFakeSurface()
	ctrl, jrnl, _ := newTestController(fs)

	res, _, err := ctrl.reconcileToggle(context.Background(), RoleURLContext, true)
	if err != nil {
		t.Fatalf("missing toggle must be reported, not errored: %v", err)
	}
	if res != ToggleUnavailable {
		t.Error("missing toggle is unavailable")
	}
	if jrnl.count("toggle_unavailable") != 1 {
		t.Errorf("expected toggle_unavailable fact, got %d", jrnl.count("toggle_unavailable"))
	}
}

func TestReconcileToggleStuck(t *testing.T) {
	fs := newFakeSurface()
	c := fs.addControl(RoleSearchGrounding, ControlState{Visible: true, Checked: false})
	c.sticky = true
	ctrl, jrnl, snaps := newTestController(fs)

	res, checked, err := ctrl.reconcileToggle(context.Background(), RoleSearchGrounding, true)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res != ToggleUnavailable {
		t.Error("a click that does not take is reported, not retried")
	}
	if checked {
		t.Error("actual state must be reported")
	}
	if fs.clicks[RoleSearchGrounding] != 1 {
		t.Errorf("at most one click per pass, got %d", fs.clicks[RoleSearchGrounding])
	}
	if jrnl.count("verify_failed") != 1 {
		t.Errorf("expected verify_failed fact, got %d", jrnl.count("verify_failed"))
	}
	if snaps.count() != 1 {
		t.Errorf("expected snapshot on toggle verify failure, got %d", snaps.count())
	}
}

func TestEnsureToolsPanelExpanded(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleToolsPanel, ControlState{Visible: true, Checked: false})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.ensureToolsPanelExpanded(context.Background()); err != nil {
		t.Fatalf("expand: %v", err)
	}
	if fs.clicks[RoleToolsPanel] != 1 {
		t.Errorf("expected one click to expand, got %d", fs.clicks[RoleToolsPanel])
	}

	if err := ctrl.ensureToolsPanelExpanded(context.Background()); err != nil {
		t.Fatalf("second expand: %v", err)
	}
	if fs.clicks[RoleToolsPanel] != 1 {
		t.Error("already expanded panel must not be clicked again")
	}
}
