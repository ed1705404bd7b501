package params

import (
	"context"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestAdjustTemperatureWriteAndVerify(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "1"})
	ctrl, jrnl, _ := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if fs.writes[RoleTemperature] != 1 {
		t.Errorf("expected 1 write, got %d", fs.writes[RoleTemperature])
	}
	if got := fs.controls[RoleTemperature].state.Value; got != "0.7" {
		t.Errorf("expected surface value 0.7, got %q", got)
	}
	if jrnl.count("param_written") != 1 {
		t.Errorf("expected one param_written fact, got %d", jrnl.count("param_written"))
	}
}

func TestAdjustTemperatureCacheFastPath(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "1"})
	ctrl, jrnl, _ := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	before := fs.totalOps()

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if fs.totalOps() != before {
		t.Errorf("cached value must cost zero surface operations, got %d extra", fs.totalOps()-before)
	}
	if jrnl.count("param_cached") != 1 {
		t.Errorf("expected one param_cached fact, got %d", jrnl.count("param_cached"))
	}
}

func TestAdjustTemperatureReadOnlyConvergence(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "0.7"})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if fs.writes[RoleTemperature] != 0 {
		t.Errorf("matching surface value must not be written, got %d writes", fs.writes[RoleTemperature])
	}

	// The verified read must have populated the cache.
	before := fs.totalOps()
	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if fs.totalOps() != before {
		t.Error("verified read must commit to the cache")
	}
}

func TestAdjustTemperatureEpsilonComparison(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "0.7000004"})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if fs.writes[RoleTemperature] != 0 {
		t.Error("values within epsilon must compare equal")
	}
}

func TestAdjustTemperatureClamping(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "1"})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(-1)); err != nil {
		t.Fatalf("adjust low: %v", err)
	}
	if got := fs.controls[RoleTemperature].state.Value; got != "0" {
		t.Errorf("expected clamp to 0, surface has %q", got)
	}

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(5)); err != nil {
		t.Fatalf("adjust high: %v", err)
	}
	if got := fs.controls[RoleTemperature].state.Value; got != "2" {
		t.Errorf("expected clamp to 2, surface has %q", got)
	}
}

func TestAdjustTemperatureVerifyFailureEvicts(t *testing.T) {
	fs := newFakeSurface()
	c := fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "1"})
	c.sticky = true
	ctrl, jrnl, snaps := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if jrnl.count("verify_failed") != 1 {
		t.Errorf("expected one verify_failed fact, got %d", jrnl.count("verify_failed"))
	}
	if snaps.count() != 1 {
		t.Errorf("expected one snapshot, got %d", snaps.count())
	}

	// Eviction means the next pass hits the surface again, not the cache.
	writes := fs.writes[RoleTemperature]
	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if fs.writes[RoleTemperature] != writes+1 {
		t.Error("failed verification must not leave a cache entry behind")
	}
}

func TestAdjustMaxOutputTokensCeiling(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleMaxOutputTokens, ControlState{Visible: true, Value: "1024"})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustMaxOutputTokens(context.Background(), "gemini-test", intPtr(100000)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got := fs.controls[RoleMaxOutputTokens].state.Value; got != "8192" {
		t.Errorf("expected ceiling clamp to 8192, surface has %q", got)
	}

	if err := ctrl.AdjustMaxOutputTokens(context.Background(), "gemini-test", intPtr(0)); err != nil {
		t.Fatalf("adjust floor: %v", err)
	}
	if got := fs.controls[RoleMaxOutputTokens].state.Value; got != "1" {
		t.Errorf("expected floor clamp to 1, surface has %q", got)
	}
}

func TestAdjustTopPClamping(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTopP, ControlState{Visible: true, Value: "0.95"})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustTopP(context.Background(), floatPtr(1.5)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got := fs.controls[RoleTopP].state.Value; got != "1" {
		t.Errorf("expected clamp to 1, surface has %q", got)
	}
}

func TestAdjustStopSequencesClearsAndInserts(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleStopInput, ControlState{Visible: true})
	fs.addControl(RoleStopChipRemove, ControlState{Visible: true})
	fs.chips = 2
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustStopSequences(context.Background(), []string{" END ", "STOP", "END", ""}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if fs.chips != 0 {
		t.Errorf("expected all chips removed, %d remain", fs.chips)
	}
	if fs.clicks[RoleStopChipRemove] != 2 {
		t.Errorf("expected 2 removal clicks, got %d", fs.clicks[RoleStopChipRemove])
	}
	// Normalization: trimmed, deduped, empty dropped.
	if fs.writes[RoleStopInput] != 2 {
		t.Errorf("expected 2 insertions after normalization, got %d", fs.writes[RoleStopInput])
	}
}

func TestAdjustStopSequencesCachedSet(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleStopInput, ControlState{Visible: true})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustStopSequences(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	before := fs.totalOps()

	// Same set in different order must hit the cache.
	if err := ctrl.AdjustStopSequences(context.Background(), []string{"b", "a"}); err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if fs.totalOps() != before {
		t.Error("equal stop set must cost zero surface operations")
	}
}

func TestSurfaceSessionInvalidate(t *testing.T) {
	fs := newFakeSurface()
	fs.addControl(RoleTemperature, ControlState{Visible: true, Value: "1"})
	ctrl, _, _ := newTestController(fs)

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	writes := fs.writes[RoleTemperature]

	ctrl.session.Invalidate()
	// Simulate the surface resetting underneath the engine.
	fs.controls[RoleTemperature].state.Value = "1"

	if err := ctrl.AdjustTemperature(context.Background(), floatPtr(0.7)); err != nil {
		t.Fatalf("adjust after invalidate: %v", err)
	}
	if fs.writes[RoleTemperature] != writes+1 {
		t.Error("invalidated cache must force a fresh surface pass")
	}
}
