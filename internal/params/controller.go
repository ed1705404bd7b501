package params

import (
	"context"
	"log"
	"time"
)

// Fixed settle delays mirroring how the playground UI reacts to input. These
// are intrinsic to the surface, not tunables.
const (
	chipSettleDelay   = 150 * time.Millisecond
	insertSettleDelay = 200 * time.Millisecond
	preSubmitDelay    = 300 * time.Millisecond
	pollInterval      = 300 * time.Millisecond
)

// floatEpsilon bounds float comparison for cached and read-back values.
const floatEpsilon = 1e-3

// Ceilings resolves per-model output-token limits.
type Ceilings interface {
	MaxOutputTokens(modelID string) int
}

// FactSink receives reconciliation facts for the journal. Emit must never
// block reconciliation; failures are the sink's problem.
type FactSink interface {
	Emit(ctx context.Context, predicate string, args ...any)
}

// GenerationDefaults supplies values for request fields the caller omitted.
type GenerationDefaults struct {
	Temperature     float64
	MaxOutputTokens int
	TopP            float64
	StopSequences   []string
}

// FeatureFlags gates optional surface features.
type FeatureFlags struct {
	URLContext   bool
	GoogleSearch bool
}

// Timing carries the configurable delays and deadlines for surface work.
type Timing struct {
	FillSettle       time.Duration
	ToggleSettle     time.Duration
	SubmitEnableWait time.Duration
	ResponseWait     time.Duration
}

// ControllerOptions wires a Controller's collaborators. Surface and Session
// are required; nil Journal, Snapshots, and Disconnect degrade to no-ops.
type ControllerOptions struct {
	Surface    Surface
	Session    *SurfaceSession
	Defaults   GenerationDefaults
	Thinking   ThinkingDefaults
	Features   FeatureFlags
	Timing     Timing
	Ceilings   Ceilings
	Journal    FactSink
	Snapshots  SnapshotSink
	Disconnect DisconnectCheck
}

// Controller drives one reconciliation pass (and the submission that follows)
// for a single request against a single surface.
type Controller struct {
	surface    Surface
	session    *SurfaceSession
	defaults   GenerationDefaults
	thinking   ThinkingDefaults
	features   FeatureFlags
	timing     Timing
	ceilings   Ceilings
	journal    FactSink
	snaps      SnapshotSink
	disconnect DisconnectCheck
	reqID      string
}

// NewController builds a controller for one request. reqID tags every log
// line, snapshot, and journal fact the controller produces.
func NewController(reqID string, opts ControllerOptions) *Controller {
	c := &Controller{
		surface:    opts.Surface,
		session:    opts.Session,
		defaults:   opts.Defaults,
		thinking:   opts.Thinking,
		features:   opts.Features,
		timing:     opts.Timing,
		ceilings:   opts.Ceilings,
		journal:    opts.Journal,
		snaps:      opts.Snapshots,
		disconnect: opts.Disconnect,
		reqID:      reqID,
	}
	if c.disconnect == nil {
		c.disconnect = func(string) bool { return false }
	}
	return c
}

// checkDisconnect polls the cancellation signal and the context at a named
// stage. Once either fires, the pass is over: no further surface writes and
// no cache commits.
func (c *Controller) checkDisconnect(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		log.Printf("[req:%s] context done at %s: %v", c.reqID, stage, err)
		return &DisconnectedError{Stage: stage}
	}
	if c.disconnect(stage) {
		log.Printf("[req:%s] client disconnected at %s", c.reqID, stage)
		return &DisconnectedError{Stage: stage}
	}
	return nil
}

// settle sleeps for d unless the context ends first.
func (c *Controller) settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// emit forwards a fact to the journal, if one is wired.
func (c *Controller) emit(ctx context.Context, predicate string, args ...any) {
	if c.journal == nil {
		return
	}
	c.journal.Emit(ctx, predicate, args...)
}

// snapshot requests a diagnostic capture, if a sink is wired. Best effort.
func (c *Controller) snapshot(ctx context.Context, tag string) {
	if c.snaps == nil {
		return
	}
	c.snaps.CaptureSnapshot(ctx, tag+"_"+c.reqID)
}

// locate wraps Surface.Locate with the standard error shape.
func (c *Controller) locate(ctx context.Context, role Role) (Handle, error) {
	h, err := c.surface.Locate(ctx, role)
	if err != nil {
		return nil, &SurfaceError{Op: "locate", Role: role, Err: err}
	}
	return h, nil
}

// recover converts a recoverable step error into a log line and a journal
// fact so the pass can continue. Disconnects are never swallowed.
func (c *Controller) recover(ctx context.Context, step string, err error) error {
	if err == nil {
		return nil
	}
	if IsDisconnect(err) {
		return err
	}
	log.Printf("[req:%s] %s failed, continuing: %v", c.reqID, step, err)
	c.emit(ctx, "step_skipped", step, err.Error())
	return nil
}
