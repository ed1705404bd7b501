package params

import (
	"context"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
)

// scalarCodec converts between a parameter's typed value and the text the
// surface control carries.
type scalarCodec[T any] struct {
	parse  func(string) (T, error)
	format func(T) string
	equal  func(a, b T) bool
}

var floatCodec = scalarCodec[float64]{
	parse: func(s string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	},
	format: func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	equal: func(a, b float64) bool {
		return math.Abs(a-b) <= floatEpsilon
	},
}

var intCodec = scalarCodec[int]{
	parse: func(s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	},
	format: strconv.Itoa,
	equal:  func(a, b int) bool { return a == b },
}

// reconcileScalar is the read-compare-write-verify pass for one value control.
// Holds the session lock for the full span. A verified match (cached or read)
// costs zero writes; a write is always re-read before it is trusted.
func reconcileScalar[T any](ctx context.Context, c *Controller, role Role, desired T, codec scalarCodec[T]) error {
	c.session.lock()
	defer c.session.unlock()

	if err := c.checkDisconnect(ctx, "adjust_"+string(role)); err != nil {
		return err
	}

	if v, ok := c.session.cached(role); ok {
		if t, ok := v.(T); ok && codec.equal(t, desired) {
			log.Printf("[req:%s] %s cached at %s, skipping", c.reqID, role, codec.format(desired))
			c.emit(ctx, "param_cached", string(role), codec.format(desired))
			return nil
		}
	}

	h, err := c.locate(ctx, role)
	if err != nil {
		c.session.evict(role)
		return err
	}

	st, err := c.surface.State(ctx, h)
	if err != nil {
		c.session.evict(role)
		return &SurfaceError{Op: "read", Role: role, Err: err}
	}
	if cur, perr := codec.parse(st.Value); perr == nil && codec.equal(cur, desired) {
		c.session.commit(role, desired)
		log.Printf("[req:%s] %s already %s", c.reqID, role, codec.format(desired))
		return nil
	}

	if err := c.checkDisconnect(ctx, "write_"+string(role)); err != nil {
		return err
	}

	text := codec.format(desired)
	if err := c.surface.Fill(ctx, h, text); err != nil {
		c.session.evict(role)
		return &SurfaceError{Op: "fill", Role: role, Err: err}
	}
	if err := c.settle(ctx, c.timing.FillSettle); err != nil {
		c.session.evict(role)
		return &DisconnectedError{Stage: "settle_" + string(role)}
	}

	st, err = c.surface.State(ctx, h)
	if err != nil {
		c.session.evict(role)
		return &SurfaceError{Op: "verify", Role: role, Err: err}
	}
	got, perr := codec.parse(st.Value)
	if perr != nil {
		c.session.evict(role)
		c.emit(ctx, "verify_failed", string(role), text, st.Value)
		c.snapshot(ctx, "verify_failed_"+string(role))
		return &ParseError{Role: role, Raw: st.Value, Err: perr}
	}
	if !codec.equal(got, desired) {
		c.session.evict(role)
		log.Printf("[req:%s] %s wrote %s but read back %s", c.reqID, role, text, st.Value)
		c.emit(ctx, "verify_failed", string(role), text, st.Value)
		c.snapshot(ctx, "verify_failed_"+string(role))
		return nil
	}

	c.session.commit(role, desired)
	c.emit(ctx, "param_written", string(role), text)
	log.Printf("[req:%s] %s set to %s", c.reqID, role, text)
	return nil
}

// AdjustTemperature clamps to [0, 2] and reconciles the temperature input.
func (c *Controller) AdjustTemperature(ctx context.Context, desired *float64) error {
	v := c.defaults.Temperature
	if desired != nil {
		v = *desired
	}
	v = clampFloat(v, 0, 2)
	return reconcileScalar(ctx, c, RoleTemperature, v, floatCodec)
}

// AdjustMaxOutputTokens clamps to [1, model ceiling] and reconciles the
// max-output-tokens input. The ceiling comes from the model catalog.
func (c *Controller) AdjustMaxOutputTokens(ctx context.Context, modelID string, desired *int) error {
	v := c.defaults.MaxOutputTokens
	if desired != nil {
		v = *desired
	}
	ceiling := 0
	if c.ceilings != nil {
		ceiling = c.ceilings.MaxOutputTokens(modelID)
	}
	if ceiling <= 0 {
		ceiling = v
	}
	if v > ceiling {
		log.Printf("[req:%s] max_output_tokens %d exceeds ceiling %d for %q, clamping", c.reqID, v, ceiling, modelID)
		v = ceiling
	}
	if v < 1 {
		v = 1
	}
	return reconcileScalar(ctx, c, RoleMaxOutputTokens, v, intCodec)
}

// AdjustTopP clamps to [0, 1] and reconciles the top-p input.
func (c *Controller) AdjustTopP(ctx context.Context, desired *float64) error {
	v := c.defaults.TopP
	if desired != nil {
		v = *desired
	}
	v = clampFloat(v, 0, 1)
	return reconcileScalar(ctx, c, RoleTopP, v, floatCodec)
}

// AdjustStopSequences reconciles the stop-sequence chip list as a set:
// existing chips are cleared (bounded loop), then the desired sequences are
// inserted one by one. Order on the surface is not meaningful.
func (c *Controller) AdjustStopSequences(ctx context.Context, desired []string) error {
	want := normalizeStops(desired)

	c.session.lock()
	defer c.session.unlock()

	if err := c.checkDisconnect(ctx, "adjust_stop_sequences"); err != nil {
		return err
	}

	if v, ok := c.session.cached(RoleStopInput); ok {
		if cur, ok := v.([]string); ok && equalStopSets(cur, want) {
			c.emit(ctx, "param_cached", string(RoleStopInput), strings.Join(want, ","))
			return nil
		}
	}

	initial, err := c.surface.Count(ctx, RoleStopChipRemove)
	if err != nil {
		c.session.evict(RoleStopInput)
		return &SurfaceError{Op: "count", Role: RoleStopChipRemove, Err: err}
	}

	// Clear existing chips. The loop is bounded at initial+5 attempts so a
	// chip that refuses to go away cannot wedge the pass.
	for attempt := 0; attempt < initial+5; attempt++ {
		n, err := c.surface.Count(ctx, RoleStopChipRemove)
		if err != nil || n == 0 {
			break
		}
		h, err := c.locate(ctx, RoleStopChipRemove)
		if err != nil {
			break
		}
		if err := c.surface.Click(ctx, h); err != nil {
			log.Printf("[req:%s] stop chip removal click failed: %v", c.reqID, err)
			break
		}
		if err := c.settle(ctx, chipSettleDelay); err != nil {
			c.session.evict(RoleStopInput)
			return &DisconnectedError{Stage: "clear_stop_chips"}
		}
	}
	if n, err := c.surface.Count(ctx, RoleStopChipRemove); err == nil && n > 0 {
		log.Printf("[req:%s] %d stop chips remain after clearing", c.reqID, n)
	}

	if len(want) == 0 {
		c.session.commit(RoleStopInput, want)
		return nil
	}

	h, err := c.locate(ctx, RoleStopInput)
	if err != nil {
		c.session.evict(RoleStopInput)
		return err
	}
	for _, seq := range want {
		if err := c.checkDisconnect(ctx, "insert_stop_sequence"); err != nil {
			return err
		}
		if err := c.surface.Fill(ctx, h, seq); err != nil {
			c.session.evict(RoleStopInput)
			return &SurfaceError{Op: "fill", Role: RoleStopInput, Err: err}
		}
		if err := c.surface.Press(ctx, h, "Enter"); err != nil {
			c.session.evict(RoleStopInput)
			return &SurfaceError{Op: "press", Role: RoleStopInput, Err: err}
		}
		if err := c.settle(ctx, insertSettleDelay); err != nil {
			c.session.evict(RoleStopInput)
			return &DisconnectedError{Stage: "insert_stop_sequence"}
		}
	}

	c.session.commit(RoleStopInput, want)
	c.emit(ctx, "param_written", string(RoleStopInput), strings.Join(want, ","))
	return nil
}

// normalizeStops trims, drops empties, and dedupes while keeping first-seen
// order, then sorts for stable set comparison.
func normalizeStops(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func equalStopSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
