package params

import (
	"context"
	"fmt"
	"sync"
)

// fakeControl is one scripted control on the fake surface.
type fakeControl struct {
	state ControlState
	// sticky controls ignore writes and clicks, simulating a surface that
	// silently rejects input.
	sticky bool
}

type fakeHandle struct {
	role Role
}

func (h *fakeHandle) Role() Role { return h.role }

// fakeSurface is an in-memory control surface with per-role operation
// counters.
type fakeSurface struct {
	mu       sync.Mutex
	controls map[Role]*fakeControl
	chips    int

	reads   map[Role]int
	writes  map[Role]int
	clicks  map[Role]int
	locates map[Role]int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		controls: make(map[Role]*fakeControl),
		reads:    make(map[Role]int),
		writes:   make(map[Role]int),
		clicks:   make(map[Role]int),
		locates:  make(map[Role]int),
	}
}

func (f *fakeSurface) addControl(role Role, st ControlState) *fakeControl {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeControl{state: st}
	f.controls[role] = c
	return c
}

func (f *fakeSurface) Locate(ctx context.Context, role Role) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locates[role]++
	if _, ok := f.controls[role]; !ok {
		return nil, fmt.Errorf("locate %s: %w", role, ErrControlNotFound)
	}
	return &fakeHandle{role: role}, nil
}

func (f *fakeSurface) State(ctx context.Context, h Handle) (ControlState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.controls[h.Role()]
	if !ok {
		return ControlState{}, fmt.Errorf("state %s: control gone", h.Role())
	}
	f.reads[h.Role()]++
	return c.state, nil
}

func (f *fakeSurface) Fill(ctx context.Context, h Handle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.controls[h.Role()]
	if !ok {
		return fmt.Errorf("fill %s: control gone", h.Role())
	}
	f.writes[h.Role()]++
	if !c.sticky {
		c.state.Value = text
	}
	return nil
}

func (f *fakeSurface) Click(ctx context.Context, h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.controls[h.Role()]
	if !ok {
		return fmt.Errorf("click %s: control gone", h.Role())
	}
	f.clicks[h.Role()]++
	if c.sticky {
		return nil
	}
	switch h.Role() {
	case RoleStopChipRemove:
		if f.chips > 0 {
			f.chips--
		}
		if f.chips == 0 {
			delete(f.controls, RoleStopChipRemove)
		}
	default:
		c.state.Checked = !c.state.Checked
	}
	return nil
}

func (f *fakeSurface) Press(ctx context.Context, h Handle, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.controls[h.Role()]; !ok {
		return fmt.Errorf("press %s: control gone", h.Role())
	}
	return nil
}

func (f *fakeSurface) Count(ctx context.Context, role Role) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if role == RoleStopChipRemove {
		return f.chips, nil
	}
	if _, ok := f.controls[role]; ok {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeSurface) totalOps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.reads {
		total += n
	}
	for _, n := range f.writes {
		total += n
	}
	for _, n := range f.clicks {
		total += n
	}
	return total
}

// fakeJournal records emitted facts for assertions.
type fakeJournal struct {
	mu    sync.Mutex
	facts []struct {
		Predicate string
		Args      []any
	}
}

func (j *fakeJournal) Emit(ctx context.Context, predicate string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.facts = append(j.facts, struct {
		Predicate string
		Args      []any
	}{predicate, args})
}

func (j *fakeJournal) count(predicate string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, f := range j.facts {
		if f.Predicate == predicate {
			n++
		}
	}
	return n
}

// fakeSnapshots counts snapshot captures.
type fakeSnapshots struct {
	mu   sync.Mutex
	tags []string
}

func (s *fakeSnapshots) CaptureSnapshot(ctx context.Context, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append(s.tags, tag)
}

func (s *fakeSnapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tags)
}

type fakeCeilings map[string]int

func (c fakeCeilings) MaxOutputTokens(modelID string) int {
	if v, ok := c[modelID]; ok {
		return v
	}
	return 65536
}

// newTestController builds a controller over the fake surface with zero
// settle delays so tests run instantly.
func newTestController(f *fakeSurface) (*Controller, *fakeJournal, *fakeSnapshots) {
	jrnl := &fakeJournal{}
	snaps := &fakeSnapshots{}
	ctrl := NewController("test", ControllerOptions{
		Surface: f,
		Session: NewSurfaceSession(),
		Defaults: GenerationDefaults{
			Temperature:     1.0,
			MaxOutputTokens: 65536,
			TopP:            0.95,
		},
		Thinking:  ThinkingDefaults{Enabled: true},
		Ceilings:  fakeCeilings{"gemini-test": 8192},
		Journal:   jrnl,
		Snapshots: snaps,
	})
	return ctrl, jrnl, snaps
}
