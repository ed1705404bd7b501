// Package journal records reconciliation facts in a Mangle deductive store so
// recurring surface failures can be derived instead of grepped for.
package journal

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aistudio-bridge/internal/config"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// Fact is one normalized reconciliation event.
type Fact struct {
	Predicate string    `json:"predicate"`
	Args      []any     `json:"args"`
	Timestamp time.Time `json:"timestamp"`
}

// builtinSchema declares the fact shapes the reconciler emits plus the
// derivation rules. Every fact carries its emit time (unix milliseconds) as
// the final argument so rules can reason temporally.
const builtinSchema = `
Decl param_written(Role, Value, T).
Decl param_cached(Role, Value, T).
Decl verify_failed(Role, Want, Got, T).
Decl toggle_clicked(Role, Desired, T).
Decl toggle_unavailable(Role, Reason, T).
Decl step_skipped(Step, Reason, T).
Decl flaky_control(Role).

flaky_control(Role) :- verify_failed(Role, _, _, T1), verify_failed(Role, _, _, T2), T1 < T2.
`

// Journal wraps the Mangle engine with a bounded temporal fact buffer and a
// predicate index for direct lookups.
type Journal struct {
	cfg config.JournalConfig

	mu          sync.RWMutex
	programInfo *analysis.ProgramInfo
	store       factstore.FactStore
	facts       []Fact
	index       map[string][]int
}

// New builds a journal and loads the builtin schema. With cfg.Enable false
// every method is a no-op.
func New(cfg config.JournalConfig) (*Journal, error) {
	j := &Journal{
		cfg:   cfg,
		facts: make([]Fact, 0, cfg.FactBufferLimit),
		index: make(map[string][]int),
		store: factstore.NewSimpleInMemoryStore(),
	}
	if !cfg.Enable {
		return j, nil
	}

	unit, err := parse.Unit(bytes.NewReader([]byte(builtinSchema)))
	if err != nil {
		return nil, fmt.Errorf("parse journal schema: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, make(map[ast.PredicateSym]ast.Decl))
	if err != nil {
		return nil, fmt.Errorf("analyze journal schema: %w", err)
	}
	j.programInfo = info
	return j, nil
}

// Emit records one fact, stamping it with the current time. Errors are logged
// and swallowed so fact recording can never fail a reconciliation pass.
func (j *Journal) Emit(ctx context.Context, predicate string, args ...any) {
	now := time.Now()
	withTime := make([]any, 0, len(args)+1)
	withTime = append(withTime, args...)
	withTime = append(withTime, now.UnixMilli())

	f := Fact{Predicate: predicate, Args: withTime, Timestamp: now}
	if err := j.AddFacts(ctx, []Fact{f}); err != nil {
		log.Printf("journal: emit %s failed: %v", predicate, err)
	}
}

// AddFacts appends facts to the temporal buffer and the Mangle store, then
// re-evaluates the program so derived predicates stay current.
func (j *Journal) AddFacts(ctx context.Context, facts []Fact) error {
	if !j.cfg.Enable {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	baseIdx := len(j.facts)
	j.facts = append(j.facts, facts...)
	if j.cfg.FactBufferLimit > 0 && len(j.facts) > j.cfg.FactBufferLimit {
		trim := len(j.facts) - j.cfg.FactBufferLimit
		j.facts = j.facts[trim:]
		j.rebuildIndex()
	} else {
		for i, f := range facts {
			j.index[f.Predicate] = append(j.index[f.Predicate], baseIdx+i)
		}
	}

	for _, f := range facts {
		atom, err := factToAtom(f)
		if err != nil {
			continue
		}
		j.store.Add(atom)
	}

	if j.programInfo != nil {
		if err := engine.EvalProgram(j.programInfo, j.store); err != nil {
			return fmt.Errorf("eval journal program: %w", err)
		}
	}
	return nil
}

// Evaluate runs full program evaluation and returns the derived facts for one
// predicate.
func (j *Journal) Evaluate(ctx context.Context, predicate string) ([]Fact, error) {
	if !j.cfg.Enable {
		return nil, fmt.Errorf("journal disabled")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := engine.EvalProgram(j.programInfo, j.store); err != nil {
		return nil, fmt.Errorf("eval journal program: %w", err)
	}

	arity := -1
	for sym := range j.programInfo.Decls {
		if sym.Symbol == predicate {
			arity = sym.Arity
			break
		}
	}
	if arity < 0 {
		return nil, fmt.Errorf("unknown predicate %q", predicate)
	}

	args := make([]ast.BaseTerm, arity)
	for i := range args {
		args[i] = ast.Variable{Symbol: fmt.Sprintf("V%d", i)}
	}
	queryAtom := ast.Atom{
		Predicate: ast.PredicateSym{Symbol: predicate, Arity: arity},
		Args:      args,
	}

	out := make([]Fact, 0)
	err := j.store.GetFacts(queryAtom, func(atom ast.Atom) error {
		out = append(out, atomToFact(atom))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get facts: %w", err)
	}
	return out, nil
}

// FlakyControls returns roles whose writes failed verification more than once.
// If rule evaluation fails, the answer is recomputed directly from the fact
// buffer so diagnostics stay available.
func (j *Journal) FlakyControls(ctx context.Context) []string {
	if facts, err := j.Evaluate(ctx, "flaky_control"); err == nil {
		roles := make([]string, 0, len(facts))
		seen := make(map[string]struct{})
		for _, f := range facts {
			if len(f.Args) == 0 {
				continue
			}
			role := fmt.Sprintf("%v", f.Args[0])
			if _, dup := seen[role]; dup {
				continue
			}
			seen[role] = struct{}{}
			roles = append(roles, role)
		}
		return roles
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	counts := make(map[string]int)
	for _, idx := range j.index["verify_failed"] {
		if idx < 0 || idx >= len(j.facts) {
			continue
		}
		f := j.facts[idx]
		if len(f.Args) > 0 {
			counts[fmt.Sprintf("%v", f.Args[0])]++
		}
	}
	roles := make([]string, 0, len(counts))
	for role, n := range counts {
		if n >= 2 {
			roles = append(roles, role)
		}
	}
	return roles
}

// FactsByPredicate returns buffered facts for one predicate via the index.
func (j *Journal) FactsByPredicate(predicate string) []Fact {
	j.mu.RLock()
	defer j.mu.RUnlock()

	indices, ok := j.index[predicate]
	if !ok {
		return []Fact{}
	}
	out := make([]Fact, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(j.facts) {
			out = append(out, j.facts[idx])
		}
	}
	return out
}

// QueryTemporal returns buffered facts for a predicate within a time window.
// Zero bounds are open.
func (j *Journal) QueryTemporal(predicate string, after, before time.Time) []Fact {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Fact, 0)
	for _, idx := range j.index[predicate] {
		if idx < 0 || idx >= len(j.facts) {
			continue
		}
		f := j.facts[idx]
		if (after.IsZero() || f.Timestamp.After(after)) &&
			(before.IsZero() || f.Timestamp.Before(before)) {
			out = append(out, f)
		}
	}
	return out
}

// Facts returns a copy of the buffered facts.
func (j *Journal) Facts() []Fact {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Fact, len(j.facts))
	copy(out, j.facts)
	return out
}

func (j *Journal) rebuildIndex() {
	j.index = make(map[string][]int)
	for i, f := range j.facts {
		j.index[f.Predicate] = append(j.index[f.Predicate], i)
	}
}

func factToAtom(f Fact) (ast.Atom, error) {
	args := make([]ast.BaseTerm, len(f.Args))
	for i, arg := range f.Args {
		args[i] = toConstant(arg)
	}
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: f.Predicate, Arity: len(f.Args)},
		Args:      args,
	}, nil
}

func atomToFact(atom ast.Atom) Fact {
	args := make([]any, len(atom.Args))
	for i, arg := range atom.Args {
		args[i] = convertConstant(arg)
	}
	return Fact{
		Predicate: atom.Predicate.Symbol,
		Args:      args,
		Timestamp: time.Now(),
	}
}

func toConstant(v any) ast.Constant {
	switch val := v.(type) {
	case string:
		return ast.String(val)
	case int:
		return ast.Number(int64(val))
	case int64:
		return ast.Number(val)
	case float64:
		return ast.Float64(val)
	case bool:
		if val {
			return ast.String("true")
		}
		return ast.String("false")
	default:
		return ast.String(fmt.Sprintf("%v", v))
	}
}

func convertConstant(c ast.BaseTerm) any {
	term, ok := c.(ast.Constant)
	if !ok {
		return fmt.Sprintf("%v", c)
	}
	switch term.Type {
	case ast.StringType:
		val, _ := term.StringValue()
		return val
	case ast.NumberType:
		return term.NumberValue
	case ast.Float64Type:
		if val, err := term.Float64Value(); err == nil {
			return val
		}
	}
	return term.String()
}
