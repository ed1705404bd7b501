package params

import (
	"strconv"
	"strings"
)

// Budget values the named effort levels map to.
const (
	BudgetLow    = 1000
	BudgetMedium = 8000
	BudgetHigh   = 24000

	// lowLevelCeiling splits numeric budgets into LOW and HIGH effort levels.
	lowLevelCeiling = 2000
)

// EffortLevel is the coarse classification of a thinking directive, carried
// alongside the concrete budget for diagnostics and journal facts.
type EffortLevel string

const (
	EffortNone EffortLevel = "none"
	EffortLow  EffortLevel = "low"
	EffortHigh EffortLevel = "high"
)

// ThinkingDirective is the single normalized form every thinking input
// collapses into. The surface reconciler consumes only this; it never sees
// the raw request fields.
type ThinkingDirective struct {
	// ThinkingEnabled drives the master thinking toggle.
	ThinkingEnabled bool
	// BudgetEnabled drives the budget toggle; meaningful only when thinking
	// is enabled.
	BudgetEnabled bool
	// BudgetValue is the concrete budget to write when BudgetEnabled; nil
	// means unbounded (budget toggle off).
	BudgetValue *int
	Level       EffortLevel
	// Original preserves the raw input for journal facts and diagnostics.
	Original any
}

// NormalizeThinking collapses the three ways a request can express thinking
// intent into one directive. Precedence, highest first:
//
//  1. structured thinking config with include_thoughts set
//  2. the scalar reasoning-effort channel
//  3. process defaults from configuration
//
// The scalar channel itself is overloaded: 0 and "0" disable thinking, -1 and
// "none" enable it unbounded, the named levels map to fixed budgets, and any
// other positive integer or numeric string is taken as a budget verbatim.
// Values that fit none of those shapes fall back to the configured defaults.
func NormalizeThinking(effort EffortValue, tc *ThinkingConfig, defaults ThinkingDefaults) ThinkingDirective {
	if tc != nil && tc.IncludeThoughts {
		return fromStructured(tc)
	}
	if effort.Present() {
		return fromScalar(effort, defaults)
	}
	return defaults.directive()
}

// ThinkingDefaults is the configured fallback when a request is silent on
// thinking.
type ThinkingDefaults struct {
	Enabled       bool
	BudgetEnabled bool
	Budget        int
}

func (d ThinkingDefaults) directive() ThinkingDirective {
	out := ThinkingDirective{
		ThinkingEnabled: d.Enabled,
		Level:           EffortNone,
		Original:        nil,
	}
	if !d.Enabled {
		return out
	}
	if d.BudgetEnabled {
		v := d.Budget
		out.BudgetEnabled = true
		out.BudgetValue = &v
		out.Level = levelFor(v)
	} else {
		out.Level = EffortHigh
	}
	return out
}

func fromStructured(tc *ThinkingConfig) ThinkingDirective {
	out := ThinkingDirective{
		ThinkingEnabled: true,
		Level:           EffortHigh,
		Original:        tc,
	}
	if tc.ThinkingBudget != nil && *tc.ThinkingBudget >= 0 {
		// An explicit budget of 0 still means "thinking on, budget 0": the
		// budget toggle is engaged and the value written verbatim. Negative
		// budgets mean unbounded, same as no budget at all.
		v := *tc.ThinkingBudget
		out.BudgetEnabled = true
		out.BudgetValue = &v
		out.Level = levelFor(v)
	}
	return out
}

func fromScalar(effort EffortValue, defaults ThinkingDefaults) ThinkingDirective {
	raw := effort.Raw()

	if effort.isString {
		s := strings.TrimSpace(effort.str)
		switch strings.ToLower(s) {
		case "0":
			return ThinkingDirective{Level: EffortNone, Original: raw}
		case "none", "-1":
			return ThinkingDirective{ThinkingEnabled: true, Level: EffortHigh, Original: raw}
		case "low":
			return budgetDirective(BudgetLow, raw)
		case "medium":
			return budgetDirective(BudgetMedium, raw)
		case "high":
			return budgetDirective(BudgetHigh, raw)
		}
		// Numeric strings carry a verbatim budget.
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return budgetDirective(n, raw)
		}
		return defaultsWithOriginal(defaults, raw)
	}

	switch {
	case effort.num == 0:
		return ThinkingDirective{Level: EffortNone, Original: raw}
	case effort.num == -1:
		return ThinkingDirective{ThinkingEnabled: true, Level: EffortHigh, Original: raw}
	case effort.num > 0:
		return budgetDirective(effort.num, raw)
	default:
		return defaultsWithOriginal(defaults, raw)
	}
}

// defaultsWithOriginal is the fallback for values that fit no recognized
// shape: the configured defaults apply, but the raw input is kept for
// diagnostics.
func defaultsWithOriginal(defaults ThinkingDefaults, raw any) ThinkingDirective {
	out := defaults.directive()
	out.Original = raw
	return out
}

func budgetDirective(budget int, original any) ThinkingDirective {
	v := budget
	return ThinkingDirective{
		ThinkingEnabled: true,
		BudgetEnabled:   true,
		BudgetValue:     &v,
		Level:           levelFor(budget),
		Original:        original,
	}
}

func levelFor(budget int) EffortLevel {
	if budget < lowLevelCeiling {
		return EffortLow
	}
	return EffortHigh
}
