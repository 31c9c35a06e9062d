package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known strategy parameter keys read by the engine.
// All other keys are opaque and only interpreted by the strategy evaluator.
const (
	ParamStopLoss     = "stopLoss"     // fraction of entry price, e.g. 0.02
	ParamTakeProfit   = "takeProfit"   // fraction of entry price, e.g. 0.04
	ParamMaxHoldHours = "maxHoldHours" // hours; 0 disables
)

// Parameters holds numeric strategy parameters keyed by name.
type Parameters map[string]float64

// Clone returns an independent copy of the parameters.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Get returns the parameter value, or def when absent.
func (p Parameters) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Keys returns parameter names sorted ascending.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders parameters as "k1=v1,k2=v2" in key order.
func (p Parameters) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, ",")
}

// Strategy describes a trading strategy. The engine treats conditions as
// opaque and only passes them to the StrategyEvaluator.
// A Strategy is immutable for the duration of one run.
type Strategy struct {
	Name            string     `json:"name" yaml:"name"`
	Symbol          string     `json:"symbol" yaml:"symbol"`
	Parameters      Parameters `json:"parameters" yaml:"parameters"`
	EntryConditions []string   `json:"entryConditions,omitempty" yaml:"entryConditions"`
	ExitConditions  []string   `json:"exitConditions,omitempty" yaml:"exitConditions"`
}

// Clone returns a deep copy of the strategy.
func (s Strategy) Clone() Strategy {
	out := s
	out.Parameters = s.Parameters.Clone()
	out.EntryConditions = append([]string(nil), s.EntryConditions...)
	out.ExitConditions = append([]string(nil), s.ExitConditions...)
	return out
}

// WithParameters returns a copy of the strategy with the given parameters
// overriding the base ones.
func (s Strategy) WithParameters(overrides Parameters) Strategy {
	out := s.Clone()
	if out.Parameters == nil {
		out.Parameters = make(Parameters, len(overrides))
	}
	for k, v := range overrides {
		out.Parameters[k] = v
	}
	return out
}

// Validate checks required strategy fields.
func (s Strategy) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("strategy.name", "is required")
	}
	for k, v := range s.Parameters {
		if v < 0 && (k == ParamStopLoss || k == ParamTakeProfit || k == ParamMaxHoldHours) {
			return NewValidationError("strategy.parameters."+k, "must not be negative")
		}
	}
	return nil
}

// ParameterRanges maps parameter name to its candidate values.
type ParameterRanges map[string][]float64

// ParameterCombination is one concrete assignment for every key of a
// ParameterRanges map. Never mutated after generation.
type ParameterCombination Parameters
