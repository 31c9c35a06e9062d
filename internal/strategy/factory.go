package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Evaluator type names accepted by FromName.
const (
	TypeMomentum   = "momentum"
	TypeBreakout   = "breakout"
	TypeBuyAndHold = "buy_and_hold"
	TypeIdle       = "idle"
)

// Factory errors
var (
	ErrUnknownEvaluator = errors.New("unknown evaluator type")
)

var constructors = map[string]func() Evaluator{
	TypeMomentum:   func() Evaluator { return NewMomentum() },
	TypeBreakout:   func() Evaluator { return NewBreakout() },
	TypeBuyAndHold: func() Evaluator { return NewBuyAndHold() },
	TypeIdle:       func() Evaluator { return NewIdle() },
}

// FromName creates an Evaluator by type name (case-insensitive).
func FromName(name string) (Evaluator, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvaluator, name)
	}
	return ctor(), nil
}

// Names returns the registered evaluator type names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
