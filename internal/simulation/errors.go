package simulation

import (
	"errors"
	"fmt"
)

// Loop errors
var (
	ErrCancelled      = errors.New("simulation cancelled")
	ErrAlreadyStarted = errors.New("simulation already started")
	ErrNoCandles      = errors.New("no candles to simulate")
)

// SimulationError is an unexpected fault during a run.
// Step is the zero-based index of the candle being processed, or -1 when
// the fault happened before the loop started.
type SimulationError struct {
	Step int
	Err  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed at step %d: %v", e.Step, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}
