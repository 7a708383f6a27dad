package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is matched by every *InvalidPeriodError.
var ErrInvalidPeriod = errors.New("invalid target period")

// InvalidPeriodError reports a target period that cannot be iterated.
type InvalidPeriodError struct {
	Period Period
	Reason string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid target period [%s, %s] step %v: %s",
		e.Period.Start.Format(time.RFC3339), e.Period.End.Format(time.RFC3339), e.Period.Step, e.Reason)
}

// Is reports whether target is ErrInvalidPeriod.
func (e *InvalidPeriodError) Is(target error) bool {
	return target == ErrInvalidPeriod
}

// Period is the closed range [Start, End] sampled every Step from Start.
type Period struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Validate returns an *InvalidPeriodError if End precedes Start or Step is
// not positive.
func (p Period) Validate() error {
	if p.Step <= 0 {
		return &InvalidPeriodError{Period: p, Reason: "step must be > 0"}
	}
	if p.Step%time.Second != 0 {
		return &InvalidPeriodError{Period: p, Reason: "step must be a whole number of seconds"}
	}
	if p.End.Before(p.Start) {
		return &InvalidPeriodError{Period: p, Reason: "end precedes start"}
	}
	return nil
}

// Len returns the number of steps in the period, 0 if it is invalid.
func (p Period) Len() int {
	if p.Validate() != nil {
		return 0
	}
	return int(p.End.Sub(p.Start)/p.Step) + 1
}

// Steps returns Start, Start+Step, ... up to and including End when End
// falls on the grid. It returns nil for an invalid period.
func (p Period) Steps() []time.Time {
	n := p.Len()
	if n == 0 {
		return nil
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = p.Start.Add(time.Duration(i) * p.Step)
	}
	return out
}
