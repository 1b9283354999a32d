package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyHistory is returned by the metrics calculator when there is no
// portfolio value history to summarize.
var ErrEmptyHistory = errors.New("empty portfolio history")

// InvalidParameterError reports a strategy parameter outside its allowed
// bounds, naming the offending field and the bound it violated.
type InvalidParameterError struct {
	Field string
	Bound string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: must satisfy %s", e.Field, e.Bound)
}

// InsufficientDataError reports a candle series shorter than an indicator or
// lookback window requires.
type InsufficientDataError struct {
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d candles, got %d", e.Required, e.Got)
}

// StrategyNotFoundError reports an unknown strategy identifier.
type StrategyNotFoundError struct {
	ID string
}

func (e *StrategyNotFoundError) Error() string {
	return fmt.Sprintf("strategy not found: %q", e.ID)
}

// RuleConfigError collects every structural problem found in a single rule.
type RuleConfigError struct {
	RuleID   string
	Problems []string
}

func (e *RuleConfigError) Error() string {
	return fmt.Sprintf("rule %q: %s", e.RuleID, strings.Join(e.Problems, "; "))
}

// RuleConfigErrors aggregates validation failures across all rules of a
// custom strategy config so the caller can report every problem at once.
type RuleConfigErrors []*RuleConfigError

func (e RuleConfigErrors) Error() string {
	msgs := make([]string, len(e))
	for i, re := range e {
		msgs[i] = re.Error()
	}
	return "invalid rule config: " + strings.Join(msgs, " | ")
}
