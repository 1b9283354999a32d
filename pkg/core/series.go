package core

import (
	"golang.org/x/exp/constraints"
)

// Series is an ordered sequence of samples. The rule engine uses the
// trailing two entries of a series and a reference to detect crossings.
type Series[T constraints.Ordered] []T

// Last returns the value position steps back from the end; position 0 is
// the latest sample.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// Crossover reports whether s moved above ref on the latest step: the
// current value is higher while the previous one was not.
func (s Series[T]) Crossover(ref Series[T]) bool {
	return s.Last(0) > ref.Last(0) && s.Last(1) <= ref.Last(1)
}

// Crossunder reports whether s moved below ref on the latest step: the
// current value is at or below the reference while the previous one was
// above it.
func (s Series[T]) Crossunder(ref Series[T]) bool {
	return s.Last(0) <= ref.Last(0) && s.Last(1) > ref.Last(1)
}
