package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeriesLast(t *testing.T) {
	s := Series[float64]{1, 2, 3, 4}

	assert.Equal(t, 4.0, s.Last(0))
	assert.Equal(t, 3.0, s.Last(1))
	assert.Equal(t, 1.0, s.Last(3))
}

func TestSeriesCross(t *testing.T) {
	rising := Series[float64]{90, 110}
	falling := Series[float64]{110, 90}
	flat := Series[float64]{100, 100}

	assert.True(t, rising.Crossover(flat))
	assert.False(t, rising.Crossunder(flat))

	assert.True(t, falling.Crossunder(flat))
	assert.False(t, falling.Crossover(flat))

	// Touching the reference counts as still under, so no crossover fires
	// until the series strictly exceeds it.
	touch := Series[float64]{90, 100}
	assert.False(t, touch.Crossover(flat))

	// Already above on both steps: no cross.
	above := Series[float64]{120, 130}
	assert.False(t, above.Crossover(flat))
	assert.False(t, flat.Crossunder(flat))
}
