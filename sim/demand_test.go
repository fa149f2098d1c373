package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDemandPattern_Constant_ReturnsBaseEveryWeek(t *testing.T) {
	pattern := NewDemandPattern(DemandConstant, DemandParams{BaseDemand: 4}, nil)
	for week := 0; week < 20; week++ {
		assert.Equal(t, 4, pattern(week))
	}
}

func TestNewDemandPattern_Step_SwitchesAtStepWeek(t *testing.T) {
	pattern := NewDemandPattern(DemandStep, DemandParams{BaseDemand: 4, StepWeek: 5, StepDemand: 8}, nil)

	assert.Equal(t, 4, pattern(0))
	assert.Equal(t, 4, pattern(4))
	// The step week itself is already at the raised level.
	assert.Equal(t, 8, pattern(5))
	assert.Equal(t, 8, pattern(30))
}

func TestNewDemandPattern_Random_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pattern := NewDemandPattern(DemandRandom, DemandParams{BaseDemand: 4, Variation: 2}, rng)

	for week := 0; week < 200; week++ {
		d := pattern(week)
		assert.GreaterOrEqual(t, d, 2)
		assert.LessOrEqual(t, d, 6)
	}
}

func TestNewDemandPattern_Random_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pattern := NewDemandPattern(DemandRandom, DemandParams{BaseDemand: 2, Variation: 10}, rng)

	for week := 0; week < 200; week++ {
		assert.GreaterOrEqual(t, pattern(week), 0)
	}
}

func TestNewDemandPattern_Random_SameSeedSameSequence(t *testing.T) {
	params := DemandParams{BaseDemand: 4, Variation: 2}
	a := NewDemandPattern(DemandRandom, params, rand.New(rand.NewSource(42)))
	b := NewDemandPattern(DemandRandom, params, rand.New(rand.NewSource(42)))

	for week := 0; week < 100; week++ {
		assert.Equal(t, a(week), b(week))
	}
}

func TestNewDemandPattern_Seasonal_OscillatesAroundBase(t *testing.T) {
	pattern := NewDemandPattern(DemandSeasonal, DemandParams{BaseDemand: 4, Amplitude: 2, Period: 52}, nil)

	assert.Equal(t, 4, pattern(0))
	// Quarter period is the sine peak, three quarters the trough.
	assert.GreaterOrEqual(t, pattern(13), 5)
	assert.LessOrEqual(t, pattern(39), 3)
	for week := 0; week < 104; week++ {
		assert.GreaterOrEqual(t, pattern(week), 0)
		assert.LessOrEqual(t, pattern(week), 6)
	}
}

func TestNewDemandPattern_UnknownType_FallsBackToConstantFour(t *testing.T) {
	pattern := NewDemandPattern("lunar", DemandParams{BaseDemand: 9}, nil)
	for week := 0; week < 10; week++ {
		assert.Equal(t, 4, pattern(week))
	}
}

func TestDemandParams_WithDefaults_FillsZeroFields(t *testing.T) {
	p := DemandParams{BaseDemand: 6}.withDefaults()

	assert.Equal(t, 6, p.BaseDemand)
	assert.Equal(t, 5, p.StepWeek)
	assert.Equal(t, 8, p.StepDemand)
	assert.Equal(t, 2, p.Variation)
	assert.Equal(t, 2.0, p.Amplitude)
	assert.Equal(t, 52, p.Period)
}
