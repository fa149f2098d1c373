package sim

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Recognized demand pattern names.
const (
	DemandConstant = "constant"
	DemandStep     = "step"
	DemandRandom   = "random"
	DemandSeasonal = "seasonal"
)

// fallbackDemand is the permissive default used when the configured demand
// type is unknown.
const fallbackDemand = 4

// DemandPattern maps a week to the external customer demand realized at the
// retailer. Implementations must return a non-negative quantity.
type DemandPattern func(week int) int

// NewDemandPattern builds the demand generator for the configured type.
// Unknown types fall back to constant demand of 4; this is deliberately
// permissive, not an error. The random pattern draws from rng, so the caller
// controls determinism through the partitioned RNG.
func NewDemandPattern(demandType string, params DemandParams, rng *rand.Rand) DemandPattern {
	p := params.withDefaults()

	switch demandType {
	case DemandConstant:
		return func(week int) int {
			return p.BaseDemand
		}
	case DemandStep:
		return func(week int) int {
			if week >= p.StepWeek {
				return p.StepDemand
			}
			return p.BaseDemand
		}
	case DemandRandom:
		return func(week int) int {
			d := p.BaseDemand + rng.Intn(2*p.Variation+1) - p.Variation
			if d < 0 {
				d = 0
			}
			return d
		}
	case DemandSeasonal:
		return func(week int) int {
			d := int(float64(p.BaseDemand) + p.Amplitude*math.Sin(2*math.Pi*float64(week)/float64(p.Period)))
			if d < 0 {
				d = 0
			}
			return d
		}
	default:
		logrus.Warnf("unknown demand type %q, falling back to constant demand of %d", demandType, fallbackDemand)
		return func(week int) int {
			return fallbackDemand
		}
	}
}
