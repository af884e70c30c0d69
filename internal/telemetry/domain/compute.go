package telemetry

import "math"

const (
	// BTUFactor is the hydronic approximation constant for water:
	// BTU/hr = 500 x GPM x deltaT.
	BTUFactor = 500

	// BTUPerKWh converts electrical input to BTU for COP calculation.
	BTUPerKWh = 3412
)

// Float returns a pointer to v. Nil pointers mean "no reading".
func Float(v float64) *float64 {
	return &v
}

// DeltaT returns the signed supply-minus-return difference, or nil when
// either temperature is unknown.
func DeltaT(supply, ret *float64) *float64 {
	if supply == nil || ret == nil {
		return nil
	}
	return Float(*supply - *ret)
}

// BtuPerHour computes heat transfer from flow and temperature difference.
// Returns nil when either input is unknown; a missing reading must stay
// distinguishable from a circuit that is currently moving zero heat.
func BtuPerHour(gpm, deltaT *float64) *float64 {
	if gpm == nil || deltaT == nil {
		return nil
	}
	return Float(BTUFactor * *gpm * math.Abs(*deltaT))
}

// COP computes coefficient of performance from heat output and electrical
// input. Returns nil when output is unknown or input is absent, zero or
// negative, never Inf or NaN.
func COP(btuOut, kwIn *float64) *float64 {
	if btuOut == nil || kwIn == nil || *kwIn <= 0 {
		return nil
	}
	return Float(*btuOut / (*kwIn * BTUPerKWh))
}
