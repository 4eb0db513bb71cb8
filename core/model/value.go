package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is either a finite feasible number or the Infeasible marker. The zero
// Value is Infeasible.
type Value struct {
	v        float64
	feasible bool
}

// Infeasible marks rewards and values that violate a constraint.
var Infeasible = Value{}

// Feasible wraps v as a feasible value.
func Feasible(v float64) Value { return Value{v: v, feasible: true} }

// IsFeasible reports whether the value is a real number.
func (x Value) IsFeasible() bool { return x.feasible }

// Float returns the number, or -Inf when infeasible.
func (x Value) Float() float64 {
	if !x.feasible {
		return math.Inf(-1)
	}
	return x.v
}

// Add sums two values. Infeasibility is absorbing.
func (x Value) Add(y Value) Value {
	if !x.feasible || !y.feasible {
		return Infeasible
	}
	return Feasible(x.v + y.v)
}

// Better reports whether x is strictly greater than y. Any feasible value
// beats Infeasible.
func (x Value) Better(y Value) bool {
	switch {
	case !x.feasible:
		return false
	case !y.feasible:
		return true
	default:
		return x.v > y.v
	}
}

// Delta is the absolute difference used for convergence checks. A change of
// feasibility counts as an infinite change.
func (x Value) Delta(y Value) float64 {
	if x.feasible != y.feasible {
		return math.Inf(1)
	}
	if !x.feasible {
		return 0
	}
	return math.Abs(x.v - y.v)
}

func (x Value) String() string {
	if !x.feasible {
		return "infeasible"
	}
	return strconv.FormatFloat(x.v, 'g', -1, 64)
}

// MarshalJSON encodes Infeasible as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.feasible {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON decodes null as Infeasible.
func (x *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*x = Infeasible
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*x = Feasible(f)
	return nil
}
