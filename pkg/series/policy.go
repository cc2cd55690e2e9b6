package series

import (
	"fmt"
	"strings"

	"github.com/agentstation/retailsync/pkg/errors"
)

// Policy decides how duplicate observations of one (entity, period) pair
// combine.
type Policy string

const (
	// Sum adds duplicate observations.
	Sum Policy = "sum"
	// Mean averages duplicate observations.
	Mean Policy = "mean"
	// Last keeps the observation seen last in input order.
	Last Policy = "last"
)

// String returns the string representation of a policy.
func (p Policy) String() string {
	return string(p)
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case Sum, Mean, Last:
		return true
	}
	return false
}

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errors.NewConfigError("assembler", "duplicate_policy",
			fmt.Sprintf("unknown policy %q (want sum, mean or last)", s))
	}
	return p, nil
}

// accumulator folds observations of one bucket.
type accumulator struct {
	sum   float64
	count int
	last  float64
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.count++
	a.last = v
}

func (a *accumulator) value(p Policy) float64 {
	switch p {
	case Mean:
		return a.sum / float64(a.count)
	case Last:
		return a.last
	default:
		return a.sum
	}
}
