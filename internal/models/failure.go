package models

import "fmt"

// FailureKind tags why a single particle was dropped
type FailureKind int

const (
	// OutOfDomain means no flow cell contains the particle
	OutOfDomain FailureKind = iota
	// InterpolationFailure means the velocity could not be evaluated
	InterpolationFailure
	// DegenerateProjection means the particle sits on the sensor plane
	DegenerateProjection
)

func (k FailureKind) String() string {
	switch k {
	case OutOfDomain:
		return "out-of-domain"
	case InterpolationFailure:
		return "interpolation-failure"
	case DegenerateProjection:
		return "degenerate-projection"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Failure records a per-particle failure. Index refers to the row of the
// cloud that was handed to the failing stage.
type Failure struct {
	Index int
	Kind  FailureKind
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("particle %d: %s: %v", f.Index, f.Kind, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// CountByKind tallies failures per kind
func CountByKind(failures []Failure) map[FailureKind]int {
	counts := make(map[FailureKind]int)
	for _, f := range failures {
		counts[f.Kind]++
	}
	return counts
}
