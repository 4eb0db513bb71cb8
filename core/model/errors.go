package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when a record references an unknown id or
	// carries values outside their domain.
	ErrMalformedInput = errors.New("malformed input")
	// ErrGraphUnreachable is returned when a shortest path does not exist.
	ErrGraphUnreachable = errors.New("graph unreachable")
	// ErrCombinatorialMismatch signals that an enumeration disagrees with
	// its closed-form count.
	ErrCombinatorialMismatch = errors.New("combinatorial mismatch")
	// ErrNumericalDegeneracy is returned when a logit denominator vanishes
	// where a move is required.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
	// ErrNotConverged is returned when an iterative solver hits its
	// iteration cap.
	ErrNotConverged = errors.New("solver did not converge")
)

// MalformedInputError reports a bad input record.
type MalformedInputError struct {
	Kind   string
	ID     int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Kind, e.ID, e.Reason)
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// UnreachableError reports a failed shortest-path query between two links.
type UnreachableError struct {
	From, To int
	// Cycle is set when the search popped the finalised link Revisited again.
	Cycle     bool
	Revisited int
}

func (e *UnreachableError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("link %d revisited while searching %d -> %d", e.Revisited, e.From, e.To)
	}
	return fmt.Sprintf("no path from link %d to link %d", e.From, e.To)
}

func (e *UnreachableError) Unwrap() error { return ErrGraphUnreachable }

// MismatchError reports an enumerated count that differs from the expected one.
type MismatchError struct {
	What      string
	Got, Want int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: enumerated %d, expected %d", e.What, e.Got, e.Want)
}

func (e *MismatchError) Unwrap() error { return ErrCombinatorialMismatch }

// DegeneracyError identifies the demand, link and step of a zero denominator.
type DegeneracyError struct {
	Demand int
	Link   int
	T      int
}

func (e *DegeneracyError) Error() string {
	return fmt.Sprintf("demand %d: zero choice denominator on link %d at t=%d", e.Demand, e.Link, e.T)
}

func (e *DegeneracyError) Unwrap() error { return ErrNumericalDegeneracy }
