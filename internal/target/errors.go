package target

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every error returned by Resolve unwraps to exactly one of these:
//
//	if errors.Is(err, target.ErrInvariantViolation) {
//	    // refuse to start the runtime
//	}
var (
	// ErrTypeMismatch is returned when a value's declared type disagrees with
	// the base layer or the schema for the same key.
	ErrTypeMismatch = errors.New("target: type mismatch")

	// ErrMissingDefault is returned when a key required by a runtime component
	// has neither a base value nor an override.
	ErrMissingDefault = errors.New("target: missing default")

	// ErrInvariantViolation is returned when a cross-field invariant fails.
	ErrInvariantViolation = errors.New("target: invariant violated")

	// ErrUnresolvedReference is returned when a reference names an absent key
	// or forms a cycle.
	ErrUnresolvedReference = errors.New("target: unresolved reference")
)

// TypeMismatchError reports a key whose value has the wrong declared type.
type TypeMismatchError struct {
	Key  Key
	Want string // declared type, e.g. "uint32" or "enum PullMode"
	Got  string // offending value with its type
	// Against is "base" when the override disagrees with the base layer and
	// "schema" when the value disagrees with the key's schema declaration.
	Against string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%v: %s: want %s (per %s), got %s", ErrTypeMismatch, e.Key, e.Want, e.Against, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// MissingDefaultError reports a required key with no value in either layer.
type MissingDefaultError struct {
	Key        Key
	Components []Component
}

func (e *MissingDefaultError) Error() string {
	names := make([]string, len(e.Components))
	for i, c := range e.Components {
		names[i] = string(c)
	}
	return fmt.Sprintf("%v: %s (required by %s)", ErrMissingDefault, e.Key, strings.Join(names, ", "))
}

func (e *MissingDefaultError) Unwrap() error { return ErrMissingDefault }

// InvariantViolationError names the failed invariant and the keys involved.
type InvariantViolationError struct {
	Invariant Invariant
	Keys      []Key
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	keys := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		keys[i] = string(k)
	}
	return fmt.Sprintf("%v: %s [%s]: %s", ErrInvariantViolation, e.Invariant, strings.Join(keys, ", "), e.Detail)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// ReferenceError reports a reference that cannot be followed.
type ReferenceError struct {
	Key    Key // key holding the reference
	Target Key // key that could not be read
	Cycle  bool
}

func (e *ReferenceError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("%v: %s: reference cycle through %s", ErrUnresolvedReference, e.Key, e.Target)
	}
	return fmt.Sprintf("%v: %s: %s is not defined", ErrUnresolvedReference, e.Key, e.Target)
}

func (e *ReferenceError) Unwrap() error { return ErrUnresolvedReference }
