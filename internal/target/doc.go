// Package target resolves the build-time configuration of a CODAL device target.
//
// A target configuration is assembled from two layers:
//   - Base layer: framework-wide defaults covering every key a runtime component reads
//   - Override layer: target-specific values that shadow base entries with the same key
//
// Resolve merges the layers, type-checks them, confirms every required key is
// present, and enforces the cross-field invariants (memory layout, timing,
// feature-flag dependencies). The result is a *Resolved value that is never
// mutated after construction and can be handed to any number of goroutines.
//
// # Resolution Order
//
//  1. References are followed (DEVICE_STACK_BASE -> DEVICE_SRAM_END)
//  2. Override values are checked against the base declaration of the same key
//  3. Every schema key is checked against its declared kind
//  4. Required keys are checked for presence
//  5. Invariants run in a fixed order, memory first, then timing, then features
//
// The first failure ends resolution. Failures are typed (TypeMismatchError,
// MissingDefaultError, InvariantViolationError, ReferenceError) and unwrap to
// package sentinels for errors.Is checks.
//
// # Usage
//
//	resolved, err := target.Resolve(profile.Base(), override)
//	if err != nil {
//	    var iv *target.InvariantViolationError
//	    if errors.As(err, &iv) {
//	        log.Error("invariant failed", "invariant", iv.Invariant, "keys", iv.Keys)
//	    }
//	    return err
//	}
//	sched := resolved.Scheduler()
package target
