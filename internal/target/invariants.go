package target

import "fmt"

// Invariant identifies a cross-field constraint.
type Invariant string

// Invariants in the order they are checked.
const (
	InvariantSRAMOrdered     Invariant = "memory.sram-ordered"
	InvariantStackAtSRAMEnd  Invariant = "memory.stack-base-at-sram-end"
	InvariantStackWithinSRAM Invariant = "memory.stack-within-sram"

	InvariantTimestampWidth     Invariant = "timing.timestamp-width"
	InvariantSchedulerTick      Invariant = "timing.scheduler-tick-positive"
	InvariantListenerQueueDepth Invariant = "timing.listener-queue-depth-positive"

	InvariantBLEPairingRequiresBLE   Invariant = "features.ble-pairing-requires-ble"
	InvariantBLERequiresRadio        Invariant = "features.ble-requires-radio"
	InvariantPanicHeapFullNeedsAlloc Invariant = "features.panic-heap-full-requires-allocator"
)

type invariantCheck struct {
	id    Invariant
	check func(r *Resolved) *InvariantViolationError
}

// featureDependency states that dependent may only be enabled when requires is.
type featureDependency struct {
	id        Invariant
	dependent Key
	requires  Key
}

var featureDependencies = []featureDependency{
	{InvariantBLEPairingRequiresBLE, KeyBLEPairingMode, KeyBLEEnabled},
	{InvariantBLERequiresRadio, KeyBLEEnabled, KeyDeviceBLE},
	{InvariantPanicHeapFullNeedsAlloc, KeyPanicHeapFull, KeyHeapAllocator},
}

// invariants is evaluated in order: memory layout, timing, feature flags.
var invariants = func() []invariantCheck {
	checks := []invariantCheck{
		{InvariantSRAMOrdered, checkSRAMOrdered},
		{InvariantStackAtSRAMEnd, checkStackAtSRAMEnd},
		{InvariantStackWithinSRAM, checkStackWithinSRAM},
		{InvariantTimestampWidth, checkTimestampWidth},
		{InvariantSchedulerTick, checkSchedulerTick},
		{InvariantListenerQueueDepth, checkListenerQueueDepth},
	}
	for _, dep := range featureDependencies {
		checks = append(checks, invariantCheck{dep.id, dep.check})
	}
	return checks
}()

// Invariants returns the invariant identifiers in evaluation order.
func Invariants() []Invariant {
	ids := make([]Invariant, len(invariants))
	for i, c := range invariants {
		ids[i] = c.id
	}
	return ids
}

// validate runs every invariant and returns the first violation.
func (r *Resolved) validate() error {
	for _, c := range invariants {
		if v := c.check(r); v != nil {
			v.Invariant = c.id
			return v
		}
	}
	return nil
}

func violation(detail string, keys ...Key) *InvariantViolationError {
	return &InvariantViolationError{Keys: keys, Detail: detail}
}

func checkSRAMOrdered(r *Resolved) *InvariantViolationError {
	base, end := r.uint(KeySRAMBase), r.uint(KeySRAMEnd)
	if end <= base {
		return violation(fmt.Sprintf("sram end 0x%08X is not above sram base 0x%08X", end, base),
			KeySRAMBase, KeySRAMEnd)
	}
	return nil
}

func checkStackAtSRAMEnd(r *Resolved) *InvariantViolationError {
	stackBase, end := r.uint(KeyStackBase), r.uint(KeySRAMEnd)
	if stackBase != end {
		return violation(fmt.Sprintf("stack base 0x%08X must equal sram end 0x%08X", stackBase, end),
			KeyStackBase, KeySRAMEnd)
	}
	return nil
}

func checkStackWithinSRAM(r *Resolved) *InvariantViolationError {
	stackBase, size, sramBase := r.uint(KeyStackBase), r.uint(KeyStackSize), r.uint(KeySRAMBase)
	if size > stackBase || stackBase-size < sramBase {
		return violation(fmt.Sprintf("stack of %d bytes from 0x%08X extends below sram base 0x%08X",
			size, stackBase, sramBase),
			KeyStackBase, KeyStackSize, KeySRAMBase)
	}
	return nil
}

func checkTimestampWidth(r *Resolved) *InvariantViolationError {
	if r.flag(KeyTimer32Bit) {
		return nil
	}
	ts, _ := r.Get(KeyTimestamp)
	width := ts.Width()
	if width == 0 {
		return violation(fmt.Sprintf("timestamp type %q has no known width", ts.TypeName()),
			KeyTimer32Bit, KeyTimestamp)
	}
	if width > 32 {
		return violation(fmt.Sprintf("%d-bit timestamp type %s requires a 32-bit timer", width, ts.TypeName()),
			KeyTimer32Bit, KeyTimestamp)
	}
	return nil
}

func checkSchedulerTick(r *Resolved) *InvariantViolationError {
	if r.uint(KeySchedulerTickPeriodUS) == 0 {
		return violation("scheduler tick period must be positive", KeySchedulerTickPeriodUS)
	}
	return nil
}

func checkListenerQueueDepth(r *Resolved) *InvariantViolationError {
	if r.uint(KeyListenerMaxQueueDepth) == 0 {
		return violation("listener queue depth must be positive", KeyListenerMaxQueueDepth)
	}
	return nil
}

func (d featureDependency) check(r *Resolved) *InvariantViolationError {
	if r.flag(d.dependent) && !r.flag(d.requires) {
		return violation(fmt.Sprintf("%s is enabled but %s is not", d.dependent.Macro(), d.requires.Macro()),
			d.dependent, d.requires)
	}
	return nil
}
