package target

import "slices"

// Component names a runtime subsystem that reads the resolved configuration.
type Component string

// Runtime components that consume a resolved configuration.
const (
	ComponentScheduler     Component = "scheduler"
	ComponentHeapAllocator Component = "heap_allocator"
	ComponentEventBus      Component = "event_bus"
	ComponentTimer         Component = "timer"
	ComponentGPIO          Component = "gpio"
)

// Enumeration is a closed set of symbols. Scoped enumerations are written
// Name::Symbol in C++ headers; unscoped ones use the bare symbol.
type Enumeration struct {
	Name    string
	Scoped  bool
	Symbols []string
}

// Has reports whether symbol belongs to the enumeration.
func (e Enumeration) Has(symbol string) bool {
	return slices.Contains(e.Symbols, symbol)
}

// Enumeration names.
const (
	EnumPullMode           = "PullMode"
	EnumSerialMode         = "SerialMode"
	EnumDebugLevel         = "DebugLevel"
	EnumEventListenerFlags = "EventListenerFlags"
	EnumLFClockSource      = "LFClockSource"
)

// Event listener flag symbols.
const (
	ListenerReentrant   = "MESSAGE_BUS_LISTENER_REENTRANT"
	ListenerQueueIfBusy = "MESSAGE_BUS_LISTENER_QUEUE_IF_BUSY"
	ListenerDropIfBusy  = "MESSAGE_BUS_LISTENER_DROP_IF_BUSY"
	ListenerNonBlocking = "MESSAGE_BUS_LISTENER_NONBLOCKING"
	ListenerUrgent      = "MESSAGE_BUS_LISTENER_URGENT"
	ListenerImmediate   = "MESSAGE_BUS_LISTENER_IMMEDIATE"
)

var enumerations = []Enumeration{
	{Name: EnumPullMode, Scoped: true, Symbols: []string{"None", "Down", "Up"}},
	{Name: EnumSerialMode, Symbols: []string{"ASYNC", "SYNC_SPINWAIT", "SYNC_SLEEP"}},
	{Name: EnumDebugLevel, Symbols: []string{"CODAL_DEBUG_DISABLED", "CODAL_DEBUG_ENABLED"}},
	{Name: EnumEventListenerFlags, Symbols: []string{
		ListenerReentrant, ListenerQueueIfBusy, ListenerDropIfBusy,
		ListenerNonBlocking, ListenerUrgent, ListenerImmediate,
	}},
	{Name: EnumLFClockSource, Symbols: []string{"NRF_LF_SRC_XTAL", "NRF_LF_SRC_RC", "NRF_LF_SRC_SYNTH"}},
}

// LookupEnumeration returns the named enumeration.
func LookupEnumeration(name string) (Enumeration, bool) {
	for _, e := range enumerations {
		if e.Name == name {
			return e, true
		}
	}
	return Enumeration{}, false
}

// EnumerationOf returns the unscoped enumeration that declares symbol.
// Scoped enumerations are not searched because their symbols are only
// meaningful with the Name:: prefix.
func EnumerationOf(symbol string) (Enumeration, bool) {
	for _, e := range enumerations {
		if !e.Scoped && e.Has(symbol) {
			return e, true
		}
	}
	return Enumeration{}, false
}

// Definition declares one schema key.
type Definition struct {
	Key  Key
	Kind Kind

	// Width and Signed declare integer keys.
	Width  uint8
	Signed bool

	// Hex marks integers that are conventionally written in hexadecimal (addresses).
	Hex bool

	// Enum names the enumeration of enum keys.
	Enum string

	// RequiredBy lists the components that cannot start without this key.
	RequiredBy []Component

	Doc string
}

// Type describes the declared type in the same form as Value.Type.
func (d Definition) Type() string {
	return d.prototype().Type()
}

// Required reports whether any component requires the key.
func (d Definition) Required() bool {
	return len(d.RequiredBy) > 0
}

func (d Definition) prototype() Value {
	switch d.Kind {
	case KindBool:
		return Bool(false)
	case KindInt:
		if d.Signed {
			return Int(0, d.Width)
		}
		return Uint(0, d.Width)
	case KindEnum:
		return Enum(d.Enum, "")
	case KindTypeTag:
		return TypeTag("")
	default:
		return Value{}
	}
}

func boolDef(k Key, doc string, required ...Component) Definition {
	return Definition{Key: k, Kind: KindBool, RequiredBy: required, Doc: doc}
}

func uintDef(k Key, width uint8, doc string, required ...Component) Definition {
	return Definition{Key: k, Kind: KindInt, Width: width, RequiredBy: required, Doc: doc}
}

func addrDef(k Key, doc string, required ...Component) Definition {
	return Definition{Key: k, Kind: KindInt, Width: 32, Hex: true, RequiredBy: required, Doc: doc}
}

func enumDef(k Key, enum, doc string, required ...Component) Definition {
	return Definition{Key: k, Kind: KindEnum, Enum: enum, RequiredBy: required, Doc: doc}
}

func typeDef(k Key, doc string, required ...Component) Definition {
	return Definition{Key: k, Kind: KindTypeTag, RequiredBy: required, Doc: doc}
}

// schema is kept in header order so listings and generated files are stable.
var schema = []Definition{
	boolDef(KeyBLEEnabled, "Bluetooth stack is started by the runtime"),
	boolDef(KeyBLEPairingMode, "enter BLE pairing mode on boot gesture"),
	uintDef(KeyCapTouchDefaultCalibration, 32, "initial capacitive touch threshold"),
	enumDef(KeyDebug, EnumDebugLevel, "runtime debug level"),
	boolDef(KeyProvidePrintf, "runtime supplies printf"),
	boolDef(KeyTimer32Bit, "hardware timer counts 32 bits", ComponentTimer),
	typeDef(KeyTimestamp, "C type used for timestamps", ComponentTimer),
	boolDef(KeyGPIOAsPinReset, "reset pin is routed through GPIO", ComponentGPIO),
	boolDef(KeyNFCTPinsAsGPIOs, "NFC antenna pins are usable as GPIO", ComponentGPIO),
	boolDef(KeyDeviceBLE, "target hardware has a BLE radio"),
	uintDef(KeyComponentCount, 16, "maximum number of registered components"),
	enumDef(KeyDefaultPullMode, EnumPullMode, "pull applied to inputs without explicit mode", ComponentGPIO),
	enumDef(KeyDefaultSerialMode, EnumSerialMode, "default serial transmit mode"),
	boolDef(KeyHeapAllocator, "runtime heap allocator is enabled", ComponentHeapAllocator),
	boolDef(KeyI2CIRQShared, "I2C peripherals share one interrupt line"),
	boolDef(KeyPanicHeapFull, "panic instead of returning NULL when the heap is exhausted", ComponentHeapAllocator),
	addrDef(KeySRAMBase, "first address of SRAM", ComponentHeapAllocator),
	addrDef(KeySRAMEnd, "one past the last address of SRAM", ComponentScheduler, ComponentHeapAllocator),
	addrDef(KeyStackBase, "initial stack pointer, grows downward"),
	uintDef(KeyStackSize, 32, "bytes reserved for the main stack", ComponentScheduler),
	uintDef(KeyDeviceTag, 32, "board identification tag"),
	boolDef(KeyDeviceUSB, "USB stack is enabled"),
	boolDef(KeyDmesgSerialDebug, "mirror DMESG output to serial"),
	enumDef(KeyEventListenerDefaultFlags, EnumEventListenerFlags, "delivery flags for listeners registered without flags", ComponentEventBus),
	boolDef(KeyHardwareNeopixel, "board drives neopixels from hardware"),
	uintDef(KeyLEDMatrixMaxBrightness, 8, "maximum LED matrix brightness"),
	uintDef(KeyLEDMatrixMinBrightness, 8, "minimum LED matrix brightness"),
	enumDef(KeyLFClockSource, EnumLFClockSource, "low frequency clock source"),
	uintDef(KeyListenerMaxQueueDepth, 16, "events queued per busy listener before overflow", ComponentEventBus),
	uintDef(KeyADCSoftwareOversampling, 8, "ADC samples averaged in software"),
	boolDef(KeyI2CErrata219, "apply nRF52 I2C errata 219 workaround"),
	typeDef(KeyProcessorWordType, "C type of a native processor word"),
	uintDef(KeySchedulerTickPeriodUS, 32, "scheduler tick period in microseconds", ComponentScheduler),
	uintDef(KeyTouchButtonCalibrationPeriod, 32, "touch calibration window in milliseconds", ComponentGPIO),
	uintDef(KeyTouchButtonDecayAverage, 16, "touch sample decay averaging factor", ComponentGPIO),
	uintDef(KeyTouchButtonSensitivity, 16, "touch threshold above the calibrated baseline", ComponentGPIO),
	boolDef(KeyUseAccelLSB, "accelerometer reports raw LSB values"),
	boolDef(KeySoftDevicePresent, "Nordic SoftDevice is linked"),
}

var schemaIndex = func() map[Key]int {
	idx := make(map[Key]int, len(schema))
	for i, d := range schema {
		idx[d.Key] = i
	}
	return idx
}()

// Lookup returns the schema definition of k.
func Lookup(k Key) (Definition, bool) {
	i, ok := schemaIndex[k]
	if !ok {
		return Definition{}, false
	}
	return schema[i], true
}

// Definitions returns the schema in canonical order.
func Definitions() []Definition {
	return slices.Clone(schema)
}

// RequiredKeys returns the keys required by component, or by any component
// when component is empty.
func RequiredKeys(component Component) []Key {
	var keys []Key
	for _, d := range schema {
		if (component == "" && d.Required()) || slices.Contains(d.RequiredBy, component) {
			keys = append(keys, d.Key)
		}
	}
	return keys
}
