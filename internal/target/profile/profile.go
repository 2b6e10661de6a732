// Package profile provides the built-in configuration layers.
//
// Base is the framework default layer and covers every key a runtime
// component requires. CodalWASM is the override layer for the micro:bit V2
// simulator build, where the runtime is compiled to WebAssembly.
//
// Each call returns a fresh *target.Set so callers may modify it.
package profile

import (
	"fmt"
	"sort"

	"github.com/microbit-carlos/codalcfg/internal/target"
)

// Profile names.
const (
	NameFramework = "framework"
	NameCodalWASM = "codal-wasm"
	NameNone      = "none"
)

var builtins = map[string]func() *target.Set{
	NameFramework: Base,
	NameCodalWASM: CodalWASM,
	NameNone:      target.NewSet,
}

// Lookup returns a fresh copy of the named profile.
func Lookup(name string) (*target.Set, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (known: %v)", name, Names())
	}
	return fn(), nil
}

// Names returns the built-in profile names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Base returns the framework defaults.
func Base() *target.Set {
	return target.NewSet().
		Put(target.KeyBLEEnabled, target.Bool(true)).
		Put(target.KeyBLEPairingMode, target.Bool(true)).
		Put(target.KeyCapTouchDefaultCalibration, target.Uint32(3500)).
		Put(target.KeyDebug, target.Enum(target.EnumDebugLevel, "CODAL_DEBUG_DISABLED")).
		Put(target.KeyProvidePrintf, target.Bool(true)).
		Put(target.KeyTimer32Bit, target.Bool(false)).
		Put(target.KeyTimestamp, target.TypeTag("uint32_t")).
		Put(target.KeyGPIOAsPinReset, target.Bool(false)).
		Put(target.KeyNFCTPinsAsGPIOs, target.Bool(false)).
		Put(target.KeyDeviceBLE, target.Bool(true)).
		Put(target.KeyComponentCount, target.Uint(60, 16)).
		Put(target.KeyDefaultPullMode, target.Enum(target.EnumPullMode, "None")).
		Put(target.KeyDefaultSerialMode, target.Enum(target.EnumSerialMode, "SYNC_SLEEP")).
		Put(target.KeyHeapAllocator, target.Bool(true)).
		Put(target.KeyI2CIRQShared, target.Bool(false)).
		Put(target.KeyPanicHeapFull, target.Bool(true)).
		Put(target.KeySRAMBase, target.Uint32(0x20000000)).
		Put(target.KeySRAMEnd, target.Uint32(0x20020000)).
		Put(target.KeyStackBase, target.Ref(target.KeySRAMEnd)).
		Put(target.KeyStackSize, target.Uint32(2048)).
		Put(target.KeyDeviceTag, target.Uint32(0)).
		Put(target.KeyDeviceUSB, target.Bool(false)).
		Put(target.KeyDmesgSerialDebug, target.Bool(false)).
		Put(target.KeyEventListenerDefaultFlags, target.Enum(target.EnumEventListenerFlags, target.ListenerQueueIfBusy)).
		Put(target.KeyHardwareNeopixel, target.Bool(false)).
		Put(target.KeyLEDMatrixMaxBrightness, target.Uint(255, 8)).
		Put(target.KeyLEDMatrixMinBrightness, target.Uint(1, 8)).
		Put(target.KeyLFClockSource, target.Enum(target.EnumLFClockSource, "NRF_LF_SRC_XTAL")).
		Put(target.KeyListenerMaxQueueDepth, target.Uint(10, 16)).
		Put(target.KeyADCSoftwareOversampling, target.Uint(1, 8)).
		Put(target.KeyI2CErrata219, target.Bool(true)).
		Put(target.KeyProcessorWordType, target.TypeTag("uint32_t")).
		Put(target.KeySchedulerTickPeriodUS, target.Uint32(6000)).
		Put(target.KeyTouchButtonCalibrationPeriod, target.Uint32(500)).
		Put(target.KeyTouchButtonDecayAverage, target.Uint(2, 16)).
		Put(target.KeyTouchButtonSensitivity, target.Uint(10, 16)).
		Put(target.KeyUseAccelLSB, target.Bool(false)).
		Put(target.KeySoftDevicePresent, target.Bool(false))
}

// CodalWASM returns the override layer of the WebAssembly simulator target.
// The radio is compiled in but the BLE stack is disabled, and timestamps are
// widened to 64 bits on top of a 32-bit timer.
func CodalWASM() *target.Set {
	return target.NewSet().
		Put(target.KeyBLEEnabled, target.Bool(false)).
		Put(target.KeyBLEPairingMode, target.Bool(false)).
		Put(target.KeyCapTouchDefaultCalibration, target.Uint32(3500)).
		Put(target.KeyDebug, target.Enum(target.EnumDebugLevel, "CODAL_DEBUG_DISABLED")).
		Put(target.KeyProvidePrintf, target.Bool(true)).
		Put(target.KeyTimer32Bit, target.Bool(true)).
		Put(target.KeyTimestamp, target.TypeTag("uint64_t")).
		Put(target.KeyGPIOAsPinReset, target.Bool(true)).
		Put(target.KeyNFCTPinsAsGPIOs, target.Bool(true)).
		Put(target.KeyDeviceBLE, target.Bool(true)).
		Put(target.KeyComponentCount, target.Uint(60, 16)).
		Put(target.KeyDefaultPullMode, target.Enum(target.EnumPullMode, "Down")).
		Put(target.KeyDefaultSerialMode, target.Enum(target.EnumSerialMode, "SYNC_SLEEP")).
		Put(target.KeyHeapAllocator, target.Bool(true)).
		Put(target.KeyI2CIRQShared, target.Bool(true)).
		Put(target.KeyPanicHeapFull, target.Bool(true)).
		Put(target.KeySRAMBase, target.Uint32(0x20000000)).
		Put(target.KeySRAMEnd, target.Uint32(0x20020000)).
		Put(target.KeyStackBase, target.Ref(target.KeySRAMEnd)).
		Put(target.KeyStackSize, target.Uint32(2048)).
		Put(target.KeyDeviceTag, target.Uint32(0)).
		Put(target.KeyDeviceUSB, target.Bool(false)).
		Put(target.KeyDmesgSerialDebug, target.Bool(false)).
		Put(target.KeyEventListenerDefaultFlags, target.Enum(target.EnumEventListenerFlags, target.ListenerQueueIfBusy)).
		Put(target.KeyHardwareNeopixel, target.Bool(true)).
		Put(target.KeyLEDMatrixMaxBrightness, target.Uint(245, 8)).
		Put(target.KeyLEDMatrixMinBrightness, target.Uint(1, 8)).
		Put(target.KeyLFClockSource, target.Enum(target.EnumLFClockSource, "NRF_LF_SRC_XTAL")).
		Put(target.KeyListenerMaxQueueDepth, target.Uint(10, 16)).
		Put(target.KeyADCSoftwareOversampling, target.Uint(1, 8)).
		Put(target.KeyI2CErrata219, target.Bool(true)).
		Put(target.KeyProcessorWordType, target.TypeTag("uint32_t")).
		Put(target.KeySchedulerTickPeriodUS, target.Uint32(4000)).
		Put(target.KeyTouchButtonCalibrationPeriod, target.Uint32(500)).
		Put(target.KeyTouchButtonDecayAverage, target.Uint(2, 16)).
		Put(target.KeyTouchButtonSensitivity, target.Uint(5, 16)).
		Put(target.KeyUseAccelLSB, target.Bool(false)).
		Put(target.KeySoftDevicePresent, target.Bool(true))
}
