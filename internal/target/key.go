package target

import "strings"

// Key names one tunable parameter. The canonical spelling is the lower-case
// form of the C macro (device_stack_size for DEVICE_STACK_SIZE).
type Key string

// Schema keys. The set mirrors the macros a CODAL target header defines.
const (
	KeyBLEEnabled                   Key = "microbit_ble_enabled"
	KeyBLEPairingMode               Key = "microbit_ble_pairing_mode"
	KeyCapTouchDefaultCalibration   Key = "captouch_default_calibration"
	KeyDebug                        Key = "codal_debug"
	KeyProvidePrintf                Key = "codal_provide_printf"
	KeyTimer32Bit                   Key = "codal_timer_32bit"
	KeyTimestamp                    Key = "codal_timestamp"
	KeyGPIOAsPinReset               Key = "config_gpio_as_pinreset"
	KeyNFCTPinsAsGPIOs              Key = "config_nfct_pins_as_gpios"
	KeyDeviceBLE                    Key = "device_ble"
	KeyComponentCount               Key = "device_component_count"
	KeyDefaultPullMode              Key = "device_default_pullmode"
	KeyDefaultSerialMode            Key = "device_default_serial_mode"
	KeyHeapAllocator                Key = "device_heap_allocator"
	KeyI2CIRQShared                 Key = "device_i2c_irq_shared"
	KeyPanicHeapFull                Key = "device_panic_heap_full"
	KeySRAMBase                     Key = "device_sram_base"
	KeySRAMEnd                      Key = "device_sram_end"
	KeyStackBase                    Key = "device_stack_base"
	KeyStackSize                    Key = "device_stack_size"
	KeyDeviceTag                    Key = "device_tag"
	KeyDeviceUSB                    Key = "device_usb"
	KeyDmesgSerialDebug             Key = "dmesg_serial_debug"
	KeyEventListenerDefaultFlags    Key = "event_listener_default_flags"
	KeyHardwareNeopixel             Key = "hardware_neopixel"
	KeyLEDMatrixMaxBrightness       Key = "led_matrix_maximum_brightness"
	KeyLEDMatrixMinBrightness       Key = "led_matrix_minimum_brightness"
	KeyLFClockSource                Key = "mbed_conf_nordic_nrf_lf_clock_src"
	KeyListenerMaxQueueDepth        Key = "message_bus_listener_max_queue_depth"
	KeyADCSoftwareOversampling      Key = "nrf52adc_software_oversampling"
	KeyI2CErrata219                 Key = "nrf52i2c_errata_219"
	KeyProcessorWordType            Key = "processor_word_type"
	KeySchedulerTickPeriodUS        Key = "scheduler_tick_period_us"
	KeyTouchButtonCalibrationPeriod Key = "touch_button_calibration_period"
	KeyTouchButtonDecayAverage      Key = "touch_button_decay_average"
	KeyTouchButtonSensitivity       Key = "touch_button_sensitivity"
	KeyUseAccelLSB                  Key = "use_accel_lsb"
	KeySoftDevicePresent            Key = "softdevice_present"
)

// aliases maps short names used in documentation and layer files to schema keys.
var aliases = map[string]Key{
	"sram_base":                KeySRAMBase,
	"sram_end":                 KeySRAMEnd,
	"stack_base":               KeyStackBase,
	"stack_size":               KeyStackSize,
	"timer_32bit":              KeyTimer32Bit,
	"timestamp":                KeyTimestamp,
	"default_pull_mode":        KeyDefaultPullMode,
	"default_pullmode":         KeyDefaultPullMode,
	"heap_allocator":           KeyHeapAllocator,
	"panic_heap_full":          KeyPanicHeapFull,
	"ble_enabled":              KeyBLEEnabled,
	"ble_pairing_mode":         KeyBLEPairingMode,
	"debug":                    KeyDebug,
	"usb":                      KeyDeviceUSB,
	"listener_max_queue_depth": KeyListenerMaxQueueDepth,
}

// Macro returns the C preprocessor spelling of the key.
func (k Key) Macro() string {
	return strings.ToUpper(string(k))
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Known reports whether the key is part of the schema.
func (k Key) Known() bool {
	_, ok := schemaIndex[k]
	return ok
}

// ParseKey normalises a key spelling. Macro names, canonical names and short
// aliases are accepted. The boolean reports whether the result is a schema key;
// unknown names are still returned in canonical (lower-case) form.
func ParseKey(s string) (Key, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if k, ok := aliases[name]; ok {
		return k, true
	}
	k := Key(name)
	return k, k.Known()
}
