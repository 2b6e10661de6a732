package target

import "time"

// SchedulerConfig is what the cooperative scheduler reads at start-up.
type SchedulerConfig struct {
	TickPeriod time.Duration
	StackBase  uint32
	StackSize  uint32
}

// StackLimit is the lowest address the main stack may reach.
func (c SchedulerConfig) StackLimit() uint32 {
	return c.StackBase - c.StackSize
}

// Scheduler returns the scheduler view.
func (r *Resolved) Scheduler() SchedulerConfig {
	return SchedulerConfig{
		TickPeriod: time.Duration(r.uint(KeySchedulerTickPeriodUS)) * time.Microsecond,
		StackBase:  uint32(r.uint(KeyStackBase)),
		StackSize:  uint32(r.uint(KeyStackSize)),
	}
}

// HeapConfig is what the heap allocator reads.
type HeapConfig struct {
	Enabled     bool
	PanicOnFull bool
	SRAMBase    uint32
	SRAMEnd     uint32
}

// Heap returns the heap allocator view.
func (r *Resolved) Heap() HeapConfig {
	return HeapConfig{
		Enabled:     r.flag(KeyHeapAllocator),
		PanicOnFull: r.flag(KeyPanicHeapFull),
		SRAMBase:    uint32(r.uint(KeySRAMBase)),
		SRAMEnd:     uint32(r.uint(KeySRAMEnd)),
	}
}

// OverflowPolicy is what the event bus does when a listener is busy.
type OverflowPolicy uint8

// Overflow policies.
const (
	// OverflowQueue queues the event until MaxQueueDepth is reached, then blocks.
	OverflowQueue OverflowPolicy = iota
	// OverflowDrop discards the event.
	OverflowDrop
	// OverflowReentrant invokes the listener again concurrently.
	OverflowReentrant
	// OverflowImmediate invokes the listener inline from the raising context.
	OverflowImmediate
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowQueue:
		return "queue"
	case OverflowDrop:
		return "drop"
	case OverflowReentrant:
		return "reentrant"
	case OverflowImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// EventBusConfig is what the message bus reads.
type EventBusConfig struct {
	DefaultFlags  string
	MaxQueueDepth uint16
	Overflow      OverflowPolicy
}

// EventBus returns the message bus view.
func (r *Resolved) EventBus() EventBusConfig {
	flags := r.symbol(KeyEventListenerDefaultFlags)
	return EventBusConfig{
		DefaultFlags:  flags,
		MaxQueueDepth: uint16(r.uint(KeyListenerMaxQueueDepth)),
		Overflow:      overflowPolicy(flags),
	}
}

func overflowPolicy(flags string) OverflowPolicy {
	switch flags {
	case ListenerDropIfBusy:
		return OverflowDrop
	case ListenerReentrant:
		return OverflowReentrant
	case ListenerImmediate, ListenerNonBlocking, ListenerUrgent:
		return OverflowImmediate
	default:
		return OverflowQueue
	}
}

// TimerConfig is what the system timer reads.
type TimerConfig struct {
	Is32Bit        bool
	TimestampType  string
	TimestampWidth uint8
}

// Timer returns the timer view.
func (r *Resolved) Timer() TimerConfig {
	ts, _ := r.Get(KeyTimestamp)
	return TimerConfig{
		Is32Bit:        r.flag(KeyTimer32Bit),
		TimestampType:  ts.TypeName(),
		TimestampWidth: ts.Width(),
	}
}

// PullMode is the default input pull of GPIO pins.
type PullMode uint8

// Pull modes, in PullMode enumeration order.
const (
	PullNone PullMode = iota
	PullDown
	PullUp
)

func (m PullMode) String() string {
	switch m {
	case PullDown:
		return "Down"
	case PullUp:
		return "Up"
	default:
		return "None"
	}
}

// GPIOConfig is what pin and touch drivers read.
type GPIOConfig struct {
	DefaultPull            PullMode
	NFCTPinsAsGPIO         bool
	GPIOAsPinReset         bool
	TouchCalibrationPeriod time.Duration
	TouchDecayAverage      uint16
	TouchSensitivity       uint16
}

// GPIO returns the pin driver view.
func (r *Resolved) GPIO() GPIOConfig {
	var pull PullMode
	switch r.symbol(KeyDefaultPullMode) {
	case "Down":
		pull = PullDown
	case "Up":
		pull = PullUp
	}
	return GPIOConfig{
		DefaultPull:            pull,
		NFCTPinsAsGPIO:         r.flag(KeyNFCTPinsAsGPIOs),
		GPIOAsPinReset:         r.flag(KeyGPIOAsPinReset),
		TouchCalibrationPeriod: time.Duration(r.uint(KeyTouchButtonCalibrationPeriod)) * time.Millisecond,
		TouchDecayAverage:      uint16(r.uint(KeyTouchButtonDecayAverage)),
		TouchSensitivity:       uint16(r.uint(KeyTouchButtonSensitivity)),
	}
}

// Features lists the subsystem enable flags. Absent flags read as false.
type Features struct {
	BLE           bool
	BLEPairing    bool
	DeviceBLE     bool
	USB           bool
	SoftDevice    bool
	Printf        bool
	Debug         bool
	DmesgSerial   bool
	Neopixel      bool
	HeapAllocator bool
	I2CSharedIRQ  bool
	AccelLSB      bool
}

// Features returns the feature flag view.
func (r *Resolved) Features() Features {
	return Features{
		BLE:           r.flag(KeyBLEEnabled),
		BLEPairing:    r.flag(KeyBLEPairingMode),
		DeviceBLE:     r.flag(KeyDeviceBLE),
		USB:           r.flag(KeyDeviceUSB),
		SoftDevice:    r.flag(KeySoftDevicePresent),
		Printf:        r.flag(KeyProvidePrintf),
		Debug:         r.symbol(KeyDebug) == "CODAL_DEBUG_ENABLED",
		DmesgSerial:   r.flag(KeyDmesgSerialDebug),
		Neopixel:      r.flag(KeyHardwareNeopixel),
		HeapAllocator: r.flag(KeyHeapAllocator),
		I2CSharedIRQ:  r.flag(KeyI2CIRQShared),
		AccelLSB:      r.flag(KeyUseAccelLSB),
	}
}

// ProcessorWordType returns the C type of a native word, or "" when unset.
func (r *Resolved) ProcessorWordType() string {
	v, _ := r.Get(KeyProcessorWordType)
	return v.TypeName()
}

// ComponentCount returns the maximum number of registered runtime components.
func (r *Resolved) ComponentCount() uint16 {
	return uint16(r.uint(KeyComponentCount))
}
