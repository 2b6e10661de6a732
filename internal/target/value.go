package target

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared semantic type of a Value.
type Kind uint8

// Value kinds.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindEnum
	KindTypeTag
	KindRef
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindEnum:
		return "enum"
	case KindTypeTag:
		return "type"
	case KindRef:
		return "ref"
	default:
		return "invalid"
	}
}

// Value is one typed configuration value. The zero Value is invalid.
//
// Integers carry their declared bit width and signedness so that range checks
// can be made against the declaration rather than the literal. Enumerated
// values carry the name of their enumeration. Type tags name a C type and
// expose its bit width. A Ref points at another key and is replaced by that
// key's value during resolution.
type Value struct {
	kind   Kind
	flag   bool
	bits   uint64 // two's complement payload for signed integers
	width  uint8
	signed bool
	enum   string
	name   string // enum symbol, type name, or referenced key
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Int returns a signed integer declared with the given bit width.
func Int(n int64, width uint8) Value {
	return Value{kind: KindInt, bits: uint64(n), width: normaliseWidth(width), signed: true}
}

// Uint returns an unsigned integer declared with the given bit width.
func Uint(n uint64, width uint8) Value {
	return Value{kind: KindInt, bits: n, width: normaliseWidth(width)}
}

// Uint32 is shorthand for Uint(n, 32), the common case for addresses and sizes.
func Uint32(n uint32) Value {
	return Uint(uint64(n), 32)
}

// Enum returns a symbol of the named enumeration.
func Enum(enumeration, symbol string) Value {
	return Value{kind: KindEnum, enum: enumeration, name: symbol}
}

// TypeTag returns a value naming a C type (for example "uint64_t").
func TypeTag(typeName string) Value {
	return Value{kind: KindTypeTag, name: normaliseTypeName(typeName)}
}

// Ref returns a value that resolves to the value of another key.
func Ref(k Key) Value {
	return Value{kind: KindRef, name: string(k)}
}

func normaliseWidth(w uint8) uint8 {
	switch {
	case w == 0 || w > 64:
		return 64
	default:
		return w
	}
}

// Kind returns the declared kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value was built by a constructor.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// Uint64 returns the integer payload when it is non-negative.
func (v Value) Uint64() (uint64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	if v.signed && int64(v.bits) < 0 {
		return 0, false
	}
	return v.bits, true
}

// Int64 returns the integer payload when it fits in an int64.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	if !v.signed && v.bits > math.MaxInt64 {
		return 0, false
	}
	return int64(v.bits), true
}

// Width returns the declared bit width of an integer, or the bit width of the
// named C type for a type tag. Unknown type names report 0.
func (v Value) Width() uint8 {
	switch v.kind {
	case KindInt:
		return v.width
	case KindTypeTag:
		return TypeWidth(v.name)
	default:
		return 0
	}
}

// Signed reports the declared signedness of an integer or type tag.
func (v Value) Signed() bool {
	switch v.kind {
	case KindInt:
		return v.signed
	case KindTypeTag:
		return typeSigned(v.name)
	default:
		return false
	}
}

// Enumeration returns the enumeration name of an enum value.
func (v Value) Enumeration() string {
	if v.kind != KindEnum {
		return ""
	}
	return v.enum
}

// Symbol returns the enum symbol.
func (v Value) Symbol() string {
	if v.kind != KindEnum {
		return ""
	}
	return v.name
}

// TypeName returns the C type name of a type tag.
func (v Value) TypeName() string {
	if v.kind != KindTypeTag {
		return ""
	}
	return v.name
}

// Target returns the key a Ref points at.
func (v Value) Target() Key {
	if v.kind != KindRef {
		return ""
	}
	return Key(v.name)
}

// Equal reports whether two values have the same kind, declaration and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// Type describes the declared type: "bool", "uint32", "int16", "enum PullMode",
// "type", "ref".
func (v Value) Type() string {
	switch v.kind {
	case KindInt:
		if v.signed {
			return "int" + strconv.Itoa(int(v.width))
		}
		return "uint" + strconv.Itoa(int(v.width))
	case KindEnum:
		return "enum " + v.enum
	default:
		return v.kind.String()
	}
}

// String renders the payload: true/false, decimal integers, Enum::Symbol,
// the C type name, or the referenced key.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindInt:
		if v.signed {
			return strconv.FormatInt(int64(v.bits), 10)
		}
		return strconv.FormatUint(v.bits, 10)
	case KindEnum:
		if v.enum == "" {
			return v.name
		}
		return v.enum + "::" + v.name
	case KindTypeTag, KindRef:
		return v.name
	default:
		return "<invalid>"
	}
}

// Interface returns the payload as a plain Go value suitable for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindInt:
		if v.signed {
			return int64(v.bits)
		}
		return v.bits
	default:
		return v.String()
	}
}

// canonical is the stable encoding used for fingerprints.
func (v Value) canonical() string {
	return v.Type() + ":" + v.String()
}

// fits reports whether an integer payload is representable in the given declaration.
func (v Value) fits(width uint8, signed bool) bool {
	if v.kind != KindInt {
		return false
	}
	width = normaliseWidth(width)
	if v.signed {
		n := int64(v.bits)
		if signed {
			if width == 64 {
				return true
			}
			lim := int64(1) << (width - 1)
			return n >= -lim && n < lim
		}
		if n < 0 {
			return false
		}
		return width == 64 || uint64(n) < uint64(1)<<width
	}
	if signed {
		if width == 64 {
			return v.bits <= math.MaxInt64
		}
		return v.bits < uint64(1)<<(width-1)
	}
	return width == 64 || v.bits < uint64(1)<<width
}

// redeclare returns the integer with a new declaration. The caller must have
// checked fits first.
func (v Value) redeclare(width uint8, signed bool) Value {
	v.width = normaliseWidth(width)
	v.signed = signed
	return v
}

// typeWidths lists the C types a CODAL target may name, sized for the 32-bit
// WebAssembly and Cortex-M targets.
var typeWidths = map[string]struct {
	width  uint8
	signed bool
}{
	"bool":               {8, false},
	"char":               {8, true},
	"int8_t":             {8, true},
	"uint8_t":            {8, false},
	"int16_t":            {16, true},
	"uint16_t":           {16, false},
	"short":              {16, true},
	"unsigned short":     {16, false},
	"int":                {32, true},
	"unsigned":           {32, false},
	"unsigned int":       {32, false},
	"int32_t":            {32, true},
	"uint32_t":           {32, false},
	"long":               {32, true},
	"unsigned long":      {32, false},
	"size_t":             {32, false},
	"uintptr_t":          {32, false},
	"int64_t":            {64, true},
	"uint64_t":           {64, false},
	"long long":          {64, true},
	"unsigned long long": {64, false},
}

// TypeWidth returns the bit width of a C type name, or 0 if it is unknown.
func TypeWidth(typeName string) uint8 {
	return typeWidths[normaliseTypeName(typeName)].width
}

// KnownType reports whether the C type name is recognised.
func KnownType(typeName string) bool {
	_, ok := typeWidths[normaliseTypeName(typeName)]
	return ok
}

func typeSigned(typeName string) bool {
	return typeWidths[normaliseTypeName(typeName)].signed
}

func normaliseTypeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// describeValue is used in error messages.
func describeValue(v Value) string {
	return fmt.Sprintf("%s %s", v.Type(), v.String())
}
