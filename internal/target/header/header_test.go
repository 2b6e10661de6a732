package header_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/microbit-carlos/codalcfg/internal/target"
	"github.com/microbit-carlos/codalcfg/internal/target/header"
	"github.com/microbit-carlos/codalcfg/internal/target/profile"
)

func parseString(t *testing.T, src string) *target.Set {
	t.Helper()
	s, err := header.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return s
}

func TestParse_TargetHeader(t *testing.T) {
	f, err := os.Open("testdata/codal_extra_definitions.h")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := header.Parse(f)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := profile.CodalWASM()

	if diff := cmp.Diff(want.Keys(), got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	for _, k := range want.Keys() {
		w, _ := want.Get(k)
		g, _ := got.Get(k)
		if !g.Equal(w) {
			t.Errorf("%s = %s %s, want %s %s", k, g.Type(), g, w.Type(), w)
		}
	}
}

func TestParse_Syntax(t *testing.T) {
	src := `
/* Target configuration
 * for tests */
#ifndef TEST_CONFIG_H
#define TEST_CONFIG_H
#include "CodalConfig.h"

#define DEVICE_STACK_SIZE   (4096)   // bytes
#define DEVICE_STACK_BASE   BOARD_RAM_TOP
#define BOARD_RAM_TOP       DEVICE_SRAM_END
#define DEVICE_SRAM_END     0x20040000UL /* top */
#define BOARD_REVISION      -3
#define BOARD_SERIAL        0x1FFFFFFFF
#define BOARD_COUNTER_TYPE  unsigned long
#define CODAL_DEBUG         CODAL_DEBUG_ENABLED
#define DEVICE_STACK_SIZE   (4096)

#endif
`
	s := parseString(t, src)

	tests := []struct {
		key  target.Key
		want target.Value
	}{
		{target.KeyStackSize, target.Uint32(4096)},
		{target.KeyStackBase, target.Ref("board_ram_top")},
		{"board_ram_top", target.Ref(target.KeySRAMEnd)},
		{target.KeySRAMEnd, target.Uint32(0x20040000)},
		{"board_revision", target.Int(-3, 32)},
		{"board_serial", target.Int(0x1FFFFFFFF, 64)},
		{"board_counter_type", target.TypeTag("unsigned long")},
		{target.KeyDebug, target.Enum(target.EnumDebugLevel, "CODAL_DEBUG_ENABLED")},
	}
	for _, tt := range tests {
		got, ok := s.Get(tt.key)
		if !ok {
			t.Errorf("%s not parsed", tt.key)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s = %s %s, want %s %s", tt.key, got.Type(), got, tt.want.Type(), tt.want)
		}
	}
	if s.Len() != len(tests) {
		t.Errorf("Len() = %d, want %d (keys %v)", s.Len(), len(tests), s.Keys())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"conflicting redefinition", "#define DEVICE_TAG 1\n#define DEVICE_TAG 2\n", 2},
		{"not a directive", "#define DEVICE_TAG 1\nint x = 3;\n", 2},
		{"bad macro name", "\n#define 9LIVES 1\n", 2},
		{"unsupported value", "#define DEVICE_TAG 1 + 2\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := header.Parse(strings.NewReader(tt.src))
			if !errors.Is(err, header.ErrSyntax) {
				t.Fatalf("error = %v, want ErrSyntax", err)
			}
			var pe *header.ParseError
			errors.As(err, &pe)
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestParse_BoolsAndEnumsAreTypedBySchema(t *testing.T) {
	s := parseString(t, "#define DEVICE_USB 1\n#define DEVICE_DEFAULT_PULLMODE Sideways\n")

	if v, _ := s.Get(target.KeyDeviceUSB); !v.Equal(target.Bool(true)) {
		t.Errorf("DEVICE_USB = %s %s, want bool true", v.Type(), v)
	}

	_, err := target.Resolve(profile.Base(), s)
	var tm *target.TypeMismatchError
	if !errors.As(err, &tm) || tm.Key != target.KeyDefaultPullMode {
		t.Errorf("Resolve() error = %v, want type mismatch on pull mode", err)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	resolved, err := target.Resolve(profile.Base(), profile.CodalWASM())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := header.Write(&buf, resolved); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"#ifndef " + header.Guard,
		"// fingerprint: " + resolved.Fingerprint(),
		"#define DEVICE_SRAM_BASE                     0x20000000\n",
		"#define DEVICE_STACK_BASE                    DEVICE_SRAM_END\n",
		"#define DEVICE_DEFAULT_PULLMODE              PullMode::Down\n",
		"#define DEVICE_DEFAULT_SERIAL_MODE           SYNC_SLEEP\n",
		"#define CODAL_TIMESTAMP                      uint64_t\n",
		"#define MICROBIT_BLE_ENABLED                 0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	parsed, err := header.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse(Write()) error = %v", err)
	}
	again, err := target.Resolve(profile.Base(), parsed)
	if err != nil {
		t.Fatalf("Resolve(parsed) error = %v", err)
	}
	if !again.Equal(resolved) {
		t.Error("header round trip changed the configuration")
	}
}

func TestWrite_ExtraIntegersLoseDeclaration(t *testing.T) {
	override := profile.CodalWASM().Put("board_flags", target.Uint(5, 8))
	resolved, err := target.Resolve(profile.Base(), override)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := header.Write(&buf, resolved); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	parsed, err := header.Parse(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Parse(Write()) error = %v", err)
	}

	got, ok := parsed.Get("board_flags")
	if !ok {
		t.Fatal("board_flags missing after round trip")
	}
	if got.Type() != "int32" {
		t.Errorf("board_flags type = %s, want int32", got.Type())
	}

	again, err := target.Resolve(profile.Base(), parsed)
	if err != nil {
		t.Fatalf("Resolve(parsed) error = %v", err)
	}
	for _, def := range target.Definitions() {
		want, wantOK := resolved.Get(def.Key)
		got, gotOK := again.Get(def.Key)
		if wantOK != gotOK || !got.Equal(want) {
			t.Errorf("%s = %s %s after round trip, want %s %s", def.Key, got.Type(), got, want.Type(), want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		entry target.Entry
		want  string
	}{
		{target.Entry{Key: target.KeySRAMEnd, Value: target.Uint32(0x20020000)}, "0x20020000"},
		{target.Entry{Key: target.KeyStackSize, Value: target.Uint32(2048)}, "2048"},
		{target.Entry{Key: target.KeyStackBase, Value: target.Uint32(0x20020000), Ref: target.KeySRAMEnd}, "DEVICE_SRAM_END"},
		{target.Entry{Key: target.KeyDeviceUSB, Value: target.Bool(false)}, "0"},
		{target.Entry{Key: "board_rev", Value: target.Int(-3, 32)}, "-3"},
	}
	for _, tt := range tests {
		if got := header.FormatValue(tt.entry); got != tt.want {
			t.Errorf("FormatValue(%s) = %q, want %q", tt.entry.Key, got, tt.want)
		}
	}
}
