// Package header reads and writes target configuration as a C header of
// #define lines, the form the C++ build consumes.
//
// Parse accepts one definition per line:
//
//	#define DEVICE_SRAM_BASE        0x20000000
//	#define DEVICE_STACK_BASE       DEVICE_SRAM_END
//	#define DEVICE_DEFAULT_PULLMODE PullMode::Down
//
// Values are typed using the schema declaration of the macro when there is
// one. An identifier that names another defined macro becomes a reference.
// Comments, blank lines, include guards and other directives are ignored.
package header

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/microbit-carlos/codalcfg/internal/target"
)

// ErrSyntax is returned for lines that cannot be read as a definition.
var ErrSyntax = errors.New("header: syntax error")

// ParseError locates a bad definition.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: line %d: %s: %q", ErrSyntax, e.Line, e.Msg, e.Text)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	scopedPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)::([A-Za-z_][A-Za-z0-9_]*)$`)
	intPattern    = regexp.MustCompile(`^-?(0[xX][0-9A-Fa-f]+|[0-9]+)[uUlL]*$`)
	blockComment  = regexp.MustCompile(`/\*.*?\*/`)
)

type definition struct {
	line int
	text string
	key  target.Key
	raw  string
}

// Parse reads a header into a layer. Keys are stored in definition order.
// Redefining a macro with a different value is an error.
func Parse(r io.Reader) (*target.Set, error) {
	var defs []definition
	seen := make(map[target.Key]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	inComment := false
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		var line string
		line, inComment = stripComments(text, inComment)
		if line == "" || !strings.HasPrefix(line, "#") {
			if line != "" {
				return nil, &ParseError{Line: lineNo, Text: text, Msg: "expected a preprocessor directive"}
			}
			continue
		}

		fields := strings.Fields(strings.TrimSpace(line[1:]))
		if len(fields) == 0 || fields[0] != "define" {
			continue
		}
		if len(fields) < 2 || !identPattern.MatchString(fields[1]) {
			return nil, &ParseError{Line: lineNo, Text: text, Msg: "missing macro name"}
		}
		if len(fields) == 2 {
			// Value-less defines are include guards or feature switches.
			continue
		}

		key, _ := target.ParseKey(fields[1])
		raw := strings.Join(fields[2:], " ")
		if prev, dup := seen[key]; dup {
			if prev != raw {
				return nil, &ParseError{Line: lineNo, Text: text, Msg: "conflicting redefinition of " + fields[1]}
			}
			continue
		}
		seen[key] = raw
		defs = append(defs, definition{line: lineNo, text: text, key: key, raw: raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	set := target.NewSet()
	for _, d := range defs {
		v, err := convert(d.key, d.raw, seen)
		if err != nil {
			return nil, &ParseError{Line: d.line, Text: d.text, Msg: err.Error()}
		}
		set.Put(d.key, v)
	}
	return set, nil
}

// stripComments removes comments from one line. inComment reports whether
// the line starts inside a block comment; the returned flag reports whether
// the next one does.
func stripComments(line string, inComment bool) (string, bool) {
	if inComment {
		end := strings.Index(line, "*/")
		if end < 0 {
			return "", true
		}
		line = line[end+2:]
	}
	line = blockComment.ReplaceAllString(line, " ")
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "/*"); i >= 0 {
		return strings.TrimSpace(line[:i]), true
	}
	return strings.TrimSpace(line), false
}

// convert types a raw macro value. defined holds every macro in the file so
// that forward references are recognised.
func convert(key target.Key, raw string, defined map[target.Key]string) (target.Value, error) {
	raw = unparen(raw)
	isMacro := func(ident string) bool {
		k, known := target.ParseKey(ident)
		_, inFile := defined[k]
		return identPattern.MatchString(ident) && (known || inFile) && k != key
	}

	def, inSchema := target.Lookup(key)
	if m := scopedPattern.FindStringSubmatch(raw); m != nil {
		return target.Enum(m[1], m[2]), nil
	}
	if intPattern.MatchString(raw) {
		return convertInt(raw, def, inSchema)
	}

	if inSchema {
		switch def.Kind {
		case target.KindBool:
			switch raw {
			case "true":
				return target.Bool(true), nil
			case "false":
				return target.Bool(false), nil
			}
		case target.KindEnum:
			if e, ok := target.LookupEnumeration(def.Enum); ok && e.Has(raw) {
				return target.Enum(def.Enum, raw), nil
			}
		case target.KindTypeTag:
			if target.KnownType(raw) {
				return target.TypeTag(raw), nil
			}
		}
	}

	switch {
	case isMacro(raw):
		k, _ := target.ParseKey(raw)
		return target.Ref(k), nil
	case target.KnownType(raw):
		return target.TypeTag(raw), nil
	case identPattern.MatchString(raw):
		if e, ok := target.EnumerationOf(raw); ok {
			return target.Enum(e.Name, raw), nil
		}
		if inSchema && def.Kind == target.KindEnum {
			// Kept so that resolution reports the symbol against the enumeration.
			return target.Enum(def.Enum, raw), nil
		}
		if inSchema && def.Kind == target.KindTypeTag {
			return target.TypeTag(raw), nil
		}
		if strings.ToUpper(raw) == raw {
			k, _ := target.ParseKey(raw)
			return target.Ref(k), nil
		}
		return target.TypeTag(raw), nil
	}
	return target.Value{}, fmt.Errorf("unsupported value %q", raw)
}

func convertInt(raw string, def target.Definition, inSchema bool) (target.Value, error) {
	digits := strings.TrimRight(raw, "uUlL")
	negative := strings.HasPrefix(digits, "-")

	if inSchema && def.Kind == target.KindBool {
		switch digits {
		case "0":
			return target.Bool(false), nil
		case "1":
			return target.Bool(true), nil
		}
	}

	width, signed := uint8(32), true
	if inSchema && def.Kind == target.KindInt {
		width, signed = def.Width, def.Signed
	}

	if negative || signed {
		n, err := strconv.ParseInt(digits, 0, 64)
		if err == nil {
			if !inSchema && (n > 1<<31-1 || n < -1<<31) {
				width = 64
			}
			return target.Int(n, width), nil
		}
		if negative || inSchema {
			return target.Value{}, fmt.Errorf("integer %q: %w", raw, err)
		}
		// Too large for int64; only an unsigned 64-bit declaration holds it.
		width = 64
	}
	n, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		return target.Value{}, fmt.Errorf("integer %q: %w", raw, err)
	}
	return target.Uint(n, width), nil
}

func unparen(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// Guard is the include guard written around generated headers.
const Guard = "CODAL_TARGET_CONFIG_H"

// Write renders a resolved configuration as a header, one #define per
// entry in resolution order. Referenced entries are written as the macro
// they reference.
//
// Parsing the output over the same base reproduces every schema key. Integer
// keys outside the schema are written as plain literals and lose their
// declared width and signedness: they read back as int32, widened to int64
// or uint64 when the literal does not fit.
func Write(w io.Writer, r *target.Resolved) error {
	entries := r.Entries()
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Key.Macro()))
	}

	var b strings.Builder
	b.WriteString("// Generated by codalcfg. Do not edit.\n")
	fmt.Fprintf(&b, "// fingerprint: %s\n", r.Fingerprint())
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", Guard, Guard)
	for _, e := range entries {
		fmt.Fprintf(&b, "#define %-*s %s\n", width, e.Key.Macro(), FormatValue(e))
	}
	fmt.Fprintf(&b, "\n#endif // %s\n", Guard)

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatValue renders an entry's value as C source.
func FormatValue(e target.Entry) string {
	if e.Ref != "" {
		return e.Ref.Macro()
	}
	v := e.Value
	switch v.Kind() {
	case target.KindBool:
		if b, _ := v.Bool(); b {
			return "1"
		}
		return "0"
	case target.KindInt:
		if def, ok := target.Lookup(e.Key); ok && def.Hex {
			n, _ := v.Uint64()
			return fmt.Sprintf("0x%08X", n)
		}
		return v.String()
	case target.KindEnum:
		if en, ok := target.LookupEnumeration(v.Enumeration()); ok && en.Scoped {
			return v.String()
		}
		return v.Symbol()
	default:
		return v.String()
	}
}
