// Package layerfile loads configuration layers from YAML, TOML or C header files.
//
// YAML and TOML layers are flat mappings from key to value. Keys may be
// written as macros (DEVICE_STACK_SIZE), canonical keys (device_stack_size)
// or short aliases (stack_size). Values follow this grammar:
//
//	true / false              boolean
//	2048, 0x20000000          integer, declared by the schema (int32 otherwise)
//	"PullMode::Down"          enum symbol with its enumeration
//	"SYNC_SLEEP"              symbol of the key's enumeration, or a reference
//	                          when it names another key
//	"ref:device_sram_end"     reference
//	"type:uint64_t"           C type tag
//	{int: 7, width: 8}        integer with an explicit declaration
//
// YAML keeps document order. TOML tables are unordered, so TOML keys are
// stored in schema order followed by unknown keys sorted by name.
package layerfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/microbit-carlos/codalcfg/internal/target"
	"github.com/microbit-carlos/codalcfg/internal/target/header"
)

// Format is a layer file encoding.
type Format string

// Supported formats.
const (
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatHeader Format = "header"
)

// Sentinel errors.
var (
	ErrUnknownFormat = errors.New("layerfile: unknown format")
	ErrInvalidValue  = errors.New("layerfile: invalid value")
	ErrDuplicateKey  = errors.New("layerfile: duplicate key")
)

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	scopedPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)::([A-Za-z_][A-Za-z0-9_]*)$`)
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".h", ".hpp":
		return FormatHeader, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads the layer at path.
func Load(path string) (*target.Set, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("reading layer file: %w", err)
	}
	set, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", path, err)
	}
	return set, nil
}

// Decode reads a layer in the given format.
func Decode(r io.Reader, format Format) (*target.Set, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(r)
	case FormatTOML:
		return decodeTOML(r)
	case FormatHeader:
		return header.Parse(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func decodeYAML(r io.Reader) (*target.Set, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return target.NewSet(), nil
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return target.NewSet(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: layer must be a mapping, got line %d", ErrInvalidValue, root.Line)
	}

	set := target.NewSet()
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		var raw any
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", valNode.Line, err)
		}
		if err := put(set, keyNode.Value, raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", keyNode.Line, err)
		}
	}
	return set, nil
}

func decodeTOML(r io.Reader) (*target.Set, error) {
	var doc map[string]any
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	rank := func(name string) int {
		k, _ := target.ParseKey(name)
		for i, d := range target.Definitions() {
			if d.Key == k {
				return i
			}
		}
		return math.MaxInt
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	set := target.NewSet()
	for _, name := range names {
		if err := put(set, name, doc[name]); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func put(set *target.Set, name string, raw any) error {
	key, _ := target.ParseKey(name)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidValue)
	}
	// Keys become macro names and topic segments.
	if !identPattern.MatchString(string(key)) {
		return fmt.Errorf("%w: key %q is not a C identifier", ErrInvalidValue, name)
	}
	if set.Has(key) {
		return fmt.Errorf("%w: %s (as %q)", ErrDuplicateKey, key, name)
	}
	v, err := Convert(key, raw)
	if err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}
	set.Put(key, v)
	return nil
}

// Convert types a decoded YAML or TOML value for key.
func Convert(key target.Key, raw any) (target.Value, error) {
	def, inSchema := target.Lookup(key)

	switch x := raw.(type) {
	case bool:
		return target.Bool(x), nil
	case int:
		return integer(def, inSchema, int64(x))
	case int64:
		return integer(def, inSchema, x)
	case uint64:
		if x > math.MaxInt64 {
			return target.Uint(x, 64), nil
		}
		return integer(def, inSchema, int64(x))
	case string:
		return symbol(key, def, inSchema, x)
	case map[string]any:
		return explicit(x)
	case nil:
		return target.Value{}, fmt.Errorf("%w: null", ErrInvalidValue)
	default:
		return target.Value{}, fmt.Errorf("%w: unsupported %T %v", ErrInvalidValue, raw, raw)
	}
}

func integer(def target.Definition, inSchema bool, n int64) (target.Value, error) {
	if inSchema {
		switch def.Kind {
		case target.KindBool:
			if n == 0 || n == 1 {
				return target.Bool(n == 1), nil
			}
		case target.KindInt:
			if n < 0 || def.Signed {
				return target.Int(n, def.Width), nil
			}
			return target.Uint(uint64(n), def.Width), nil
		}
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return target.Int(n, 64), nil
	}
	return target.Int(n, 32), nil
}

func symbol(key target.Key, def target.Definition, inSchema bool, s string) (target.Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "ref:"):
		ref, _ := target.ParseKey(strings.TrimPrefix(s, "ref:"))
		if ref == "" {
			return target.Value{}, fmt.Errorf("%w: empty reference", ErrInvalidValue)
		}
		if !identPattern.MatchString(string(ref)) {
			return target.Value{}, fmt.Errorf("%w: reference %q is not a C identifier", ErrInvalidValue, ref)
		}
		return target.Ref(ref), nil
	case strings.HasPrefix(s, "type:"):
		name := strings.TrimSpace(strings.TrimPrefix(s, "type:"))
		if name == "" {
			return target.Value{}, fmt.Errorf("%w: empty type name", ErrInvalidValue)
		}
		return target.TypeTag(name), nil
	}

	if m := scopedPattern.FindStringSubmatch(s); m != nil {
		return target.Enum(m[1], m[2]), nil
	}

	if inSchema && def.Kind == target.KindEnum {
		if e, ok := target.LookupEnumeration(def.Enum); ok && e.Has(s) {
			return target.Enum(def.Enum, s), nil
		}
	}
	if ref, known := target.ParseKey(s); known && ref != key {
		return target.Ref(ref), nil
	}
	if inSchema && def.Kind == target.KindTypeTag {
		return target.TypeTag(s), nil
	}
	if target.KnownType(s) {
		return target.TypeTag(s), nil
	}
	if identPattern.MatchString(s) {
		if inSchema && def.Kind == target.KindEnum {
			return target.Enum(def.Enum, s), nil
		}
		if e, ok := target.EnumerationOf(s); ok {
			return target.Enum(e.Name, s), nil
		}
	}
	return target.Value{}, fmt.Errorf("%w: cannot type %q", ErrInvalidValue, s)
}

// explicit reads the {int: N, width: W, signed: B} form.
func explicit(m map[string]any) (target.Value, error) {
	n, ok := toInt64(m["int"])
	if !ok {
		return target.Value{}, fmt.Errorf("%w: mapping value needs an integer \"int\" field", ErrInvalidValue)
	}
	width := int64(32)
	if w, present := m["width"]; present {
		if width, ok = toInt64(w); !ok {
			return target.Value{}, fmt.Errorf("%w: width must be an integer", ErrInvalidValue)
		}
	}
	switch width {
	case 8, 16, 32, 64:
	default:
		return target.Value{}, fmt.Errorf("%w: width %d is not 8, 16, 32 or 64", ErrInvalidValue, width)
	}
	signed := n < 0
	if s, present := m["signed"]; present {
		b, isBool := s.(bool)
		if !isBool {
			return target.Value{}, fmt.Errorf("%w: signed must be a boolean", ErrInvalidValue)
		}
		signed = b
	}
	if signed {
		return target.Int(n, uint8(width)), nil
	}
	if n < 0 {
		return target.Value{}, fmt.Errorf("%w: negative value %d declared unsigned", ErrInvalidValue, n)
	}
	return target.Uint(uint64(n), uint8(width)), nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}
