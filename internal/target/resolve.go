package target

// Resolve merges override onto base and validates the result.
//
// Resolution runs in a fixed order and stops at the first failure:
//  1. each override key present in base must agree with the base declaration,
//     in override order (*TypeMismatchError with Against "base")
//  2. each schema key present must agree with its schema declaration, in
//     schema order (*TypeMismatchError with Against "schema")
//  3. every reference must lead to a concrete value; the first dangling or
//     cyclic one in merge order is a *ReferenceError
//  4. every key required by a runtime component must be present (*MissingDefaultError)
//  5. the invariants run in the order returned by Invariants (*InvariantViolationError)
//
// References are followed before the type checks, which see the value a
// reference leads to. A key whose reference cannot be followed is left out
// of steps 1 and 2.
//
// Integers that pass steps 2 and 3 are redeclared with the declaration they
// were checked against, so an override written as uint64 on a uint32 key
// resolves as uint32. When neither layer defines device_stack_base it is
// derived as a reference to device_sram_end.
//
// Neither base nor override is modified, and a nil layer reads as empty.
func Resolve(base, override *Set) (*Resolved, error) {
	order, merged, layers := merge(base, override)

	values := make(map[Key]Value, len(order))
	refs := make(map[Key]Key)
	var refErr error
	for _, k := range order {
		v := merged[k]
		if v.kind == KindRef {
			refs[k] = v.Target()
			deref, err := follow(merged, k)
			if err != nil {
				if refErr == nil {
					refErr = err
				}
				continue
			}
			v = deref
		}
		values[k] = v
	}

	baseValues := layerValues(base)
	for _, k := range override.Keys() {
		if !base.Has(k) {
			continue
		}
		// A base value that cannot be dereferenced on its own has no
		// declaration to check against; the schema phase still applies.
		decl, err := follow(baseValues, k)
		if err != nil {
			continue
		}
		current, ok := values[k]
		if !ok {
			continue
		}
		v, err := conform(k, current, decl, "base")
		if err != nil {
			return nil, err
		}
		values[k] = v
	}

	for _, d := range schema {
		v, ok := values[d.Key]
		if !ok {
			continue
		}
		v, err := conformSchema(d, v)
		if err != nil {
			return nil, err
		}
		values[d.Key] = v
	}
	for _, k := range order {
		if _, inSchema := schemaIndex[k]; inSchema {
			continue
		}
		v, ok := values[k]
		if !ok {
			continue
		}
		if err := checkMembership(k, v); err != nil {
			return nil, err
		}
	}
	if refErr != nil {
		return nil, refErr
	}

	for _, d := range schema {
		if !d.Required() {
			continue
		}
		if _, ok := values[d.Key]; !ok {
			return nil, &MissingDefaultError{Key: d.Key, Components: append([]Component(nil), d.RequiredBy...)}
		}
	}

	entries := make([]Entry, len(order))
	for i, k := range order {
		entries[i] = Entry{Key: k, Value: values[k], Ref: refs[k], Layer: layers[k]}
	}
	r := newResolved(entries)
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// merge flattens the layers. Base keys keep their order, keys only in the
// override are appended, and a derived stack base comes last.
func merge(base, override *Set) ([]Key, map[Key]Value, map[Key]Layer) {
	order := base.Keys()
	merged := layerValues(base)
	layers := make(map[Key]Layer, len(order)+override.Len()+1)
	for _, k := range order {
		layers[k] = LayerBase
	}
	for _, k := range override.Keys() {
		if _, exists := merged[k]; !exists {
			order = append(order, k)
		}
		merged[k], _ = override.Get(k)
		layers[k] = LayerOverride
	}
	if _, ok := merged[KeyStackBase]; !ok {
		if _, ok := merged[KeySRAMEnd]; ok {
			order = append(order, KeyStackBase)
			merged[KeyStackBase] = Ref(KeySRAMEnd)
			layers[KeyStackBase] = LayerDerived
		}
	}
	return order, merged, layers
}

func layerValues(s *Set) map[Key]Value {
	out := make(map[Key]Value, s.Len())
	for _, k := range s.Keys() {
		out[k], _ = s.Get(k)
	}
	return out
}

// follow returns the value of k with references chased to a concrete value.
func follow(values map[Key]Value, k Key) (Value, error) {
	v := values[k]
	seen := map[Key]bool{k: true}
	for v.kind == KindRef {
		t := v.Target()
		if seen[t] {
			return Value{}, &ReferenceError{Key: k, Target: t, Cycle: true}
		}
		seen[t] = true
		next, ok := values[t]
		if !ok {
			return Value{}, &ReferenceError{Key: k, Target: t}
		}
		v = next
	}
	return v, nil
}

// conform checks v against decl and returns v carrying decl's integer
// declaration or enumeration name.
func conform(k Key, v, decl Value, against string) (Value, error) {
	mismatch := &TypeMismatchError{Key: k, Want: decl.Type(), Got: describeValue(v), Against: against}
	if v.kind != decl.kind {
		return v, mismatch
	}
	switch v.kind {
	case KindInt:
		if v.signed != decl.signed || !v.fits(decl.width, decl.signed) {
			return v, mismatch
		}
		return v.redeclare(decl.width, decl.signed), nil
	case KindEnum:
		if decl.enum == "" {
			return v, nil
		}
		if v.enum != "" && v.enum != decl.enum {
			return v, mismatch
		}
		v.enum = decl.enum
	}
	return v, nil
}

func conformSchema(d Definition, v Value) (Value, error) {
	v, err := conform(d.Key, v, d.prototype(), "schema")
	if err != nil {
		return v, err
	}
	if err := checkMembership(d.Key, v); err != nil {
		return v, err
	}
	return v, nil
}

// checkMembership rejects an enum symbol that its named enumeration does not declare.
func checkMembership(k Key, v Value) error {
	if v.kind != KindEnum {
		return nil
	}
	e, ok := LookupEnumeration(v.enum)
	if !ok || e.Has(v.name) {
		return nil
	}
	return &TypeMismatchError{Key: k, Want: v.Type(), Got: describeValue(v), Against: "schema"}
}
