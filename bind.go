package appconf

import (
	"fmt"
	"reflect"
)

// Converter transforms a raw provider value into the binding's type.
// Converters run once per read of a raw value and never on write.
type Converter[T any] func(raw any) (T, error)

// binder is the shared resolution core behind Binding and RequiredBinding.
// The required-vs-optional split is purely type-level; both variants run
// the same provider chain.
//
// A binder is immutable once declared and shared by every Config instance;
// all per-instance state (the explicit-assignment cache, provider
// references) lives on the Config.
type binder[T any] struct {
	path string
	arg  string
	conv Converter[T]
	def  *T
}

func newBinder[T any](path string) binder[T] {
	if !isValidPath(path) {
		panic(fmt.Sprintf("appconf: invalid binding path %q", path))
	}
	return binder[T]{path: path, arg: lastSegment(path)}
}

// Path returns the binding's dot-path into the backing document.
func (b *binder[T]) Path() string { return b.path }

// resolve runs the provider chain: explicit cache, explicit command-line
// value, backing store, constructor-level default override, tagged
// command-line default, static default.
func (b *binder[T]) resolve(c *Config) (T, bool, error) {
	var zero T

	if cached, ok := c.explicit[b.path]; ok {
		// Assigned values are already typed; the converter is not re-applied.
		typed, isT := cached.(T)
		if !isT {
			return zero, false, &ConversionError{Path: b.path, Raw: cached,
				Err: fmt.Errorf("assigned value is not of the binding's type")}
		}
		return typed, true, nil
	}

	if raw, explicit, ok := c.argLookup(b.arg); ok && explicit {
		value, err := b.convert(raw)
		return value, err == nil, err
	}

	if raw, ok := c.store.Get(b.path); ok {
		value, err := b.convert(raw)
		return value, err == nil, err
	}

	if raw, ok := c.overrides[b.arg]; ok && raw != nil {
		value, err := b.convert(raw)
		return value, err == nil, err
	}

	if raw, explicit, ok := c.argLookup(b.arg); ok && !explicit {
		value, err := b.convert(raw)
		return value, err == nil, err
	}

	if b.def != nil {
		return *b.def, true, nil
	}

	return zero, false, nil
}

func (b *binder[T]) convert(raw any) (T, error) {
	return convertValue(b.path, raw, b.conv)
}

// Assign writes a typed value: it lands in the Config's explicit cache (so
// the next read returns it, bypassing provider resolution) and in the
// backing store at the binding's path (so Save persists it).
func (b *binder[T]) Assign(c *Config, value T) {
	c.explicit[b.path] = value
	c.store.Set(b.path, value)
}

// Binding is the optional descriptor variant: the resolved value may be
// genuinely absent. Declare with Bind, then read with Lookup or Value.
type Binding[T any] struct {
	binder[T]
}

// Bind declares a binding at the given dot-path. The command-line argument
// name defaults to the last path segment. An invalid path panics at
// declaration time.
func Bind[T any](path string) *Binding[T] {
	return &Binding[T]{newBinder[T](path)}
}

// Arg sets the command-line argument name consulted during resolution.
func (b *Binding[T]) Arg(name string) *Binding[T] {
	b.arg = name
	return b
}

// Convert sets the converter applied to raw provider values.
func (b *Binding[T]) Convert(fn Converter[T]) *Binding[T] {
	b.conv = fn
	return b
}

// Default sets the binding's static default, the lowest-ranked provider.
func (b *Binding[T]) Default(value T) *Binding[T] {
	b.def = &value
	return b
}

// Lookup resolves the binding against c. The second return reports whether
// any provider produced a value.
func (b *Binding[T]) Lookup(c *Config) (T, bool, error) {
	return b.resolve(c)
}

// Value resolves the binding against c and fails with ErrMissingValue when
// no provider produced a value.
func (b *Binding[T]) Value(c *Config) (T, error) {
	value, ok, err := b.resolve(c)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, fmt.Errorf("path %q: %w", b.path, ErrMissingValue)
	}
	return value, nil
}

// RequiredBinding is the descriptor variant that statically guarantees a
// non-absent result: a default is required by its constructor, so
// resolution can never come up empty. Behaviorally identical to Binding
// otherwise.
type RequiredBinding[T any] struct {
	binder[T]
}

// BindDefault declares a binding that always resolves: the default is part
// of the declaration, so absence is impossible by construction.
func BindDefault[T any](path string, def T) *RequiredBinding[T] {
	b := &RequiredBinding[T]{newBinder[T](path)}
	b.def = &def
	return b
}

// Arg sets the command-line argument name consulted during resolution.
func (b *RequiredBinding[T]) Arg(name string) *RequiredBinding[T] {
	b.arg = name
	return b
}

// Convert sets the converter applied to raw provider values.
func (b *RequiredBinding[T]) Convert(fn Converter[T]) *RequiredBinding[T] {
	b.conv = fn
	return b
}

// Value resolves the binding against c. The only possible failure is a
// conversion error on a resolved raw value.
func (b *RequiredBinding[T]) Value(c *Config) (T, error) {
	value, _, err := b.resolve(c)
	return value, err
}

// SliceBinding is the sequence descriptor: converters apply element-wise,
// and Append switches resolution from replace mode to union mode, merging
// command-line elements ahead of backing-store elements.
type SliceBinding[E any] struct {
	path  string
	arg   string
	elem  Converter[E]
	def   []E
	merge bool
}

// BindSlice declares a sequence binding at the given dot-path.
func BindSlice[E any](path string) *SliceBinding[E] {
	if !isValidPath(path) {
		panic(fmt.Sprintf("appconf: invalid binding path %q", path))
	}
	return &SliceBinding[E]{path: path, arg: lastSegment(path)}
}

// Path returns the binding's dot-path into the backing document.
func (b *SliceBinding[E]) Path() string { return b.path }

// Arg sets the command-line argument name consulted during resolution.
func (b *SliceBinding[E]) Arg(name string) *SliceBinding[E] {
	b.arg = name
	return b
}

// ConvertEach sets the converter applied to every element.
func (b *SliceBinding[E]) ConvertEach(fn Converter[E]) *SliceBinding[E] {
	b.elem = fn
	return b
}

// Default sets the binding's static default, the lowest-ranked provider.
func (b *SliceBinding[E]) Default(values []E) *SliceBinding[E] {
	b.def = values
	return b
}

// Append switches the binding to union mode: explicitly supplied
// command-line elements come first, backing-store elements after. The
// ordering is a committed contract, consistent with command-line
// precedence in replace mode.
func (b *SliceBinding[E]) Append() *SliceBinding[E] {
	b.merge = true
	return b
}

// Assign writes an already-typed slice to the explicit cache and the
// backing store.
func (b *SliceBinding[E]) Assign(c *Config, values []E) {
	c.explicit[b.path] = values
	c.store.Set(b.path, values)
}

// Value resolves the binding against c. In union mode an absent result is
// an empty slice (or the default, when declared).
func (b *SliceBinding[E]) Value(c *Config) ([]E, error) {
	if cached, ok := c.explicit[b.path]; ok {
		typed, isSlice := cached.([]E)
		if !isSlice {
			return nil, &ConversionError{Path: b.path, Raw: cached,
				Err: fmt.Errorf("assigned value is not of the binding's type")}
		}
		return typed, nil
	}

	if b.merge {
		return b.union(c)
	}

	if raw, explicit, ok := c.argLookup(b.arg); ok && explicit {
		return b.convertRaw(raw)
	}
	if raw, ok := c.store.Get(b.path); ok {
		return b.convertRaw(raw)
	}
	return b.fallback(c)
}

// union merges explicitly supplied command-line elements with
// backing-store elements, command-line first. When neither source has a
// sequence the default sources merge against an empty list.
func (b *SliceBinding[E]) union(c *Config) ([]E, error) {
	merged := []E{}
	found := false

	if raw, explicit, ok := c.argLookup(b.arg); ok && explicit {
		if elements, isSeq := sequenceElements(raw); isSeq {
			converted, err := b.convertElements(elements)
			if err != nil {
				return nil, err
			}
			merged = append(merged, converted...)
			found = true
		}
	}

	if raw, ok := c.store.Get(b.path); ok {
		if elements, isSeq := sequenceElements(raw); isSeq {
			converted, err := b.convertElements(elements)
			if err != nil {
				return nil, err
			}
			merged = append(merged, converted...)
			found = true
		}
	}

	if found {
		return merged, nil
	}
	return b.fallback(c)
}

// fallback runs the default sources: constructor-level override, tagged
// command-line default, static default, empty slice.
func (b *SliceBinding[E]) fallback(c *Config) ([]E, error) {
	if raw, ok := c.overrides[b.arg]; ok && raw != nil {
		return b.convertRaw(raw)
	}
	if raw, explicit, ok := c.argLookup(b.arg); ok && !explicit {
		return b.convertRaw(raw)
	}
	if b.def != nil {
		return append([]E{}, b.def...), nil
	}
	return []E{}, nil
}

// convertRaw converts a raw provider value into the element slice:
// sequences convert element-wise, scalars become a one-element slice (or,
// without an element converter, are weakly decoded whole, so comma-joined
// strings split).
func (b *SliceBinding[E]) convertRaw(raw any) ([]E, error) {
	if elements, isSeq := sequenceElements(raw); isSeq {
		return b.convertElements(elements)
	}
	if b.elem == nil {
		var out []E
		if err := decodeWeak(raw, &out); err != nil {
			return nil, &ConversionError{Path: b.path, Raw: raw, Err: err}
		}
		return out, nil
	}
	value, err := convertValue(b.path, raw, b.elem)
	if err != nil {
		return nil, err
	}
	return []E{value}, nil
}

func (b *SliceBinding[E]) convertElements(elements []any) ([]E, error) {
	out := make([]E, 0, len(elements))
	for _, element := range elements {
		value, err := convertValue(b.path, element, b.elem)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// sequenceElements normalizes any slice or array value into []any.
// Strings are not sequences.
func sequenceElements(raw any) ([]any, bool) {
	if elements, ok := raw.([]any); ok {
		return elements, true
	}
	v := reflect.ValueOf(raw)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, false
	}
	elements := make([]any, v.Len())
	for i := range elements {
		elements[i] = v.Index(i).Interface()
	}
	return elements, true
}

// convertValue applies the converter, or falls back to a direct type
// assertion and then a weakly-typed decode. Failures carry the path and
// raw value as a *ConversionError.
func convertValue[T any](path string, raw any, conv Converter[T]) (T, error) {
	var zero T

	if conv != nil {
		value, err := conv(raw)
		if err != nil {
			return zero, &ConversionError{Path: path, Raw: raw, Err: err}
		}
		return value, nil
	}

	if value, ok := raw.(T); ok {
		return value, nil
	}

	var out T
	if err := decodeWeak(raw, &out); err != nil {
		return zero, &ConversionError{Path: path, Raw: raw, Err: err}
	}
	return out, nil
}
