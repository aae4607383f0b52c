package appconf

import "flag"

// TaggedDefault marks a command-line value that came from a declared
// default rather than from explicit user input. Resolution unwraps it and
// ranks it below the backing store, where an explicit value would rank
// above.
type TaggedDefault struct {
	Value any
}

// WrapDefaults rewrites every declared default in the table into a
// TaggedDefault. This is the wrap step: it must run before the external
// parser fills unset arguments from its defaults, so that post-parse
// resolution can tell explicit input apart from default fallback. If the
// wrap step is skipped, every argument carrying a default is
// indistinguishable from explicit input and incorrectly outranks the
// backing store.
//
// The returned table is also accepted as the default-overrides argument to
// New.
func WrapDefaults(defaults map[string]any) map[string]any {
	wrapped := make(map[string]any, len(defaults))
	for name, value := range defaults {
		if _, alreadyTagged := value.(TaggedDefault); alreadyTagged {
			wrapped[name] = value
			continue
		}
		wrapped[name] = TaggedDefault{Value: value}
	}
	return wrapped
}

// Args is a read-only view over a parsed command-line result. For each
// argument name it reports the resolved value and whether the value was
// explicitly supplied by the user or fell through to a tagged default.
type Args struct {
	values map[string]any
}

// NewArgs wraps a parsed result map. Values may be raw (explicit user
// input) or TaggedDefault-wrapped (declared defaults passed through
// WrapDefaults).
func NewArgs(values map[string]any) *Args {
	copied := make(map[string]any, len(values))
	for name, value := range values {
		copied[name] = value
	}
	return &Args{values: copied}
}

// FromFlagSet adapts a parsed flag.FlagSet. Flags the user actually set on
// the command line become explicit values; remaining flags with a
// non-empty declared default become tagged defaults; flags with an empty
// default stay absent. Must be called after fs.Parse.
func FromFlagSet(fs *flag.FlagSet) *Args {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	values := make(map[string]any)
	fs.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] {
			values[f.Name] = f.Value.String()
			return
		}
		if f.DefValue == "" {
			return
		}
		values[f.Name] = TaggedDefault{Value: f.DefValue}
	})

	return &Args{values: values}
}

// Lookup returns the value for an argument name and whether it came from
// explicit user input. An undeclared name, or a nil value that was not
// explicitly supplied, is absent (ok false).
func (a *Args) Lookup(name string) (value any, explicit bool, ok bool) {
	if a == nil {
		return nil, false, false
	}
	raw, found := a.values[name]
	if !found {
		return nil, false, false
	}
	if tagged, isTagged := raw.(TaggedDefault); isTagged {
		if tagged.Value == nil {
			return nil, false, false
		}
		return tagged.Value, false, true
	}
	if raw == nil {
		return nil, false, false
	}
	return raw, true, true
}
