package appconf

// Config is the per-application-run configuration object. It holds the
// backing store, the command-line provider view, the constructor-level
// default overrides, and the explicit-assignment cache that bindings
// consult first during resolution.
//
// A Config is owned by a single logical goroutine; concurrent access is
// not supported.
type Config struct {
	store     *Store
	args      *Args
	overrides map[string]any
	explicit  map[string]any
}

// New constructs a Config. The backing document is loaded from path (a
// missing file yields an empty document), args is the parsed command-line
// view (nil when the application has none), and overrides supplies
// per-argument default values ranked between the backing store and each
// binding's static default. A WrapDefaults table is accepted directly as
// overrides; tagged values are unwrapped.
func New(path string, args *Args, overrides map[string]any) (*Config, error) {
	store, err := Open(path)
	if err != nil {
		return nil, err
	}

	c := &Config{
		store:    store,
		args:     args,
		explicit: make(map[string]any),
	}

	if len(overrides) > 0 {
		c.overrides = make(map[string]any, len(overrides))
		for name, value := range overrides {
			if tagged, isTagged := value.(TaggedDefault); isTagged {
				value = tagged.Value
			}
			c.overrides[name] = value
		}
	}

	return c, nil
}

// Get reads a raw value by dot-path: the explicit-assignment cache first,
// then the backing document. Bindings apply converters and the full
// provider chain; Get does not.
func (c *Config) Get(path string) (any, bool) {
	if value, ok := c.explicit[path]; ok {
		return value, true
	}
	return c.store.Get(path)
}

// Set writes a raw value by dot-path to the explicit-assignment cache and
// the backing document, so the next read returns it and Save persists it.
func (c *Config) Set(path string, value any) {
	c.explicit[path] = value
	c.store.Set(path, value)
}

// Save persists the full backing document to path, or to the path the
// document was loaded from when path is empty.
func (c *Config) Save(path string) error {
	return c.store.Save(path)
}

// argLookup consults the command-line provider. A nil provider or an empty
// argument name is absent.
func (c *Config) argLookup(name string) (any, bool, bool) {
	if c.args == nil || name == "" {
		return nil, false, false
	}
	return c.args.Lookup(name)
}
