package appconf

import (
	"errors"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig builds a Config over a throwaway backing file.
func newTestConfig(t *testing.T, content string, args *Args, overrides map[string]any) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		writeFile(t, path, content)
	}
	cfg, err := New(path, args, overrides)
	require.NoError(t, err)
	return cfg
}

func TestBindDeclaration(t *testing.T) {
	t.Run("ArgDefaultsToLastPathSegment", func(t *testing.T) {
		b := Bind[int]("server.port")
		assert.Equal(t, "server.port", b.Path())

		cfg := newTestConfig(t, "", NewArgs(map[string]any{"port": "9090"}), nil)
		value, err := b.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 9090, value)
	})

	t.Run("InvalidPathPanicsAtDeclaration", func(t *testing.T) {
		for _, path := range []string{"", "server..port", ".leading", "trailing.", "bad key"} {
			assert.Panics(t, func() { Bind[string](path) }, "path %q should panic", path)
		}
	})
}

// TestPrecedenceLaw verifies: explicit assignment > command-line explicit
// value > backing-store value > constructor-level default override >
// tagged command-line default > binding default. Each case strips the
// highest remaining layer.
func TestPrecedenceLaw(t *testing.T) {
	port := Bind[int]("server.port").Arg("port").Convert(ToInt).Default(1111)

	explicitArgs := NewArgs(map[string]any{"port": "2222"})
	taggedArgs := NewArgs(map[string]any{"port": TaggedDefault{Value: "5555"}})
	storeContent := "server:\n  port: 3333\n"
	overrides := map[string]any{"port": 4444}

	t.Run("ExplicitAssignmentWins", func(t *testing.T) {
		cfg := newTestConfig(t, storeContent, explicitArgs, overrides)
		port.Assign(cfg, 9999)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 9999, value)
	})

	t.Run("CommandLineExplicitBeatsStore", func(t *testing.T) {
		cfg := newTestConfig(t, storeContent, explicitArgs, overrides)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 2222, value)
	})

	t.Run("StoreBeatsOverride", func(t *testing.T) {
		cfg := newTestConfig(t, storeContent, taggedArgs, overrides)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 3333, value)
	})

	t.Run("OverrideBeatsTaggedDefault", func(t *testing.T) {
		cfg := newTestConfig(t, "", taggedArgs, overrides)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 4444, value)
	})

	t.Run("TaggedDefaultBeatsBindingDefault", func(t *testing.T) {
		cfg := newTestConfig(t, "", taggedArgs, nil)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 5555, value)
	})

	t.Run("BindingDefaultIsLastResort", func(t *testing.T) {
		cfg := newTestConfig(t, "", nil, nil)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 1111, value)
	})
}

func TestAbsentResolution(t *testing.T) {
	t.Run("LookupReportsAbsence", func(t *testing.T) {
		cfg := newTestConfig(t, "", nil, nil)
		value, ok, err := Bind[string]("missing.key").Lookup(cfg)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "", value)
	})

	t.Run("ValueFailsWithMissingValue", func(t *testing.T) {
		cfg := newTestConfig(t, "", nil, nil)
		_, err := Bind[string]("missing.key").Value(cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingValue)
		assert.Contains(t, err.Error(), "missing.key")
	})

	t.Run("RequiredBindingCannotBeAbsent", func(t *testing.T) {
		cfg := newTestConfig(t, "", nil, nil)
		value, err := BindDefault("server.host", "localhost").Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, "localhost", value)
	})
}

func TestConverters(t *testing.T) {
	t.Run("ConverterFailureCarriesPathAndRawValue", func(t *testing.T) {
		cfg := newTestConfig(t, "server:\n  port: not-a-number\n", nil, nil)
		_, err := Bind[int]("server.port").Convert(ToInt).Value(cfg)
		require.Error(t, err)

		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, "server.port", convErr.Path)
		assert.Equal(t, "not-a-number", convErr.Raw)
	})

	t.Run("ConverterRunsOncePerRead", func(t *testing.T) {
		cfg := newTestConfig(t, "counter: 1\n", nil, nil)

		calls := 0
		counting := Bind[int]("counter").Convert(func(raw any) (int, error) {
			calls++
			return cast.ToIntE(raw)
		})

		_, err := counting.Value(cfg)
		require.NoError(t, err)
		_, err = counting.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)

		// Assignments store typed values; no conversion on write or on
		// reads served from the explicit cache.
		counting.Assign(cfg, 7)
		value, err := counting.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 7, value)
		assert.Equal(t, 2, calls)
	})

	t.Run("WeakDecodeFallbackWithoutConverter", func(t *testing.T) {
		cfg := newTestConfig(t, "", NewArgs(map[string]any{"port": "9090"}), nil)
		value, err := Bind[int]("server.port").Arg("port").Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 9090, value)
	})

	t.Run("StockConverters", func(t *testing.T) {
		cfg := newTestConfig(t, "timeout: 30s\nratio: \"0.5\"\nverbose: \"true\"\n", nil, nil)

		timeout, err := Bind[time.Duration]("timeout").Convert(ToDuration).Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, timeout)

		ratio, err := Bind[float64]("ratio").Convert(ToFloat64).Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 0.5, ratio)

		verbose, err := Bind[bool]("verbose").Convert(ToBool).Value(cfg)
		require.NoError(t, err)
		assert.True(t, verbose)
	})
}

func TestSliceBinding(t *testing.T) {
	t.Run("ElementWiseConversion", func(t *testing.T) {
		cfg := newTestConfig(t, "words:\n  - hello\n  - world\n", nil, nil)

		upper := BindSlice[string]("words").ConvertEach(func(raw any) (string, error) {
			s, err := cast.ToStringE(raw)
			return strings.ToUpper(s), err
		})

		values, err := upper.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"HELLO", "WORLD"}, values)
	})

	t.Run("ElementConversionFailureCarriesPath", func(t *testing.T) {
		cfg := newTestConfig(t, "ports:\n  - 8080\n  - nope\n", nil, nil)

		_, err := BindSlice[int]("ports").ConvertEach(ToInt).Value(cfg)
		require.Error(t, err)
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, "ports", convErr.Path)
		assert.Equal(t, "nope", convErr.Raw)
	})

	t.Run("ReplaceModeCommandLineWins", func(t *testing.T) {
		args := NewArgs(map[string]any{"tag": []string{"cli"}})
		cfg := newTestConfig(t, "server:\n  tags:\n    - file\n", args, nil)

		values, err := BindSlice[string]("server.tags").Arg("tag").Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"cli"}, values)
	})
}

// TestAppendLaw verifies the union contract: command-line elements precede
// backing-store elements, and absence degrades to the other source, the
// default, or an empty list.
func TestAppendLaw(t *testing.T) {
	tags := BindSlice[string]("server.tags").Arg("tag").Append()

	t.Run("CommandLineElementsPrecedeStoreElements", func(t *testing.T) {
		args := NewArgs(map[string]any{"tag": []string{"a"}})
		cfg := newTestConfig(t, "server:\n  tags:\n    - b\n", args, nil)

		values, err := tags.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, values)
	})

	t.Run("StoreOnly", func(t *testing.T) {
		cfg := newTestConfig(t, "server:\n  tags:\n    - b\n", nil, nil)
		values, err := tags.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, values)
	})

	t.Run("CommandLineOnly", func(t *testing.T) {
		args := NewArgs(map[string]any{"tag": []string{"a", "c"}})
		cfg := newTestConfig(t, "", args, nil)
		values, err := tags.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, values)
	})

	t.Run("BothAbsentIsEmpty", func(t *testing.T) {
		cfg := newTestConfig(t, "", nil, nil)
		values, err := tags.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{}, values)
	})

	t.Run("BothAbsentMergesAgainstDefault", func(t *testing.T) {
		withDefault := BindSlice[string]("server.tags").Arg("tag").Append().Default([]string{"fallback"})
		cfg := newTestConfig(t, "", nil, nil)
		values, err := withDefault.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"fallback"}, values)
	})

	t.Run("TaggedCommandLineDefaultDoesNotMerge", func(t *testing.T) {
		args := NewArgs(map[string]any{"tag": TaggedDefault{Value: []string{"default"}}})
		cfg := newTestConfig(t, "server:\n  tags:\n    - b\n", args, nil)

		values, err := tags.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, values)
	})

	t.Run("ScalarCommandLineValueDoesNotMerge", func(t *testing.T) {
		args := NewArgs(map[string]any{"tag": "not-a-sequence"})
		cfg := newTestConfig(t, "server:\n  tags:\n    - b\n", args, nil)

		values, err := tags.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, values)
	})
}

func TestAssignRoundTrip(t *testing.T) {
	port := Bind[int]("server.port").Convert(ToInt)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server:\n  port: 8080\n")

	cfg, err := New(path, nil, nil)
	require.NoError(t, err)

	port.Assign(cfg, 9090)

	// Immediately visible on the next read.
	value, err := port.Value(cfg)
	require.NoError(t, err)
	assert.Equal(t, 9090, value)

	require.NoError(t, cfg.Save(""))

	reloaded, err := New(path, nil, nil)
	require.NoError(t, err)
	value, err = port.Value(reloaded)
	require.NoError(t, err)
	assert.Equal(t, 9090, value)
}

// TestWrapBeforeParse covers the committed wrap-step contract with a real
// flag set: a flag declared with default 8080 and wrapped must resolve
// through to the backing store when not supplied, and to the explicit
// value when supplied.
func TestWrapBeforeParse(t *testing.T) {
	port := Bind[int]("server.port").Arg("port").Convert(ToInt)

	parse := func(t *testing.T, arguments ...string) *Args {
		fs := flag.NewFlagSet("app", flag.ContinueOnError)
		fs.String("port", "8080", "server port")
		require.NoError(t, fs.Parse(arguments))
		return FromFlagSet(fs)
	}

	t.Run("UnsuppliedFlagResolvesThroughToStore", func(t *testing.T) {
		cfg := newTestConfig(t, "server:\n  port: 9090\n", parse(t), nil)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 9090, value)
	})

	t.Run("UnsuppliedFlagFallsBackToItsDefault", func(t *testing.T) {
		cfg := newTestConfig(t, "", parse(t), nil)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 8080, value)
	})

	t.Run("SuppliedFlagWinsRegardlessOfStore", func(t *testing.T) {
		cfg := newTestConfig(t, "server:\n  port: 9090\n", parse(t, "--port", "7070"), nil)
		value, err := port.Value(cfg)
		require.NoError(t, err)
		assert.Equal(t, 7070, value)
	})
}

// TestUnwrappedDefaultRegression documents the caveat: when the wrap step
// is skipped, a declared default is indistinguishable from explicit input
// and incorrectly outranks the backing store.
func TestUnwrappedDefaultRegression(t *testing.T) {
	port := Bind[int]("server.port").Arg("port").Convert(ToInt)

	unwrapped := NewArgs(map[string]any{"port": "8080"}) // raw, not TaggedDefault
	cfg := newTestConfig(t, "server:\n  port: 9090\n", unwrapped, nil)

	value, err := port.Value(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8080, value, "unwrapped default shadows the backing store")
}

func TestConversionErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ConversionError{Path: "server.port", Raw: "oops", Err: cause}
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "oops")
	assert.ErrorIs(t, err, cause)
}
