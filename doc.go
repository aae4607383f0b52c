// Package appconf provides typed, declarative configuration binding for Go
// applications. Properties are declared once as bindings and resolved at
// read time from a prioritized chain of providers: explicit in-memory
// assignment, command-line arguments, a hierarchical backing file (YAML,
// TOML or JSON), constructor-level default overrides, and a statically
// declared default.
//
// Features:
//   - Declarative Bind / BindDefault / BindSlice property descriptors
//   - Dot-path addressing into the backing document ("server.host")
//   - Command-line values distinguished from parser defaults via a
//     sentinel-tagged wrap step (TaggedDefault, WrapDefaults, FromFlagSet)
//   - List-valued bindings can union command-line and file values (Append)
//   - Per-read converters with element-wise application over sequences
//   - Write-back: assignments land in the backing document and persist on Save
//   - Private companion files (config_private.yaml) merged at load, with
//     ${dot.path} interpolation and the top-level "private" section stripped
//   - Subtree decoding into structs via Scan
//
// Quick Start:
//
//	var (
//	    host = appconf.BindDefault("server.host", "localhost")
//	    port = appconf.Bind[int]("server.port").Convert(appconf.ToInt).Default(8080)
//	    tags = appconf.BindSlice[string]("server.tags").Arg("tag").Append()
//	)
//
//	fs := flag.NewFlagSet("app", flag.ContinueOnError)
//	fs.String("port", "8080", "server port")
//	fs.Parse(os.Args[1:])
//
//	cfg, err := appconf.New("config.yaml", appconf.FromFlagSet(fs), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h, _ := host.Value(cfg)
//	p, ok, _ := port.Lookup(cfg)
//
// Resolution Precedence (highest to lowest):
//  1. Explicit assignment (binding.Assign / Config.Set)
//  2. Command-line value explicitly supplied by the user
//  3. Backing file value
//  4. Constructor-level default override
//  5. Tagged command-line default
//  6. Binding default
//
// A Config is owned by a single logical goroutine for its lifetime;
// concurrent access is not supported and must be serialized by the
// embedding application. All operations are in-memory except the explicit,
// synchronous Save.
package appconf
