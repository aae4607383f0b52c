// Demonstrates typed configuration binding end to end: a YAML backing
// file, kingpin-parsed command-line flags with explicit-vs-default
// tracking, assignment write-back and persistence.
package main

import (
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"appconf"
)

// Bindings are declared once and shared by every Config instance.
var (
	host = appconf.BindDefault("server.host", "localhost").Arg("host")
	port = appconf.Bind[int]("server.port").Arg("port").Convert(appconf.ToInt).Default(8080)
	tags = appconf.BindSlice[string]("server.tags").Arg("tag").Append()
)

const initialConfig = `server:
  host: config-file.example.com
  port: 9090
  tags:
    - from-file
`

func main() {
	logger := zap.Must(zap.NewDevelopment())
	defer logger.Sync()

	dir, err := os.MkdirTemp("", "appconf-demo")
	if err != nil {
		logger.Fatal("failed to create working directory", zap.Error(err))
	}
	defer os.RemoveAll(dir)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		logger.Fatal("failed to seed config file", zap.Error(err))
	}
	logger.Info("seeded backing file", zap.String("path", configPath))

	// Parse flags with kingpin, tracking which ones the user actually set
	// so declared defaults don't outrank the backing file.
	app := kingpin.New("appconf-demo", "Typed declarative configuration binding demo")
	var hostSet, portSet bool
	hostFlag := app.Flag("host", "Server host").Default("0.0.0.0").IsSetByUser(&hostSet).String()
	portFlag := app.Flag("port", "Server port").Default("8080").IsSetByUser(&portSet).String()
	tagFlag := app.Flag("tag", "Deployment tag (repeatable)").Strings()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	values := map[string]any{
		"host": appconf.TaggedDefault{Value: *hostFlag},
		"port": appconf.TaggedDefault{Value: *portFlag},
	}
	if hostSet {
		values["host"] = *hostFlag
	}
	if portSet {
		values["port"] = *portFlag
	}
	if len(*tagFlag) > 0 {
		values["tag"] = *tagFlag
	}

	cfg, err := appconf.New(configPath, appconf.NewArgs(values), nil)
	if err != nil {
		logger.Fatal("failed to construct config", zap.Error(err))
	}

	h, err := host.Value(cfg)
	if err != nil {
		logger.Fatal("failed to resolve server.host", zap.Error(err))
	}
	p, err := port.Value(cfg)
	if err != nil {
		logger.Fatal("failed to resolve server.port", zap.Error(err))
	}
	tg, err := tags.Value(cfg)
	if err != nil {
		logger.Fatal("failed to resolve server.tags", zap.Error(err))
	}
	logger.Info("resolved configuration",
		zap.String("server.host", h),
		zap.Int("server.port", p),
		zap.Strings("server.tags", tg),
	)

	// Explicit assignment wins on the next read and persists on Save.
	port.Assign(cfg, 7070)
	if err := cfg.Save(""); err != nil {
		logger.Fatal("failed to save config", zap.Error(err))
	}

	reloaded, err := appconf.New(configPath, nil, nil)
	if err != nil {
		logger.Fatal("failed to reload config", zap.Error(err))
	}
	p, err = port.Value(reloaded)
	if err != nil {
		logger.Fatal("failed to resolve server.port after reload", zap.Error(err))
	}
	logger.Info("round-tripped assignment", zap.Int("server.port", p))
}
