package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/vantage-health/visor/pkg/bundle"
	"github.com/vantage-health/visor/pkg/config"
	"github.com/vantage-health/visor/pkg/data"
	"github.com/vantage-health/visor/pkg/logging"
	"github.com/vantage-health/visor/pkg/pipeline"
)

const (
	appName      = "visor"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Inference history DSN (sqlite path or postgres:// URL)",
	}

	bundleFlag = &urfave.StringFlag{
		Name:  "bundle",
		Usage: "Path to the model bundle file (default: embedded vision-health bundle)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Home   string
	Conf   *config.Config
	Bundle string
	DSN    string
	Store  *data.Store
	Debug  bool
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 appName,
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Vision-health risk inference from fitted model bundles",
		Flags: []urfave.Flag{
			debugFlag,
			dbFlag,
			bundleFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			predictCmd,
			batchCmd,
			serveCmd,
			modelCmd,
			historyCmd,
			authCmd,
			resetCmd,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(debugFlag.Name) {
				logging.SetDefaultCLILogger("debug")
			}

			f := c.String(formatFlag.Name)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			home, _, err := config.GetOrCreateHomeDir(appName)
			if err != nil {
				return fmt.Errorf("resolving app home: %w", err)
			}

			conf, err := config.ReadOrCreate(home)
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}

			dsn := c.String(dbFlag.Name)
			if dsn == "" {
				dsn = conf.DB
			}
			if dsn == "" {
				dsn = path.Join(home, data.DataFileName)
			}

			store, err := data.Init(dsn)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			bundlePath := c.String(bundleFlag.Name)
			if bundlePath == "" {
				bundlePath = conf.Bundle
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				Home:   home,
				Conf:   conf,
				Bundle: bundlePath,
				DSN:    dsn,
				Store:  store,
				Debug:  c.Bool(debugFlag.Name),
			}
			return nil
		},
		After: func(c *urfave.Context) error {
			if cfg, ok := c.App.Metadata[appConfigKey].(*appConfig); ok && cfg.Store != nil {
				cfg.Store.Close()
			}
			return nil
		},
	}
}

// loadBundle resolves the configured bundle: an explicit file path, or the
// embedded default when none is set.
func loadBundle(cfg *appConfig) (*bundle.Bundle, error) {
	if cfg.Bundle == "" {
		return bundle.Default()
	}
	return bundle.Load(cfg.Bundle)
}

// loadPipeline assembles the inference pipeline from the configured bundle.
// A bundle that fails to load or build is fatal for the command: no
// inference is served against partially loaded artifacts.
func loadPipeline(cfg *appConfig) (*pipeline.Pipeline, *bundle.Bundle, error) {
	b, err := loadBundle(cfg)
	if err != nil {
		return nil, nil, err
	}
	p, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("model bundle loaded", "name", b.Name, "version", b.Version, "origin", b.Origin())
	return p, b, nil
}

// resolveThreshold picks the decision threshold: explicit flag first, then
// app config, then the bundle's fitted default.
func resolveThreshold(c *urfave.Context, cfg *appConfig, p *pipeline.Pipeline) float64 {
	if c.IsSet(thresholdFlag.Name) {
		return c.Float64(thresholdFlag.Name)
	}
	if cfg.Conf != nil && cfg.Conf.Threshold > 0 {
		return cfg.Conf.Threshold
	}
	return p.DefaultThreshold()
}

func encode(v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(os.Stdout).Encode(v)
	}
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
