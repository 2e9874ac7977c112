package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rcuht-go/internal/cli/config"
	"github.com/yndnr/rcuht-go/internal/cli/output"
	"github.com/yndnr/rcuht-go/internal/infra/buildinfo"
	"github.com/yndnr/rcuht-go/internal/infra/shutdown"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

// shutdownTimeout bounds the cleanup hooks run when a command ends.
const shutdownTimeout = 5 * time.Second

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "rcuht-bench",
		Usage:   "Benchmark and soak-test the RCU hash table",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			BenchCommand(),
			SoakCommand(),
			ConfigCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"RCUHT_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address (e.g. :9090)",
		},
	}
}

// binding maps a flag to the config key it overrides.
type binding struct {
	flag string
	key  string
	get  func(c *cli.Context, name string) any
}

func str(c *cli.Context, name string) any      { return c.String(name) }
func integer(c *cli.Context, name string) any  { return c.Int(name) }
func uinteger(c *cli.Context, name string) any { return c.Uint64(name) }
func boolean(c *cli.Context, name string) any  { return c.Bool(name) }
func duration(c *cli.Context, name string) any { return c.Duration(name) }
func float(c *cli.Context, name string) any    { return c.Float64(name) }
func ints(c *cli.Context, name string) any     { return c.IntSlice(name) }

var globalBindings = []binding{
	{"log-level", "log.level", str},
	{"log-format", "log.format", str},
	{"output", "output", str},
	{"metrics-addr", "metrics.address", str},
}

// overrides collects the explicitly set flags as config keys.
func overrides(c *cli.Context, bindings []binding) map[string]any {
	m := make(map[string]any)
	for _, b := range append(globalBindings, bindings...) {
		if c.IsSet(b.flag) {
			m[b.key] = b.get(c, b.flag)
		}
	}
	return m
}

// loadConfig loads the configuration and installs the configured logger
// as the default.
func loadConfig(c *cli.Context, bindings []binding) (*config.Config, logger.Logger, error) {
	cfg, sources, err := config.Load(c.String("config"), overrides(c, bindings))
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}

	logCfg := cfg.Log
	logCfg.Output = c.App.ErrWriter
	if logCfg.Output == nil {
		logCfg.Output = os.Stderr
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	logger.SetDefault(log)
	log.Debug("configuration loaded", "file", c.String("config"), "sources", sources)
	return cfg, log, nil
}

// serveMetrics serves the global registry on addr until the handler
// shuts down. It returns the bound address.
func serveMetrics(addr string, log logger.Logger, h *shutdown.Handler) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metric.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	h.OnShutdown("metrics server", srv.Shutdown)

	log.Info("serving metrics", "address", ln.Addr().String())
	return ln.Addr().String(), nil
}

// render writes data in the configured output format.
func render(c *cli.Context, cfg *config.Config, data any) error {
	format, _ := output.ParseFormat(cfg.Output)
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// start prepares signal handling and the optional metrics endpoint.
func start(c *cli.Context, cfg *config.Config, log logger.Logger) (context.Context, *shutdown.Handler, context.CancelFunc, error) {
	h := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(log))
	ctx, stop := h.Notify(c.Context)
	if cfg.Metrics.Address != "" {
		if _, err := serveMetrics(cfg.Metrics.Address, log, h); err != nil {
			stop()
			return nil, nil, nil, err
		}
	}
	return ctx, h, stop, nil
}
