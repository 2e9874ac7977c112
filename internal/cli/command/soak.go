package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rcuht-go/internal/bench"
	"github.com/yndnr/rcuht-go/internal/cli/config"
	"github.com/yndnr/rcuht-go/internal/infra/confloader"
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

// SoakCommand returns the soak command.
func SoakCommand() *cli.Command {
	return &cli.Command{
		Name:  "soak",
		Usage: "Race random readers against a writer and check for use-after-reclaim",
		Description: "Runs until --duration elapses or SIGINT. With --config, edits to the\n" +
			"file's log.level take effect while the soak runs.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "How long to run",
			},
			&cli.IntFlag{
				Name:    "readers",
				Aliases: []string{"r"},
				Usage:   "Number of reader goroutines",
			},
			&cli.IntFlag{
				Name:  "keys",
				Usage: "Size of the key space",
			},
			&cli.Float64Flag{
				Name:  "write-rate",
				Usage: "Writer operations per second (0 = unlimited)",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed",
			},
		},
		Action: soakAction,
	}
}

var soakBindings = []binding{
	{"duration", "soak.duration", duration},
	{"readers", "soak.readers", integer},
	{"keys", "soak.keys", integer},
	{"write-rate", "soak.write_rate", float},
	{"seed", "soak.seed", uinteger},
}

func soakAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c, soakBindings)
	if err != nil {
		return err
	}
	run, err := cfg.SoakRun()
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, h, stop, err := start(c, cfg, log)
	if err != nil {
		return err
	}
	defer stop()
	defer h.Shutdown()

	if path := c.String("config"); path != "" {
		if err := watchLogLevel(path, overrides(c, soakBindings), log, h.OnShutdown); err != nil {
			log.Warn("config reload disabled", "error", err)
		}
	}

	rep, err := bench.Soak(ctx, run,
		bench.WithLogger(log),
		bench.WithMetrics(metric.Global()))
	if err != nil {
		return err
	}
	if err := render(c, cfg, rep); err != nil {
		return err
	}
	if !rep.OK() {
		return cli.Exit(fmt.Sprintf("soak found %d violations", rep.Violations), 1)
	}
	return nil
}

// watchLogLevel reloads path on every write and applies its log level.
func watchLogLevel(path string, flags map[string]any, log logger.Logger, onShutdown func(string, func(context.Context) error)) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(string) {
		cfg, _, err := config.Load(path, flags)
		if err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if cfg.Log.Level == logger.GetLevel() {
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level changed", "level", cfg.Log.Level)
	})
	w.StartAsync()
	onShutdown("config watcher", func(context.Context) error { return w.Stop() })
	return nil
}
