package command

import (
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rcuht-go/internal/bench"
	"github.com/yndnr/rcuht-go/internal/cli/output"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
)

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure lookup throughput while a writer churns keys",
		Description: "One reader runs on every core but the last, which runs the writer.\n" +
			"Readers look up key 0; the writer inserts and removes keys 0..objects-1.",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:    "cores",
				Aliases: []string{"c"},
				Usage:   "Cores to use; the last one runs the writer",
			},
			&cli.UintFlag{
				Name:    "objects",
				Aliases: []string{"o"},
				Usage:   "Keys inserted and removed per writer iteration",
				Value:   1,
			},
			&cli.IntFlag{
				Name:    "seconds",
				Aliases: []string{"s"},
				Usage:   "Run time in seconds",
				Value:   10,
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Table under test: rcu, rwlock, sharded",
				Value:   string(bench.ModeRCU),
			},
			&cli.BoolFlag{
				Name:  "pin",
				Usage: "Pin each worker to its core",
			},
			&cli.DurationFlag{
				Name:  "write-interval",
				Usage: "Writer pause between iterations",
			},
			&cli.Uint64Flag{
				Name:  "buckets",
				Usage: "Bucket count (rcu) or shard count (sharded); a power of two",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Print Prometheus metrics after the report",
			},
		},
		Action: benchAction,
	}
}

var benchBindings = []binding{
	{"cores", "bench.cores", ints},
	{"objects", "bench.objects", func(c *cli.Context, name string) any { return c.Uint(name) }},
	{"seconds", "bench.seconds", integer},
	{"mode", "bench.mode", str},
	{"pin", "bench.pin", boolean},
	{"write-interval", "bench.write_interval", duration},
	{"buckets", "bench.buckets", uinteger},
	{"metrics", "metrics.dump", boolean},
}

func benchAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c, benchBindings)
	if err != nil {
		return err
	}
	run, err := cfg.BenchRun()
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, h, stop, err := start(c, cfg, log)
	if err != nil {
		return err
	}
	defer stop()
	defer h.Shutdown()

	// Samples go to stdout only when the report is a table, so JSON and
	// YAML output stay parseable.
	sampleOut := c.App.Writer
	if cfg.Output != string(output.FormatTable) {
		sampleOut = c.App.ErrWriter
	}

	runner, err := bench.NewRunner(run,
		bench.WithLogger(log),
		bench.WithMetrics(metric.Global()),
		bench.WithSampleFunc(func(s bench.Sample) {
			fmt.Fprintln(sampleOut, s.String())
		}))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Output == string(output.FormatTable) {
		err = reportView{rep}.write(c.App.Writer)
	} else {
		err = render(c, cfg, rep)
	}
	if err != nil {
		return err
	}
	if cfg.Metrics.Dump {
		return metric.Global().WriteText(c.App.Writer)
	}
	return nil
}

// reportView renders a bench report as a per-reader table followed by the
// run average.
type reportView struct {
	*bench.Report
}

// Table lists lookups per second for each reader.
func (v reportView) Table() *output.Table {
	t := &output.Table{Headers: []string{"CORE", "READS/S", "NOT_FOUND/S", "FOUND/S"}}
	n := uint64(max(v.Seconds, 1))
	for _, r := range v.Readers {
		t.AddRow(strconv.Itoa(r.Core),
			strconv.FormatUint(r.Total()/n, 10),
			strconv.FormatUint(r.NotFound/n, 10),
			strconv.FormatUint(r.Found/n, 10))
	}
	avg := v.PerSecond()
	t.AddRow("total",
		strconv.FormatUint(avg.Total(), 10),
		strconv.FormatUint(avg.NotFound, 10),
		strconv.FormatUint(avg.Found, 10))
	return t
}

// write renders the table, then the run ID and the summary line.
func (v reportView) write(w io.Writer) error {
	if err := v.Table().Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nrun %s (%s, %d writer iterations)\n%s\n",
		v.RunID, v.Mode, v.Iterations, v.String())
	return err
}
