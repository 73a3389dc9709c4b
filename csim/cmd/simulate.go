package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand/v2"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/analysis"
	"github.com/sarchlab/csim/config"
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/mem/trace/workload"
	"github.com/sarchlab/csim/monitoring"
	"github.com/sarchlab/csim/report"
	"github.com/sarchlab/csim/sim"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	seed := resolveSeed(cfg)

	addrs, source, err := loadAddresses(cfg, seed)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	flags := cmd.Flags()
	runID := sim.NewUniqueIDGenerator().Generate()

	comp := cache.MakeBuilder().
		WithConfig(cfg.CacheConfig()).
		WithSeed(seed).
		Build("Cache")

	if cfg.Verbosity == 2 {
		comp.AcceptHook(cache.NewAccessLogger(log.New(out, "", 0), comp.Decoder()))
	}

	recordPath, _ := flags.GetString("record")

	recorder, err := openRecorder(recordPath)
	if err != nil {
		return err
	}

	if recorder != nil {
		comp.AcceptHook(trace.NewDBTracer(recorder, runID))
	}

	var reference *analysis.ReferenceModel

	if withReference, _ := flags.GetBool("reference"); withReference {
		reference = analysis.NewReferenceModel(cfg.CacheConfig())
		comp.AcceptHook(reference)
	}

	tracker, err := startMonitor(cmd, cfg, comp, len(addrs))
	if err != nil {
		return err
	}

	comp.Run(addrs)

	if tracker != nil {
		tracker.Finish()
	}

	rep := report.New(comp, source, trace.Digest(addrs))
	rep.RunID = runID

	if reference != nil {
		breakdown := reference.Breakdown(comp.Performance())
		rep.Reference = &breakdown
	}

	err = writeReport(out, cfg.Verbosity, rep)
	if err != nil {
		return err
	}

	// Stdout keeps the single summary line; a drawn seed goes to stderr.
	if cfg.Seed == nil && cfg.Verbosity == 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "seed: %d\n", seed)
	}

	if recorder != nil {
		report.Record(recorder, rep)

		err = recorder.Close()
		if err != nil {
			return fmt.Errorf("cannot close recording: %w", err)
		}
	}

	jsonPath, _ := flags.GetString("json")
	if jsonPath != "" {
		return report.WriteJSON(jsonPath, rep)
	}

	return nil
}

func writeReport(out io.Writer, verbosity int, rep report.Report) error {
	if verbosity == 1 {
		return report.WriteSummary(out, rep.Performance)
	}

	return report.WriteDump(out, rep)
}

// resolveSeed returns the configured seed, or draws one so that the run can
// be replayed from its report.
func resolveSeed(cfg config.Config) uint64 {
	if cfg.Seed != nil {
		return *cfg.Seed
	}

	return rand.Uint64()
}

// loadAddresses reads the trace file, or generates the trace when no file is
// configured. It also describes where the trace comes from.
func loadAddresses(cfg config.Config, seed uint64) ([]uint32, string, error) {
	if !cfg.Synthetic() {
		addrs, err := trace.Load(cfg.Input)
		if err != nil {
			return nil, "", err
		}

		return addrs, cfg.Input, nil
	}

	addrs := workload.Generate(cfg.WorkloadSpec(seed))
	source := fmt.Sprintf("%s pattern, %s addresses",
		cfg.Pattern, humanize.Comma(int64(cfg.Size)))

	return addrs, source, nil
}

func openRecorder(path string) (datarecording.DataRecorder, error) {
	if path == "" {
		return nil, nil
	}

	filename := path + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		return nil, fmt.Errorf("recording %s already exists", filename)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot check recording %s: %w", filename, err)
	}

	return datarecording.New(path), nil
}

func startMonitor(
	cmd *cobra.Command,
	cfg config.Config,
	comp *cache.Comp,
	total int,
) (*monitoring.CacheTracker, error) {
	flags := cmd.Flags()

	if enabled, _ := flags.GetBool("monitor"); !enabled {
		return nil, nil
	}

	port, _ := flags.GetInt("monitor-port")

	monitor := monitoring.NewMonitor().WithPortNumber(port)
	monitor.RegisterSettings(cfg)
	tracker := monitor.TrackCache(comp, uint64(total))

	url := monitor.StartServer()

	if open, _ := flags.GetBool("open"); open {
		err := monitoring.OpenInBrowser(url)
		if err != nil {
			return nil, fmt.Errorf("cannot open %s: %w", url, err)
		}
	}

	return tracker, nil
}
