// Package cmd provides the command-line interface of csim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/config"
)

// NewRootCommand creates the csim command, which simulates one cache over
// one trace, together with its subcommands.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "csim [nsets bsize assoc repl verbosity input_file]",
		Short: "csim simulates a set-associative cache over a trace of " +
			"memory addresses.",
		Long: `csim simulates a set-associative cache over a trace of ` +
			`memory addresses and classifies every miss as compulsory, ` +
			`capacity or conflict. The trace is read from a file of ` +
			`big-endian 32-bit words or generated from a seed. Settings ` +
			`come from flags, positional arguments, CSIM_* environment ` +
			`variables and a JSON config file, in that order of priority.`,
		Args:          cobra.MaximumNArgs(len(config.PositionalFields)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSimulation,
	}

	flags := cmd.Flags()
	addGeometryFlags(flags)
	addTraceFlags(flags)
	flags.String("verbosity", "1",
		"0 prints a report, 1 a summary line, 2 every access and a report")
	flags.String("record", "", "record the run into <record>.sqlite3")
	flags.String("json", "", "write the report as JSON to this file")
	flags.Bool("reference", false,
		"also run a fully-associative LRU cache of the same size")
	flags.Bool("monitor", false, "serve the progress of the run over HTTP")
	flags.Int("monitor-port", 0, "port of the monitoring server")
	flags.Bool("open", false, "open the monitoring page in a browser")

	cmd.PersistentFlags().String("config", "",
		"JSON config file, comments and trailing commas allowed")

	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newSweepCommand())

	return cmd
}

// Execute runs the command line and exits the process.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func addGeometryFlags(flags *pflag.FlagSet) {
	flags.String("nsets", "256", "number of sets, a power of 2")
	flags.String("bsize", "4", "block size in bytes, a power of 2")
	flags.String("assoc", "1", "number of ways per set, a power of 2")
	flags.String("repl", "lru", "replacement policy: l|lru, f|fifo, r|random")
	flags.String("kind", "data", "cache kind: d|data, i|instruction, b|both")
}

func addTraceFlags(flags *pflag.FlagSet) {
	flags.String("input", "", "trace file; .zst files are decompressed")
	addWorkloadFlags(flags)
}

func addWorkloadFlags(flags *pflag.FlagSet) {
	flags.String("size", "100000", "number of generated addresses")
	flags.String("seed", "", "seed of the generator and of random replacement")
	flags.String("pattern", "uniform",
		"generated pattern: uniform, sequential, zipf")
	flags.String("span", "0",
		"address range of uniform and sequential, distinct blocks of zipf")
	flags.String("stride", "4", "step of sequential and block size of zipf")
}

func loadConfig(
	cmd *cobra.Command,
	args []string,
	ignore ...string,
) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	return config.Load(config.LoadInput{
		ConfigPath: configPath,
		DotEnvPath: config.DotEnvFileName,
		Args:       args,
		Flags:      cmd.Flags(),
		Ignore:     ignore,
	})
}
