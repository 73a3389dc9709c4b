package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/config"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/report"
	"github.com/sarchlab/csim/sim"
)

// sweptFields are the settings that sweep takes as comma separated lists.
var sweptFields = []string{"nsets", "bsize", "assoc", "repl"}

func newSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Simulate every combination of cache geometries on one trace.",
		Long: "`sweep --nsets 64,256 --assoc 1,2,4 --repl lru,fifo` runs " +
			"every combination of the listed values over the same trace " +
			"and prints a Markdown table of the results.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSweep,
	}

	flags := cmd.Flags()
	flags.StringSlice("nsets", []string{"256"}, "numbers of sets")
	flags.StringSlice("bsize", []string{"4"}, "block sizes in bytes")
	flags.StringSlice("assoc", []string{"1"}, "numbers of ways")
	flags.StringSlice("repl", []string{"lru"}, "replacement policies")
	flags.String("kind", "data", "cache kind: d|data, i|instruction, b|both")
	addTraceFlags(flags)
	flags.String("record", "", "record the runs into <record>.sqlite3")
	flags.String("json", "", "write the reports as JSON to this file")
	flags.String("markdown", "", "write the table to this file")

	return cmd
}

func runSweep(cmd *cobra.Command, _ []string) error {
	base, err := loadConfig(cmd, nil, sweptFields...)
	if err != nil {
		return err
	}

	configs, err := sweepConfigs(cmd, base)
	if err != nil {
		return err
	}

	seed := resolveSeed(base)

	addrs, source, err := loadAddresses(base, seed)
	if err != nil {
		return err
	}

	digest := trace.Digest(addrs)
	flags := cmd.Flags()

	recordPath, _ := flags.GetString("record")

	recorder, err := openRecorder(recordPath)
	if err != nil {
		return err
	}

	runIDs := sim.NewSequentialIDGenerator()
	sweepID := sim.NewUniqueIDGenerator().Generate()
	reports := make([]report.Report, 0, len(configs))

	for _, cfg := range configs {
		cacheConfig := cfg.CacheConfig()

		comp := cache.MakeBuilder().
			WithConfig(cacheConfig).
			WithSeed(seed).
			Build(comboName(cacheConfig))
		comp.Run(addrs)

		rep := report.New(comp, source, digest)
		rep.RunID = sweepID + "-" + runIDs.Generate()
		reports = append(reports, rep)

		if recorder != nil {
			report.Record(recorder, rep)
		}
	}

	out := cmd.OutOrStdout()

	err = report.WriteMarkdown(out, reports)
	if err != nil {
		return err
	}

	best := reports[report.Best(reports)]
	fmt.Fprintf(out, "\nBest hit rate: %s (%.2f%%), seed %d\n",
		best.Name, best.Rates.Hit*100, seed)

	if recorder != nil {
		err = recorder.Close()
		if err != nil {
			return fmt.Errorf("cannot close recording: %w", err)
		}
	}

	return writeSweepFiles(cmd, reports)
}

// sweepConfigs expands the listed values into one validated Config per
// combination. A list that is not given on the command line keeps the value
// of base.
func sweepConfigs(cmd *cobra.Command, base config.Config) ([]config.Config, error) {
	lists := make([][]string, len(sweptFields))

	for i, name := range sweptFields {
		if cmd.Flags().Changed(name) {
			lists[i], _ = cmd.Flags().GetStringSlice(name)
		} else {
			lists[i] = []string{baseValue(base, name)}
		}
	}

	configs := []config.Config{base}

	for i, name := range sweptFields {
		expanded := make([]config.Config, 0, len(configs)*len(lists[i]))

		for _, cfg := range configs {
			for _, raw := range lists[i] {
				c := cfg

				err := c.Set(name, raw)
				if err != nil {
					return nil, err
				}

				expanded = append(expanded, c)
			}
		}

		configs = expanded
	}

	for _, cfg := range configs {
		err := cfg.Validate()
		if err != nil {
			return nil, err
		}
	}

	return configs, nil
}

func baseValue(base config.Config, name string) string {
	switch name {
	case "nsets":
		return strconv.Itoa(base.NumSets)
	case "bsize":
		return strconv.Itoa(base.BlockSize)
	case "assoc":
		return strconv.Itoa(base.Associativity)
	case "repl":
		return base.Replacement
	default:
		panic("not a swept field " + name)
	}
}

func comboName(c cache.Config) string {
	return fmt.Sprintf("Cache[%dx%dBx%d,%s]",
		c.NumSets, c.BlockSize, c.WayAssociativity, c.ReplacementPolicy)
}

func writeSweepFiles(cmd *cobra.Command, reports []report.Report) error {
	flags := cmd.Flags()

	jsonPath, _ := flags.GetString("json")
	if jsonPath != "" {
		err := report.WriteJSON(jsonPath, reports)
		if err != nil {
			return err
		}
	}

	markdownPath, _ := flags.GetString("markdown")
	if markdownPath != "" {
		return report.WriteMarkdownFile(markdownPath, reports)
	}

	return nil
}
