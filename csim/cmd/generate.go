package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/mem/trace/workload"
)

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate -o <file>",
		Short: "Write a generated trace to a file.",
		Long: "`generate -o trace.bin` writes a trace of big-endian 32-bit " +
			"addresses. A name ending in .zst writes a compressed trace.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}

	flags := cmd.Flags()
	addWorkloadFlags(flags)
	flags.StringP("output", "o", "", "trace file to write")

	err := cmd.MarkFlagRequired("output")
	if err != nil {
		panic(err)
	}

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	// A trace file set in the environment does not apply here.
	cfg.Input = ""

	err = cfg.Validate()
	if err != nil {
		return err
	}

	seed := resolveSeed(cfg)
	addrs := workload.Generate(cfg.WorkloadSpec(seed))

	output, _ := cmd.Flags().GetString("output")

	err = trace.Write(output, addrs)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Wrote %s addresses to %s (seed %d, digest 0x%016x)\n",
		humanize.Comma(int64(len(addrs))), output, seed, trace.Digest(addrs))

	return nil
}
