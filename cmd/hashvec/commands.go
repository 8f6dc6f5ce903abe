package main

import (
	"github.com/spf13/cobra"

	"github.com/mmozeiko/overflow/internal/logtrace"
)

func newGenerateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Fetch missing archives and write every header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags)
		},
	}
}

func runGenerate(cmd *cobra.Command, flags *globalFlags) error {
	g, err := newGenerator(flags)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	rep, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep)
	logtrace.Info(ctx, "generation complete", logtrace.Fields{logtrace.FieldRecords: len(rep.Files)})
	return nil
}

func newFetchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the source archives if they are not cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := newGenerator(flags)
			if err != nil {
				return err
			}
			return g.Fetch(commandContext(cmd))
		},
	}
}

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that generated headers match the cached archives",
		Long: `verify re-renders every header from the cached archives without touching
the network and compares it with the files in the output directory and with
manifest.yaml. Any difference is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := newGenerator(flags)
			if err != nil {
				return err
			}
			rep, err := g.Verify(commandContext(cmd))
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}
