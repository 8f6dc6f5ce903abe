package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mmozeiko/overflow/config"
	"github.com/mmozeiko/overflow/generator"
	"github.com/mmozeiko/overflow/internal/logtrace"
	"github.com/mmozeiko/overflow/vector"
)

var (
	// Version info set with -ldflags
	appVersion   = "dev"
	appGitCommit = "unknown"
)

type globalFlags struct {
	configPath string
	cacheDir   string
	outDir     string
	debug      bool
}

func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fields := logtrace.Fields{logtrace.FieldError: err.Error()}
		if id := vector.RuleID(err); id != "" {
			fields[logtrace.FieldRuleID] = id
		}
		logtrace.Error(context.Background(), "hashvec failed", fields)
		logtrace.Sync()
		return 1
	}
	logtrace.Sync()
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "hashvec",
		Short: "Regenerate hash test vector headers from NIST archives",
		Long: `hashvec downloads the NIST NSRL MD5 and CAVP SHA byte test vector archives
(once; cached archives are reused), parses them and writes one C initializer
header per hash:

  md5_nsrl.h sha1_cavp.h sha224_cavp.h sha256_cavp.h sha384_cavp.h sha512_cavp.h

Running without a sub-command is the same as 'hashvec generate'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "info"
			if flags.debug {
				level = "debug"
			}
			logtrace.Setup(level, errOut)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Optional YAML config file")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "Archive cache directory (default: .)")
	root.PersistentFlags().StringVar(&flags.outDir, "out-dir", "", "Output directory for headers (default: generated)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newGenerateCmd(flags),
		newFetchCmd(flags),
		newVerifyCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig applies, in order: defaults, the --config file, then flags.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.cacheDir != "" {
		cfg.CacheDir = flags.cacheDir
	}
	if flags.outDir != "" {
		cfg.OutDir = flags.outDir
	}
	return cfg, cfg.Validate()
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logtrace.CtxWithCorrelationID(ctx, uuid.NewString())
}

func newGenerator(flags *globalFlags) (*generator.Generator, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return generator.New(cfg), nil
}

func printReport(w io.Writer, rep *generator.Report) {
	for _, e := range rep.Files {
		fmt.Fprintf(w, "%-14s %6d records  %s\n", e.Name, e.Records, e.CID)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hashvec %s (%s)\n", appVersion, appGitCommit)
		},
	}
}
