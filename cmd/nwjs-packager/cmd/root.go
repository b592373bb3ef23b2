package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/service/packager"
	"github.com/oshokin/nwjs-packager/internal/service/runner"
	"github.com/oshokin/nwjs-packager/internal/version"
)

// cliFlags holds raw flag values before they become a configuration layer.
type cliFlags struct {
	configPath    string
	run           bool
	platforms     []string
	outputDir     string
	nwVersion     string
	nwFlavor      string
	cacheDir      string
	concurrency   int
	forceDownload bool
	logLevel      string
	metricsFile   string
	mirrorURL     string
}

var (
	flags cliFlags

	// rootCmd packages the app in the working directory, or runs it with --run.
	rootCmd = &cobra.Command{
		Use:           "nwjs-packager",
		Short:         "Package an NW.js app for Windows, macOS and Linux",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if err := applyLogLevel(flags.logLevel); err != nil {
				return err
			}

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}

			overrides := overridesFromFlags(cmd.Flags(), &flags)

			if flags.run {
				return runner.Run(ctx, &runner.Options{
					BaseDir:    workDir,
					ConfigPath: flags.configPath,
					Flags:      overrides,
					MirrorURL:  flags.mirrorURL,
					Stdout:     cmd.OutOrStdout(),
					Stderr:     cmd.ErrOrStderr(),
				})
			}

			return packager.Run(ctx, &packager.Options{
				BaseDir:     workDir,
				ConfigPath:  flags.configPath,
				Flags:       overrides,
				MetricsFile: flags.metricsFile,
				MirrorURL:   flags.mirrorURL,
			})
		},
	}
)

// Execute runs the nwjs-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

func applyLogLevel(value string) error {
	level, ok := logger.ParseLogLevel(value)
	if !ok {
		return fmt.Errorf("unknown log level %q", value)
	}

	logger.SetLevel(level)

	return nil
}

// overridesFromFlags keeps only the flags given explicitly, so unset flags
// never shadow values from package.json or the YAML file.
func overridesFromFlags(set *pflag.FlagSet, f *cliFlags) config.Overrides {
	var o config.Overrides

	if set.Changed("platforms") {
		o.Platforms = f.platforms
	}

	if set.Changed("output") {
		o.OutputDir = &f.outputDir
	}

	if set.Changed("nw-version") {
		o.NwVersion = &f.nwVersion
	}

	if set.Changed("nw-flavor") {
		o.NwFlavor = &f.nwFlavor
	}

	if set.Changed("cache-dir") {
		o.CacheDir = &f.cacheDir
	}

	if set.Changed("concurrency") {
		o.Concurrency = &f.concurrency
	}

	if set.Changed("force-download") {
		o.ForceDownload = &f.forceDownload
	}

	return o
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	fs := rootCmd.Flags()
	fs.StringVarP(&flags.configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	fs.BoolVarP(&flags.run, "run", "r", false, "run the app with the SDK runtime instead of packaging it")
	fs.StringSliceVarP(&flags.platforms, "platforms", "p", nil, "targets to package, e.g. win-x64,osx-x64,linux-ia32")
	fs.StringVarP(&flags.outputDir, "output", "o", "", "directory receiving app directories and artifacts")
	fs.StringVar(&flags.nwVersion, "nw-version", "", "runtime version or channel: stable, latest, lts")
	fs.StringVar(&flags.nwFlavor, "nw-flavor", "", "runtime flavor: normal or sdk")
	fs.StringVar(&flags.cacheDir, "cache-dir", "", "directory caching runtime downloads")
	fs.IntVar(&flags.concurrency, "concurrency", 0, "maximum targets packaged at once, 0 means unlimited")
	fs.BoolVar(&flags.forceDownload, "force-download", false, "download runtimes even when cached")
	fs.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	fs.StringVar(&flags.mirrorURL, "mirror", "", "NW.js download mirror URL")
}
