package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hurricup/leaks-collector/pkg/config"
	"github.com/hurricup/leaks-collector/pkg/pprof"
	"github.com/hurricup/leaks-collector/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
	cfg    *config.Config

	// Pprof flags, for profiling the collector's own walk over a large
	// snapshot.
	pprofEnabled     bool
	pprofMode        string
	pprofDir         string
	pprofProfiles    string
	pprofInterval    string
	pprofCPUDuration string
	pprofCPURate     int
	pprofAddr        string

	pprofCollector *pprof.Collector
)

// rootCmd is the "analyze" action itself: spec.md §6 describes a single
// positional snapshot-path argument with no subcommand, so invoking the
// binary bare (`leaks-collector <snapshot>`) runs the analysis in
// runAnalyze. There is no separate `analyze` subcommand; `version` is the
// only subcommand.
var rootCmd = &cobra.Command{
	Use:   "leaks-collector [snapshot]",
	Short: "Explain why leaked heap objects are still reachable",
	Long: `leaks-collector analyzes a binary JVM heap snapshot and explains why
specific "leaked" objects remain reachable, by producing a small set of
diverse, human-readable reference chains from GC roots to each one.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stderr)

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		if pprofEnabled {
			pcfg, err := buildPprofConfig()
			if err != nil {
				return err
			}
			collector, err := pprof.NewCollector(pcfg)
			if err != nil {
				return err
			}
			if err := collector.Start(); err != nil {
				return err
			}
			pprofCollector = collector
			logger.Info("pprof collection started (mode: %s, dir: %s)", pcfg.Mode, pcfg.OutputDir)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if pprofCollector != nil {
			logger.Info("stopping pprof collection")
			if err := pprofCollector.Stop(); err != nil {
				logger.Warn("failed to stop pprof collector: %v", err)
			}
		}
		return nil
	},
	RunE: runAnalyze,
	// The report is the payload on stdout; usage/errors belong on stderr
	// and should not also dump the full help text on every failure.
	SilenceUsage: true,
}

// Execute runs the root command, exiting non-zero on any error (spec.md §6:
// invocation errors print to stderr and exit non-zero).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (defaults to built-in tunables)")

	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "enable self-profiling of the collector")
	rootCmd.PersistentFlags().StringVar(&pprofMode, "pprof-mode", "file", "pprof mode: file (periodic snapshots) or http (on-demand)")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "output directory for pprof data")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")
	rootCmd.PersistentFlags().StringVar(&pprofInterval, "pprof-interval", "30s", "snapshot interval for file mode")
	rootCmd.PersistentFlags().StringVar(&pprofCPUDuration, "pprof-cpu-duration", "10s", "CPU profile duration per snapshot")
	rootCmd.PersistentFlags().IntVar(&pprofCPURate, "pprof-cpu-rate", 100, "CPU profiling rate in Hz")
	rootCmd.PersistentFlags().StringVar(&pprofAddr, "pprof-addr", ":6060", "HTTP listen address for http mode")

	registerAnalyzeFlags(rootCmd)

	binName := BinName()
	rootCmd.Example = `  # Explain why the instances a prior triage marked as leaked are retained
  ` + binName + ` heap.hprof --targets 0x7f3a1000,0x7f3a1100

  # Same, with target ids read one-per-line from a file
  ` + binName + ` heap.hprof --targets-file leaked-ids.txt

  # Machine-readable output for downstream tooling
  ` + binName + ` heap.hprof --targets-file leaked-ids.txt --format json`
}

// GetLogger returns the configured logger, available after PersistentPreRunE.
func GetLogger() utils.Logger {
	return logger
}

// GetConfig returns the loaded configuration, available after PersistentPreRunE.
func GetConfig() *config.Config {
	return cfg
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

func buildPprofConfig() (*pprof.Config, error) {
	pcfg := pprof.DefaultConfig()
	pcfg.Enabled = true
	pcfg.OutputDir = pprofDir

	switch pprofMode {
	case "file":
		pcfg.Mode = pprof.ModeFile
	case "http":
		pcfg.Mode = pprof.ModeHTTP
	default:
		return nil, fmt.Errorf("invalid pprof mode: %q (valid: file, http)", pprofMode)
	}

	profiles, err := pprof.ParseProfileTypes(pprofProfiles)
	if err != nil {
		return nil, err
	}
	pcfg.Profiles = profiles

	interval, err := time.ParseDuration(pprofInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid pprof interval: %w", err)
	}
	pcfg.FileConfig.Interval = interval

	cpuDuration, err := time.ParseDuration(pprofCPUDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid pprof CPU duration: %w", err)
	}
	pcfg.FileConfig.CPUDuration = cpuDuration
	pcfg.FileConfig.CPURate = pprofCPURate
	pcfg.HTTPConfig.Addr = pprofAddr

	if err := pcfg.Validate(); err != nil {
		return nil, err
	}
	return pcfg, nil
}
