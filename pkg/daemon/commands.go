package daemon

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nftbarter/tradeloop-engine/build"
)

// exit codes
// inspired by sysexits.h
const (
	exitCodeGeneral = 1  // Not in sysexits.h, but is standard practice.
	exitCodeUsage   = 64 // EX_USAGE in sysexits.h
)

// die prints its arguments to stderr, then exits the program with the
// default error code.
func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(exitCodeGeneral)
}

// newStartDaemonCmd is a passthrough function for StartDaemon.
func newStartDaemonCmd(cfg *Config) func(cmd *cobra.Command, _ []string) {
	return func(cmd *cobra.Command, _ []string) {
		if err := StartDaemon(*cfg); err != nil {
			die(err)
		}
	}
}

// newVersionCmd is a cobra command that prints the daemon's version.
func newVersionCmd(*cobra.Command, []string) {
	var postfix string
	switch build.Release {
	case "dev":
		postfix = "-dev"
	case "testing":
		postfix = "-testing"
	case "standard":
	default:
		postfix = "-???"
	}
	fmt.Printf("Tradeloop Engine Daemon v%s%s\n", build.Version.String(), postfix)
}

// SetupDefaultDaemon sets up and starts a default daemon. This function does
// not return until the daemon is stopped.
func SetupDefaultDaemon(cfg Config) {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Tradeloop Engine Daemon v" + build.Version.String(),
		Long:  "Tradeloop Engine Daemon v" + build.Version.String(),
		Run:   newStartDaemonCmd(&cfg),
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information about the Tradeloop Engine Daemon",
		Run:   newVersionCmd,
	})

	root.Flags().StringVarP(&cfg.ConfigFile, "config-file", "c", cfg.ConfigFile, "location of the engine's TOML configuration file")
	root.Flags().StringVarP(&cfg.RootPersistentDir, "persistent-directory", "d", cfg.RootPersistentDir,
		"location of the root directory used to store the replay log and logs")
	root.Flags().BoolVarP(&cfg.VerboseLogging, "verboselogging", "v", cfg.VerboseLogging, "enable logging of debug information in the logfile")
	root.Flags().BoolVarP(&cfg.DisablePersistence, "disable-persistence", "", cfg.DisablePersistence, "run with in-memory-only Graph Stores, no replay log")

	// Parse cmdline flags, overwriting both the default values and the config
	// file values.
	if err := root.Execute(); err != nil {
		// Since no commands return errors (all commands set Command.Run instead of
		// Command.RunE), Command.Execute() should only return an error on an
		// invalid command or flag. Therefore Command.Usage() was called (assuming
		// Command.SilenceUsage is false) and we should exit with exitCodeUsage.
		os.Exit(exitCodeUsage)
	}
}
