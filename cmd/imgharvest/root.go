package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"imgharvest/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgharvest [url]",
	Short: "Harvest every image a web page shows, including lazy-loaded ones",
	Long: `imgharvest drives a real browser over a web page, scrolling and clicking
"load more" controls until no new images appear, then saves what it found.

Each image can be downloaded as its original bytes, captured as an element
screenshot, or both. Files are named after the nearest heading, caption or
alt text, and a JSON manifest of every discovered image is written next to
them. Optionally every saved file is padded onto a 4:3 canvas.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:    cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		switch cmd.Name() {
		case "version", "help", "completion":
		default:
			if !quiet {
				ui.PrintLogo()
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	// RunE is assigned here rather than in the literal to avoid an
	// initialization cycle through isKnownCommand -> rootCmd.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		// A bare URL is shorthand for "harvest <url>"
		if len(args) > 0 && !isKnownCommand(args[0]) {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return err
			}
			// flags were parsed on the root command
			return runHarvest(cmd, args)
		}
		return cmd.Help()
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.imgharvest.yaml or $HOME/.config/imgharvest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors and the final summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every scroll iteration on its own line")

	rootCmd.SetVersionTemplate(`imgharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
