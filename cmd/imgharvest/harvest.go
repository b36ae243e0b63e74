package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/progress"
	"imgharvest/pkg/scraper"
	"imgharvest/pkg/ui"
	"imgharvest/pkg/ui/tui"
)

var (
	// Harvest command flags
	outputDir       string
	saveMode        string
	engine          string
	headless        bool
	stealth         bool
	interact        bool
	maxScrolls      int
	aspectNormalize bool
	useTUI          bool
	notify          bool
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:     "harvest <url>",
	Aliases: []string{"run"},
	Short:   "Harvest the images of one web page",
	Long: `Open the page in a browser, keep scrolling and clicking "load more" style
controls until the set of images stops growing, then save them.

Save modes:
  download  fetch the original bytes of every image (default)
  capture   screenshot every image element as it is rendered
  both      do both; files get -orig and -cap suffixes

Press Ctrl+C once to stop after the current step. What was found so far is
still written to the manifest and saved.`,
	Example: `  # Download every image into ./images
  imgharvest harvest https://example.com/gallery

  # Screenshots and originals, padded to 4:3, with a visible browser
  imgharvest harvest https://example.com/gallery --mode both --aspect-normalize --headless=false

  # Static HTML only, no browser
  imgharvest https://example.com/gallery --engine http -o ./out`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHarvest(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	// Also on the root command so "imgharvest <url> --flags" works
	for _, c := range []*cobra.Command{harvestCmd, rootCmd} {
		f := c.Flags()
		f.StringVarP(&outputDir, "output", "o", "", "output directory (default ./images)")
		f.StringVarP(&saveMode, "mode", "m", "", "save mode: download, capture or both")
		f.StringVar(&engine, "engine", "", "page engine: rod, chromedp or http")
		f.BoolVar(&headless, "headless", true, "run the browser without a window")
		f.BoolVar(&stealth, "stealth", false, "hide common automation fingerprints (rod only)")
		f.BoolVar(&interact, "interact", true, "click load-more style controls while scrolling")
		f.IntVar(&maxScrolls, "max-scrolls", 0, "maximum scroll iterations (default 30)")
		f.BoolVar(&aspectNormalize, "aspect-normalize", false, "pad every saved file onto a 4:3 canvas")
		f.BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
		f.BoolVar(&notify, "notify", false, "send a desktop notification when done")
	}
}

// harvestFlags collects the flags the user actually set
func harvestFlags(cmd *cobra.Command, target string) map[string]interface{} {
	flags := map[string]interface{}{"url": target}
	changed := cmd.Flags().Changed

	if outputDir != "" {
		flags["output"] = outputDir
	}
	if saveMode != "" {
		flags["mode"] = saveMode
	}
	if engine != "" {
		flags["engine"] = engine
	}
	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("stealth") {
		flags["stealth"] = stealth
	}
	if changed("interact") {
		flags["interact"] = interact
	}
	if maxScrolls > 0 {
		flags["max-scrolls"] = maxScrolls
	}
	if changed("aspect-normalize") {
		flags["aspect-normalize"] = aspectNormalize
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])

	cfg, err := config.Load(configFile, harvestFlags(cmd, target))
	if err != nil {
		return err
	}
	if err := cfg.ValidateTarget(); err != nil {
		return err
	}

	// The TUI owns the terminal, so console logging is silenced there
	logOpts := logger.Options{}
	if useTUI {
		logOpts.Console = io.Discard
	}
	if err := logger.Initialize(&cfg.Logging, logOpts); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithFields(map[string]interface{}{
		"version": version,
		"url":     cfg.Target.URL,
		"mode":    string(cfg.Output.Mode),
		"engine":  string(cfg.Browser.Engine),
	}).Info("imgharvest starting")

	if !useTUI {
		ui.PrintInfo("Target", cfg.Target.URL)
		ui.PrintInfo("Output", cfg.Output.Directory)
		ui.PrintInfo("Mode", string(cfg.Output.Mode))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := progress.NewQueue()
	s := scraper.New(cfg, progress.NewReporter(q, log), log)

	type outcome struct {
		result *scraper.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer q.Close()
		res, err := s.Run(ctx)
		done <- outcome{res, err}
	}()

	if useTUI {
		terminal := tui.New(q, cfg.Target.URL, actionsPerAsset(cfg.Output.Mode), cancel)
		if err := terminal.Run(); err != nil {
			log.WithError(err).Error("TUI failed")
			cancel()
		}
	} else {
		printer := ui.NewPrinter(os.Stdout, verbose)
		// Keeps draining after Ctrl+C so the final lines are printed
		progress.Pump(context.Background(), q, progress.DefaultPollInterval, printer.Print)
	}

	out := <-done
	return report(cfg, out.result, out.err)
}

func report(cfg *config.Config, res *scraper.Result, runErr error) error {
	var notifier *ui.Notifier
	if notify {
		notifier = ui.NewNotifier()
	}

	if runErr != nil {
		logger.WithError(runErr).Error("harvest failed")
		if res != nil && res.Assets > 0 {
			ui.PrintInfo("Partial manifest", res.Manifest)
		}
		if notifier != nil {
			notifier.HarvestFailed(cfg.Target.URL, runErr)
		}
		return runErr
	}

	fmt.Println()
	ui.PrintSuccess(res.Summary())
	ui.PrintInfo("Manifest", res.Manifest)
	if res.Persist.Cancelled {
		ui.PrintWarning(fmt.Sprintf("stopped early, %d of %d assets processed", res.Persist.Processed, res.Persist.Assets))
	}
	if notifier != nil {
		notifier.HarvestFinished(cfg.Target.URL, len(res.Files), res.Persist.Failed)
	}
	return nil
}

// actionsPerAsset is how many files each asset produces in mode
func actionsPerAsset(mode config.SaveMode) int {
	if mode == config.ModeBoth {
		return 2
	}
	return 1
}
