package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"imgharvest/pkg/config"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/manifest"
	"imgharvest/pkg/ui"
)

// manifestCmd summarizes a manifest written by an earlier run
var manifestCmd = &cobra.Command{
	Use:   "manifest [dir]",
	Short: "Summarize the manifest of a previous harvest",
	Long: `Read the manifest in the given output directory (or the configured one)
and print how many images it lists, by kind, metadata and host.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	dir := cfg.Output.Directory
	if len(args) == 1 {
		dir = args[0]
	}

	mgr := manifest.NewManager(filepath.Join(dir, cfg.Output.ManifestName), logger.GetLogger())
	if !mgr.Exists() {
		return fmt.Errorf("no manifest found at %s", mgr.Path())
	}

	info, err := mgr.GetInfo()
	if err != nil {
		return err
	}

	ui.PrintInfo("Manifest", info.Path)
	ui.PrintInfo("Updated", info.UpdatedAt.Format("2006-01-02 15:04:05"))
	ui.PrintInfo("Assets", fmt.Sprintf("%d (%d img, %d bg)", info.Total, info.Images, info.Backgrounds))
	ui.PrintInfo("With locator", fmt.Sprintf("%d", info.WithLocator))
	ui.PrintInfo("With heading", fmt.Sprintf("%d", info.WithHeading))
	ui.PrintInfo("With caption", fmt.Sprintf("%d", info.WithCaption))
	ui.PrintInfo("With alt text", fmt.Sprintf("%d", info.WithAlt))

	if len(info.Hosts) > 0 {
		fmt.Println()
		ui.PrintHighlight("Hosts")
		for _, h := range info.Hosts {
			fmt.Printf("  %-40s %d\n", h.Host, h.Count)
		}
	}
	return nil
}
