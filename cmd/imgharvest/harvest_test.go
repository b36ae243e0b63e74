package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/config"
)

func TestHarvestFlagsOnlyCarriesChangedValues(t *testing.T) {
	flags := harvestFlags(harvestCmd, "https://example.com")
	assert.Equal(t, "https://example.com", flags["url"])
	assert.NotContains(t, flags, "headless")
	assert.NotContains(t, flags, "interact")
	assert.NotContains(t, flags, "max-scrolls")

	require.NoError(t, harvestCmd.Flags().Set("headless", "false"))
	require.NoError(t, harvestCmd.Flags().Set("mode", "both"))
	require.NoError(t, harvestCmd.Flags().Set("max-scrolls", "5"))
	t.Cleanup(func() {
		headless, saveMode, maxScrolls = true, "", 0
	})

	flags = harvestFlags(harvestCmd, "https://example.com")
	assert.Equal(t, false, flags["headless"])
	assert.Equal(t, "both", flags["mode"])
	assert.Equal(t, 5, flags["max-scrolls"])

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, config.ModeBoth, cfg.Output.Mode)
	assert.Equal(t, 5, cfg.Harvest.MaxScrolls)
}

func TestActionsPerAsset(t *testing.T) {
	assert.Equal(t, 1, actionsPerAsset(config.ModeDownload))
	assert.Equal(t, 1, actionsPerAsset(config.ModeCapture))
	assert.Equal(t, 2, actionsPerAsset(config.ModeBoth))
}

func TestKnownCommands(t *testing.T) {
	assert.True(t, isKnownCommand("harvest"))
	assert.True(t, isKnownCommand("run"))
	assert.True(t, isKnownCommand("config"))
	assert.True(t, isKnownCommand("manifest"))
	assert.False(t, isKnownCommand("https://example.com"))
}
