package scraper

import (
	"context"

	"imgharvest/internal/downloader"
	"imgharvest/pkg/browser"
)

// PageOpener starts a page session. browser.Open is the default.
type PageOpener func(ctx context.Context, opts browser.Options) (browser.Page, error)

// Fetcher downloads asset bytes
type Fetcher = downloader.Fetcher
