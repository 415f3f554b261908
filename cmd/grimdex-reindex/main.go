// Command grimdex-reindex rebuilds the search indexes from the catalog
// and optionally pushes index settings. It is meant for scheduled full
// reconciliation runs and for bootstrapping a fresh deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grimdex/internal/assets"
	"grimdex/internal/catalog"
	mongostore "grimdex/internal/catalog/mongo"
	"grimdex/internal/config"
	"grimdex/internal/logging"
	algolia "grimdex/internal/searchindex/algolia"
	"grimdex/internal/syncer"
)

func main() {
	index := flag.String("index", "all", "Index to rebuild: books, authors, series or all")
	configure := flag.Bool("configure", false, "Push index settings before rebuilding")
	timeout := flag.Duration("timeout", 30*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg := config.LoadConfig()

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()
	logger := slog.Default()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *index, *configure); err != nil {
		logger.Error("reindex failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, index string, configure bool) error {
	store, err := mongostore.NewStore(ctx, cfg.Catalog.MongoURI, cfg.Catalog.Database)
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	defer store.Close(context.Background())

	client := algolia.New(cfg.Search.AppID, cfg.Search.APIKey, logger)

	builder := assets.NewBuilder(cfg.Assets.ProjectID, cfg.Assets.Dataset)
	if cfg.Assets.BaseURL != "" {
		builder = builder.WithBaseURL(cfg.Assets.BaseURL)
	}

	sync := syncer.New(cfg.Sync, store, client, builder, logger)

	if configure {
		logger.Info("pushing index settings")
		if err := sync.Configure(ctx, cfg.Settings); err != nil {
			return fmt.Errorf("configure indexes: %w", err)
		}
	}

	switch index {
	case "books":
		return report(catalog.KindBook)(sync.RebuildBooks(ctx))
	case "authors":
		return report(catalog.KindAuthor)(sync.RebuildAuthors(ctx))
	case "series":
		return report(catalog.KindSeries)(sync.RebuildSeries(ctx))
	case "all":
		summaries, err := sync.RebuildAll(ctx)
		for kind, sum := range summaries {
			fmt.Printf("%-8s %s\n", kind, sum)
		}
		return err
	default:
		return fmt.Errorf("unknown index %q", index)
	}
}

func report(kind catalog.Kind) func(syncer.Summary, error) error {
	return func(sum syncer.Summary, err error) error {
		fmt.Printf("%-8s %s\n", kind, sum)
		return err
	}
}
