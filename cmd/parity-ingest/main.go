// Package main implements parity-ingest, which turns a search console export
// into the parity snapshot served by GET /api/seo/parity.
//
//	parity-ingest --file export.csv
//	parity-ingest --dry-run < export.csv
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/seo"
	"github.com/admitai/admitai-korea/internal/storage"
	"github.com/admitai/admitai-korea/internal/telemetry"

	_ "github.com/admitai/admitai-korea/internal/storage/azure"
	_ "github.com/admitai/admitai-korea/internal/storage/gcs"
	_ "github.com/admitai/admitai-korea/internal/storage/local"
	_ "github.com/admitai/admitai-korea/internal/storage/s3"
)

var (
	configPath string
	inputFile  string
	dryRun     bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "parity-ingest",
	Short: "Write an SEO parity snapshot from a CSV export",
	Long: `parity-ingest reads rows of path,engine,impressions,clicks,ctr (header
optional) and writes the grouped snapshot to the configured storage backend.
Engines are google, bing and naver.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		telemetry.SetupLogger("text", level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		in := cmd.InOrStdin()
		if inputFile != "" && inputFile != "-" {
			f, err := os.Open(inputFile) // #nosec G304 -- operator-supplied path
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", inputFile, err)
			}
			defer f.Close()
			in = f
		}

		var backend storage.Storage
		if !dryRun {
			backend, err = storage.NewStorage(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize storage backend: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		return ingest(ctx, cfg, backend, in, cmd.OutOrStdout(), dryRun)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "-", "CSV file to read, - for stdin")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the snapshot instead of writing it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// ingest parses rows from in and either prints the snapshot (dryRun) or saves
// it through backend.
func ingest(ctx context.Context, cfg *config.Config, backend storage.Storage, in io.Reader, out io.Writer, dryRun bool) error {
	rows, err := seo.ParseCSV(in)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows to ingest")
	}
	thresholds := seo.DefaultThresholds(cfg.SEO)

	if dryRun {
		snap, err := seo.BuildSnapshot(rows, thresholds, time.Now().UTC())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	snap, err := seo.NewStore(backend, cfg.SEO.SnapshotKey).Ingest(ctx, rows, thresholds)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d pages to %s (%s)\n", len(snap.Pages), cfg.SEO.SnapshotKey, cfg.Storage.DefaultBackend)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
