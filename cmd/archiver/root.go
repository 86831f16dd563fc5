package main

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/pipeline"
	"github.com/aluiziolira/go-archive-books/scraper"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runFunc archives books into m using an initialised scraper.
type runFunc func(ctx context.Context, s *scraper.Scraper, cfg *config.Config, m *pipeline.Manifest) (*models.RunResult, error)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"base-url":        "archiver.base_url",
	"category":        "archiver.category",
	"start-page":      "archiver.start_page",
	"end-page":        "archiver.end_page",
	"start-id":        "archiver.start_id",
	"end-id":          "archiver.end_id",
	"dest-folder":     "archiver.dest_folder",
	"json-path":       "archiver.json_path",
	"manifest-format": "archiver.manifest_format",
	"skip-txt":        "archiver.skip_txt",
	"skip-imgs":       "archiver.skip_imgs",
	"timeout":         "archiver.timeout",
	"user-agent":      "archiver.user_agent",
	"metrics-addr":    "archiver.metrics_addr",
	"verbose":         "archiver.verbose",
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string
	d := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "archiver",
		Short: "Archive books, covers and metadata from tululu.org",
		Long: `archiver walks tululu.org category pages or a range of book IDs,
downloads each book's text and cover image and writes a JSON manifest
describing every archived book.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", cfgFile, err)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml) with an archiver section")
	flags.String("base-url", d.BaseURL, "Site base URL")
	flags.String("dest-folder", d.DestFolder, "Root folder for downloaded texts and images")
	flags.String("json-path", d.ManifestPath, "Manifest output path")
	flags.String("manifest-format", d.ManifestFormat, "Manifest format: json or dual (json plus csv index)")
	flags.Bool("skip-txt", d.SkipText, "Do not download book texts")
	flags.Bool("skip-imgs", d.SkipImages, "Do not download cover images")
	flags.Duration("timeout", d.Timeout, "Per-request timeout")
	flags.String("user-agent", d.UserAgent, "User-Agent header")
	flags.String("metrics-addr", d.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolP("verbose", "v", d.Verbose, "Enable verbose logging")

	cmd.AddCommand(newCategoryCmd(v, d), newBooksCmd(v, d))
	return cmd
}

func newCategoryCmd(v *viper.Viper, d *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Archive every book listed on a range of category pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			return execute(cmd.Context(), v, func(ctx context.Context, s *scraper.Scraper, _ *config.Config, m *pipeline.Manifest) (*models.RunResult, error) {
				return s.RunCategory(ctx, m)
			})
		},
	}
	flags := cmd.Flags()
	flags.String("category", d.CategoryPath, "Category path relative to the base URL")
	flags.Int("start-page", d.StartPage, "First listing page")
	flags.Int("end-page", d.EndPage, "Last listing page (0 discovers the last page)")
	return cmd
}

func newBooksCmd(v *viper.Viper, d *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Archive a contiguous range of book IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			return execute(cmd.Context(), v, func(ctx context.Context, s *scraper.Scraper, cfg *config.Config, m *pipeline.Manifest) (*models.RunResult, error) {
				return s.RunBooks(ctx, idRange(cfg.StartID, cfg.EndID), m)
			})
		},
	}
	flags := cmd.Flags()
	flags.Int("start-id", d.StartID, "First book ID")
	flags.Int("end-id", d.EndID, "Last book ID, inclusive")
	return cmd
}

// bindFlags binds every known flag visible to cmd onto its configuration key.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func idRange(start, end int) []models.BookID {
	if end < start {
		return nil
	}
	ids := make([]models.BookID, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, models.BookID(id))
	}
	return ids
}
