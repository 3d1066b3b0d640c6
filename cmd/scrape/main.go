package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LJTian/FilingPulse/internal/app"
	"github.com/LJTian/FilingPulse/internal/config"
	"github.com/LJTian/FilingPulse/internal/logging"
	"github.com/LJTian/FilingPulse/internal/record"
	"github.com/LJTian/FilingPulse/internal/storage"
)

type flags struct {
	configFile    string
	variant       string
	urls          []string
	searchURL     string
	pages         int
	outputDir     string
	logLevel      string
	sentimentMode string
	noHistory     bool
}

// 一个仅执行一次抓取任务的命令行入口：Ctrl-C 会在当前条目结束后落盘退出
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:          "scrape",
		Short:        "scrape fetches pages, extracts records and keeps a CSV up to date after every item.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "YAML config file (env values are used as defaults)")
	fs.StringVar(&f.variant, "variant", "", "record variant: filings or articles")
	fs.StringSliceVar(&f.urls, "url", nil, "URL to process (repeatable)")
	fs.StringVar(&f.searchURL, "search-url", "", "search results page to discover links from")
	fs.IntVar(&f.pages, "pages", 0, "number of search result pages")
	fs.StringVarP(&f.outputDir, "output", "o", "", "base output directory")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&f.sentimentMode, "sentiment-mode", "", "sentiment aggregation: mean or last")
	fs.BoolVar(&f.noHistory, "no-history", false, "do not record the run in Postgres even if POSTGRES_DSN is set")
	return cmd
}

func loadConfig(f *flags) (*config.Config, error) {
	cfg := config.Load()
	if f.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(f.configFile); err != nil {
			return nil, err
		}
	}

	// 命令行参数优先级最高
	if f.variant != "" && f.variant != cfg.Variant {
		cfg.Variant = f.variant
		if len(f.urls) == 0 {
			cfg.URLs = nil
		}
	}
	if len(f.urls) > 0 {
		cfg.URLs = f.urls
	}
	if f.searchURL != "" {
		cfg.Search.URL = f.searchURL
	}
	// 切换到 filings 且没有任何输入时回到内置的 10-Q 列表
	if cfg.Variant == record.VariantFilings && len(cfg.URLs) == 0 && cfg.Search.URL == "" {
		cfg.URLs = config.DefaultFilingURLs()
	}
	if f.pages > 0 {
		cfg.Search.Pages = f.pages
	}
	if f.outputDir != "" {
		cfg.Output.BaseDir = f.outputDir
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.sentimentMode != "" {
		cfg.SentimentMode = f.sentimentMode
	}
	if f.noHistory {
		cfg.PostgresDSN = ""
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	deps := app.Deps{}
	if cfg.RedisAddr != "" && cfg.Fetch.CacheTTL > 0 {
		deps.Redis = storage.NewRedis(cfg.RedisAddr, log)
		defer deps.Redis.Close()
	}
	if cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, "", log)
		if err != nil {
			log.Warnf("init store failed, run history disabled: %v", err)
		} else {
			deps.Observer = store
		}
	}

	job, err := app.BuildJob(cfg, log, deps)
	if err != nil {
		return err
	}

	stats, err := job.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run %s: %w", job.Name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: visited=%d recorded=%d failed=%d rows=%d cancelled=%t -> %s\n",
		job.Name, stats.Visited, stats.Recorded, stats.FailedTotal(), stats.Rows, stats.Cancelled, stats.Output)
	return nil
}
