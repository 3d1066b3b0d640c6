package app

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/LJTian/FilingPulse/internal/collector"
	"github.com/LJTian/FilingPulse/internal/config"
	"github.com/LJTian/FilingPulse/internal/extractor"
	"github.com/LJTian/FilingPulse/internal/persist"
	"github.com/LJTian/FilingPulse/internal/pipeline"
	"github.com/LJTian/FilingPulse/internal/processor"
	"github.com/LJTian/FilingPulse/internal/record"
)

// Deps 可选的外部依赖，零值表示不启用
type Deps struct {
	// Redis 非空且 fetch.cache_ttl > 0 时缓存页面原文
	Redis    *redis.Client
	Observer pipeline.RunObserver
	// Fetcher 非空时替换默认的 colly 抓取器
	Fetcher collector.Fetcher
}

// BuildJob 按配置组装 Fetcher → Extractor → Normalizer → Persister，任务名即 variant
func BuildJob(cfg *config.Config, log *logrus.Logger, deps Deps) (*pipeline.Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = collector.NewCollyFetcher(collector.CollyOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    cfg.Fetch.Timeout,
			RatePerSec: cfg.Fetch.RatePerSec,
			Retry: collector.RetryPolicy{
				MaxAttempts:  cfg.Fetch.Retry.MaxAttempts,
				InitialDelay: cfg.Fetch.Retry.InitialDelay,
				MaxDelay:     cfg.Fetch.Retry.MaxDelay,
				Multiplier:   cfg.Fetch.Retry.Multiplier,
			},
			Logger:       log,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		})
	}
	if deps.Redis != nil && cfg.Fetch.CacheTTL > 0 {
		fetcher = collector.NewCachedFetcher(fetcher, deps.Redis, cfg.Fetch.CacheTTL, log)
	}

	var scorer extractor.TextScorer
	if cfg.Variant == record.VariantFilings {
		s, err := processor.NewDefaultSentimentScorer(cfg.SentimentMode)
		if err != nil {
			return nil, err
		}
		scorer = s
	}
	ex, err := extractor.New(cfg.Variant, scorer)
	if err != nil {
		return nil, err
	}

	driver := pipeline.NewDriver(fetcher, ex, processor.NewNormalizer(), persist.NewCSVPersister(cfg.OutputPath()), pipeline.Options{
		JobName:   cfg.Variant,
		Logger:    log,
		Observer:  deps.Observer,
		PageParam: cfg.Search.PageParam,
		Denylist:  cfg.Denylist(collector.DefaultDenylist()),
	})

	return &pipeline.Job{
		Name:        cfg.Variant,
		Driver:      driver,
		URLs:        cfg.URLs,
		SearchURL:   cfg.Search.URL,
		SearchPages: cfg.Search.Pages,
	}, nil
}
