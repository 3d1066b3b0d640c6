package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/LJTian/FilingPulse/internal/processor"
	"github.com/LJTian/FilingPulse/internal/record"
)

var (
	ErrUnknownVariant    = errors.New("variant must be filings or articles")
	ErrNoWork            = errors.New("either urls or search.url must be set")
	ErrInvalidPages      = errors.New("search.pages must be >= 1")
	ErrInvalidTimeout    = errors.New("fetch.timeout must be > 0")
	ErrInvalidAttempts   = errors.New("fetch.retry.max_attempts must be >= 1")
	ErrInvalidBodyLimit  = errors.New("fetch.max_body_bytes must be >= 0")
	ErrInvalidSentiment  = errors.New("sentiment_mode must be mean or last")
	ErrInvalidCronSpec   = errors.New("cron_spec is not a valid cron expression")
	ErrEmptyOutputTarget = errors.New("output.base_dir and output file must not be empty")
)

// DefaultMaxBodyBytes 单个页面的默认上限，10-Q 原文通常在几 MB 以内
const DefaultMaxBodyBytes = 64 << 20

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

type FetchConfig struct {
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	// CacheTTL 为 0 表示不缓存页面
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// MaxBodyBytes 响应体上限，0 表示不限制；超出上限的页面按抓取失败处理
	MaxBodyBytes int         `yaml:"max_body_bytes"`
	Retry        RetryConfig `yaml:"retry"`
}

// SearchConfig 搜索模式：URL 非空时忽略静态 URL 列表
type SearchConfig struct {
	URL       string   `yaml:"url"`
	Pages     int      `yaml:"pages"`
	PageParam string   `yaml:"page_param"`
	Denylist  []string `yaml:"denylist"`
}

// OutputConfig 输出位置：<BaseDir>/<Dir>/<File>，Dir/File 为空时按 variant 取默认值
type OutputConfig struct {
	BaseDir string `yaml:"base_dir"`
	Dir     string `yaml:"dir"`
	File    string `yaml:"file"`
}

type Config struct {
	AppPort string `yaml:"app_port"`

	BasicAuthUser string `yaml:"basic_auth_user"`
	BasicAuthPass string `yaml:"basic_auth_pass"`

	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`

	CronSpec string `yaml:"cron_spec"`
	LogLevel string `yaml:"log_level"`

	Variant       string       `yaml:"variant"`
	URLs          []string     `yaml:"urls"`
	Search        SearchConfig `yaml:"search"`
	Output        OutputConfig `yaml:"output"`
	Fetch         FetchConfig  `yaml:"fetch"`
	SentimentMode string       `yaml:"sentiment_mode"`
}

// Load 从环境变量读取配置，未设置的字段使用默认值
func Load() *Config {
	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		CronSpec:      getEnv("CRON_SPEC", "0 */6 * * *"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Variant:       getEnv("SCRAPE_VARIANT", record.VariantFilings),
		URLs:          getEnvList("SCRAPE_URLS"),
		Search: SearchConfig{
			URL:       getEnv("SEARCH_URL", ""),
			Pages:     getEnvInt("SEARCH_PAGES", 1),
			PageParam: getEnv("SEARCH_PAGE_PARAM", "page"),
			Denylist:  getEnvList("SEARCH_DENYLIST"),
		},
		Output: OutputConfig{
			BaseDir: getEnv("OUTPUT_DIR", "."),
			Dir:     getEnv("OUTPUT_SUBDIR", ""),
			File:    getEnv("OUTPUT_FILE", ""),
		},
		Fetch: FetchConfig{
			UserAgent:  getEnv("FETCH_USER_AGENT", "FilingPulseBot/1.0"),
			Timeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			RatePerSec: getEnvFloat("FETCH_RATE", 1),
			CacheTTL:   getEnvDuration("PAGE_CACHE_TTL", 0),
			Retry: RetryConfig{
				MaxAttempts:  getEnvInt("FETCH_MAX_ATTEMPTS", 3),
				InitialDelay: getEnvDuration("FETCH_RETRY_DELAY", 500*time.Millisecond),
				MaxDelay:     getEnvDuration("FETCH_RETRY_MAX_DELAY", 10*time.Second),
				Multiplier:   getEnvFloat("FETCH_RETRY_MULTIPLIER", 2),
			},
			MaxBodyBytes: getEnvInt("FETCH_MAX_BODY_BYTES", DefaultMaxBodyBytes),
		},
		SentimentMode: getEnv("SENTIMENT_MODE", processor.SentimentMean),
	}

	// filings 未指定任何输入时使用内置的 TSLA 10-Q 列表
	if len(cfg.URLs) == 0 && cfg.Search.URL == "" && cfg.Variant == record.VariantFilings {
		cfg.URLs = DefaultFilingURLs()
	}
	return cfg
}

// LoadFile 以环境变量为默认值，再用 YAML 文件覆盖
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	fileURLs := cfg.URLs
	cfg.URLs = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.URLs) == 0 && cfg.Search.URL == "" && cfg.Variant == record.VariantFilings {
		cfg.URLs = fileURLs
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Variant {
	case record.VariantFilings, record.VariantArticles:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariant, c.Variant)
	}
	if len(c.URLs) == 0 && c.Search.URL == "" {
		return ErrNoWork
	}
	if c.Search.URL != "" && c.Search.Pages < 1 {
		return ErrInvalidPages
	}
	if c.Fetch.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Fetch.Retry.MaxAttempts < 1 {
		return ErrInvalidAttempts
	}
	if c.Fetch.MaxBodyBytes < 0 {
		return ErrInvalidBodyLimit
	}
	switch c.SentimentMode {
	case "", processor.SentimentMean, processor.SentimentLast:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSentiment, c.SentimentMode)
	}
	if c.CronSpec != "" {
		if _, err := cron.ParseStandard(c.CronSpec); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCronSpec, err)
		}
	}
	if c.Output.BaseDir == "" {
		return ErrEmptyOutputTarget
	}
	return nil
}

// OutputPath 返回当前 variant 的 CSV 路径
func (c *Config) OutputPath() string {
	dir, file := c.Output.Dir, c.Output.File
	switch c.Variant {
	case record.VariantArticles:
		if dir == "" {
			dir = "Articles"
		}
		if file == "" {
			file = "Articles.csv"
		}
	default:
		if dir == "" {
			dir = "QuarterlyReports"
		}
		if file == "" {
			file = "TSLA_Quarterly_Reports.csv"
		}
	}
	return filepath.Join(c.Output.BaseDir, dir, file)
}

// Denylist 默认社交媒体域名加上配置的额外域名
func (c *Config) Denylist(defaults []string) []string {
	out := make([]string, 0, len(defaults)+len(c.Search.Denylist))
	out = append(out, defaults...)
	return append(out, c.Search.Denylist...)
}

// DefaultFilingURLs Tesla 2010-2019 年的 10-Q 报告
func DefaultFilingURLs() []string {
	const base = "https://www.sec.gov/Archives/edgar/data/1318605/"
	paths := []string{
		"000156459019026445/tsla-10q_20190630.htm",
		"000156459019013462/tsla-10q_20190331.htm",
		"000156459018026353/tsla-10q_20180930.htm",
		"000156459018011086/tsla-10q_20180331.htm",
		"000156459017021343/tsla-10q_20170930.htm",
		"000156459017015705/tsla-10q_20170630.htm",
		"000156459017009968/tsla-10q_20170331.htm",
		"000156459016026820/tsla-10q_20160930.htm",
		"000156459016023024/tsla-10q_20160630.htm",
		"000156459016018886/tsla-10q_20160331.htm",
		"000156459015009741/tsla-10q_20150930.htm",
		"000156459015006666/tsla-10q_20150630.htm",
		"000156459015003789/tsla-10q_20150331.htm",
		"000119312514403635/d812482d10q.htm",
		"000119312514303175/d766922d10q.htm",
		"000119312514192606/d715897d10q.htm",
		"000119312513435480/d588506d10q.htm",
		"000119312513327916/d549636d10q.htm",
		"000119312513212354/d511008d10q.htm",
		"000119312512457610/d410318d10q.htm",
		"000119312512332138/d364775d10q.htm",
		"000119312512225825/d325967d10q.htm",
		"000119312511308489/d226201d10q.htm",
		"000119312511221497/d10q.htm",
		"000119312511139677/d10q.htm",
		"000119312510259068/d10q.htm",
		"000119312510188792/d10q.htm",
	}
	urls := make([]string, len(paths))
	for i, p := range paths {
		urls[i] = base + p
	}
	return urls
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvList 逗号分隔，忽略空项
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
