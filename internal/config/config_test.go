package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadReadsAuthAndPorts(t *testing.T) {
	t.Setenv("APP_PORT", "1234")
	t.Setenv("APP_BASIC_USER", "user")
	t.Setenv("APP_BASIC_PASS", "pass")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.BasicAuthUser != "user" || cfg.BasicAuthPass != "pass" {
		t.Fatalf("BasicAuthUser/Pass not loaded correctly: %+v", cfg)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "filings", cfg.Variant)
	assert.Len(t, cfg.URLs, 27)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.Retry.MaxAttempts)
	assert.Equal(t, DefaultMaxBodyBytes, cfg.Fetch.MaxBodyBytes)
	assert.Equal(t, "mean", cfg.SentimentMode)
	assert.Equal(t, filepath.Join(".", "QuarterlyReports", "TSLA_Quarterly_Reports.csv"), cfg.OutputPath())
}

func TestLoadMaxBodyBytes(t *testing.T) {
	t.Setenv("FETCH_MAX_BODY_BYTES", "0")
	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.Fetch.MaxBodyBytes, "0 disables the limit")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  max_body_bytes: 1048576\n"), 0o644))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1<<20, cfg.Fetch.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
}

func TestLoadEnvLists(t *testing.T) {
	t.Setenv("SCRAPE_VARIANT", "articles")
	t.Setenv("SCRAPE_URLS", "https://a.example/1, ,https://a.example/2")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("SEARCH_PAGES", "not-a-number")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example/1", "https://a.example/2"}, cfg.URLs)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 1, cfg.Search.Pages)
	assert.Equal(t, filepath.Join(".", "Articles", "Articles.csv"), cfg.OutputPath())
}

func TestLoadFileOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filingpulse.yaml")
	content := `
variant: articles
log_level: debug
search:
  url: https://www.ibtimes.com/search/site/tsla
  pages: 3
  denylist: [reddit.com]
output:
  base_dir: /tmp/out
fetch:
  timeout: 10s
  rate_per_sec: 0.5
  retry:
    max_attempts: 5
    initial_delay: 200ms
sentiment_mode: last
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "articles", cfg.Variant)
	assert.Empty(t, cfg.URLs, "built-in filing urls must not leak into an articles config")
	assert.Equal(t, 3, cfg.Search.Pages)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Fetch.Retry.InitialDelay)
	assert.Equal(t, 5, cfg.Fetch.Retry.MaxAttempts)
	// 未在文件中出现的字段保持环境默认值
	assert.Equal(t, 2.0, cfg.Fetch.Retry.Multiplier)
	assert.Equal(t, "last", cfg.SentimentMode)
	assert.Equal(t, filepath.Join("/tmp/out", "Articles", "Articles.csv"), cfg.OutputPath())
	assert.Equal(t, []string{"twitter.com", "reddit.com"}, cfg.Denylist([]string{"twitter.com"}))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"variant", func(c *Config) { c.Variant = "tweets" }, ErrUnknownVariant},
		{"no work", func(c *Config) { c.URLs = nil }, ErrNoWork},
		{"pages", func(c *Config) { c.Search.URL = "https://s.example"; c.Search.Pages = 0 }, ErrInvalidPages},
		{"timeout", func(c *Config) { c.Fetch.Timeout = 0 }, ErrInvalidTimeout},
		{"attempts", func(c *Config) { c.Fetch.Retry.MaxAttempts = 0 }, ErrInvalidAttempts},
		{"body limit", func(c *Config) { c.Fetch.MaxBodyBytes = -1 }, ErrInvalidBodyLimit},
		{"sentiment", func(c *Config) { c.SentimentMode = "median" }, ErrInvalidSentiment},
		{"cron", func(c *Config) { c.CronSpec = "every minute" }, ErrInvalidCronSpec},
		{"output", func(c *Config) { c.Output.BaseDir = "" }, ErrEmptyOutputTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Load()
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}
