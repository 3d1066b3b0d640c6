package collector

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent      = "FilingPulseBot/1.0"
	defaultRequestTimeout = 30 * time.Second
)

// RetryPolicy 只作用于 FetchError，抽取类错误永远不重试
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// CollyOptions 构造 CollyFetcher 的参数，零值字段使用默认值
type CollyOptions struct {
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64
	Retry      RetryPolicy
	Logger     *logrus.Logger
	// MaxBodyBytes 响应体上限，0 表示不限制
	MaxBodyBytes int
}

// CollyFetcher 每次请求新建一个 colly collector，按固定速率发出请求，失败时指数退避重试
type CollyFetcher struct {
	userAgent string
	timeout   time.Duration
	retry     RetryPolicy
	limiter   *rate.Limiter
	log       *logrus.Logger
	maxBody   int
}

func NewCollyFetcher(opts CollyOptions) *CollyFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Retry.Multiplier < 1 {
		opts.Retry.Multiplier = 2
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	return &CollyFetcher{
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		retry:     opts.Retry,
		limiter:   rate.NewLimiter(limit, 1),
		log:       opts.Logger,
		maxBody:   max(opts.MaxBodyBytes, 0),
	}
}

func (f *CollyFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if err := checkURL(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(&FetchError{URL: pageURL, Err: err})
		}
		b, err := f.fetchOnce(pageURL)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && !fe.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.log.WithFields(logrus.Fields{
			"url":     pageURL,
			"attempt": attempt,
			"wait":    wait,
		}).Warnf("fetch failed, retrying: %v", err)
	}

	if err := backoff.RetryNotify(op, f.newBackOff(ctx), notify); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		// ctx 在退避等待期间被取消
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	return body, nil
}

func (f *CollyFetcher) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.retry.InitialDelay
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = 500 * time.Millisecond
	}
	eb.MaxInterval = f.retry.MaxDelay
	if eb.MaxInterval < eb.InitialInterval {
		eb.MaxInterval = eb.InitialInterval
	}
	eb.Multiplier = f.retry.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.retry.MaxAttempts-1)), ctx)
}

func (f *CollyFetcher) fetchOnce(pageURL string) ([]byte, error) {
	// colly 按 MaxBodySize 静默截断，多读一个字节用来识别超限；0 为不限制
	limit := 0
	if f.maxBody > 0 {
		limit = f.maxBody + 1
	}
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
		// 状态码由我们自己判断，colly 默认把 >=203 当错误且丢弃响应
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(limit),
	)
	c.SetRequestTimeout(f.timeout)

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: ErrUnexpectedStatus}
	}
	if f.maxBody > 0 && len(body) > f.maxBody {
		return nil, &FetchError{URL: pageURL, StatusCode: status, Err: ErrBodyTooLarge}
	}
	return body, nil
}
