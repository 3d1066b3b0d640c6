package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
)

var (
	// ErrUnexpectedStatus 非 2xx 响应
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrBodyTooLarge 响应体达到 MaxBodyBytes，内容已被截断
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
	// ErrInvalidURL 无法解析或不是 http(s) 的地址
	ErrInvalidURL = errors.New("invalid url")
)

// Fetcher 抽象一次 HTTP GET：返回原始响应体，失败时返回 *FetchError
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchError 网络失败、超时或非 2xx 状态，属于可恢复错误（跳过当前条目）
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable 只对瞬时故障重试：传输层错误以及 408/429/5xx
func (e *FetchError) Retryable() bool {
	if isPermanent(e.Err) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500 && e.StatusCode <= 599:
		return true
	}
	return false
}

// permanentErrs 重试也不会成功的错误
var permanentErrs = []error{
	context.Canceled,
	ErrBodyTooLarge,
	ErrInvalidURL,
	colly.ErrMissingURL,
	colly.ErrForbiddenDomain,
	colly.ErrForbiddenURL,
	colly.ErrNoURLFiltersMatch,
	colly.ErrRobotsTxtBlocked,
}

func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range permanentErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	// net/http 对地址本身的报错只能按文本区分
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Op == "parse" || strings.Contains(ue.Err.Error(), "unsupported protocol scheme") {
			return true
		}
	}
	return false
}

// checkURL 请求前校验地址，错误的地址不进入重试
func checkURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
