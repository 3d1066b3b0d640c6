package collector

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 只收集绝对 HTTP(S) 链接
var absoluteHTTPURL = regexp.MustCompile(`^https?://[^\s]+$`)

// DefaultDenylist 搜索模式下永远不跟进的域名（社交媒体分享链接）
func DefaultDenylist() []string {
	return []string{"twitter.com", "facebook.com", "linkedin.com"}
}

// DiscoverLinks 从搜索结果页提取锚点链接：绝对 URL、过滤黑名单、页内去重，保持出现顺序
func DiscoverLinks(body []byte, denylist []string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if !absoluteHTTPURL.MatchString(href) {
			return
		}
		if IsDenied(href, denylist) {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links, nil
}

// IsDenied 链接中包含黑名单域名即视为命中（大小写不敏感）
func IsDenied(link string, denylist []string) bool {
	lower := strings.ToLower(link)
	for _, d := range denylist {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// SearchPageURL 第 1 页使用原始搜索地址，之后的页追加页码参数
func SearchPageURL(base string, page int, pageParam string) (string, error) {
	if page <= 1 {
		return base, nil
	}
	if pageParam == "" {
		pageParam = "page"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse search url %q: %w", base, err)
	}
	q := u.Query()
	q.Set(pageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
