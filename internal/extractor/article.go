package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/FilingPulse/internal/processor"
	"github.com/LJTian/FilingPulse/internal/record"
)

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ArticleExtractor 处理普通新闻页：标题、作者、发布时间、正文
type ArticleExtractor struct{}

func NewArticleExtractor() *ArticleExtractor {
	return &ArticleExtractor{}
}

func (a *ArticleExtractor) Name() string {
	return record.VariantArticles
}

func (a *ArticleExtractor) Header() []string {
	return record.ArticleHeader()
}

func (a *ArticleExtractor) Extract(pageURL string, body []byte) (record.Record, error) {
	doc, err := parseDocument(pageURL, body)
	if err != nil {
		return nil, err
	}

	title := firstText(doc, "title", "h1")
	if title == "" {
		return nil, &ExtractionError{URL: pageURL, Element: "title"}
	}

	bodyText := processor.CollapseWhitespace(strings.Join(paragraphTexts(doc), " "))
	if bodyText == "" {
		return nil, &ExtractionError{URL: pageURL, Element: "p"}
	}

	// 作者、发布时间按语义属性查找，缺失时留空
	author := firstAttr(doc,
		[2]string{`meta[name="author"]`, "content"},
		[2]string{`meta[itemprop="author"]`, "content"},
	)
	if author == "" {
		author = firstText(doc, `[rel="author"]`, `[itemprop="author"]`, ".author", ".byline")
	}

	published := firstAttr(doc,
		[2]string{"time[datetime]", "datetime"},
		[2]string{`meta[property="article:published_time"]`, "content"},
		[2]string{`[itemprop="datePublished"]`, "datetime"},
		[2]string{`[itemprop="datePublished"]`, "content"},
	)
	if published == "" {
		published = firstText(doc, `[itemprop="datePublished"]`)
	}
	pubDate, pubTime := SplitPublished(published)

	return &record.ArticleRecord{
		URL:           pageURL,
		Title:         title,
		Author:        author,
		PublishedDate: pubDate,
		PublishedTime: pubTime,
		BodyText:      bodyText,
	}, nil
}

// Complete 文章不依赖清洗后的文本，原样返回
func (a *ArticleExtractor) Complete(rec record.Record, _ string) (record.Record, error) {
	if _, ok := rec.(*record.ArticleRecord); !ok {
		return nil, fmt.Errorf("article extractor: unexpected record type %T", rec)
	}
	return rec, nil
}

// SplitPublished 把发布时间拆成 YYYY-MM-DD 与 HH:MM:SS，保留原始时区下的钟点；
// 无法解析时原样放在日期列
func SplitPublished(v string) (date, clock string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ""
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04:05")
		}
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.Format("2006-01-02"), ""
	}
	return v, ""
}
