package record

import (
	"strconv"
)

// 支持的记录类型（由配置 variant 选择）
const (
	VariantFilings  = "filings"
	VariantArticles = "articles"
)

// Record 是单个 WorkItem 处理后的结构化结果
type Record interface {
	// Key 用于去重与 CSV 排序：财报为报告期日期，文章为 URL
	Key() string
	// Row 按表头固定顺序输出 CSV 列
	Row() []string
	// Text 返回待清洗的原始正文，不做任何修改
	Text() string
}

// FilingHeader 财报 CSV 表头
func FilingHeader() []string {
	return []string{"filing_date", "sentiment_score"}
}

// ArticleHeader 文章 CSV 表头
func ArticleHeader() []string {
	return []string{"url", "title", "author", "published_date", "published_time", "body_text"}
}

// FilingRecord 季度报告：报告期（YYYY-MM-DD）+ 情感分
type FilingRecord struct {
	URL            string
	FilingDate     string
	SentimentScore float64
	RawText        string
}

func (r *FilingRecord) Key() string { return r.FilingDate }

func (r *FilingRecord) Row() []string {
	return []string{r.FilingDate, strconv.FormatFloat(r.SentimentScore, 'f', 4, 64)}
}

func (r *FilingRecord) Text() string { return r.RawText }

// ArticleRecord 普通新闻文章
type ArticleRecord struct {
	URL           string
	Title         string
	Author        string
	PublishedDate string
	PublishedTime string
	BodyText      string
}

func (r *ArticleRecord) Key() string { return r.URL }

func (r *ArticleRecord) Row() []string {
	return []string{r.URL, r.Title, r.Author, r.PublishedDate, r.PublishedTime, r.BodyText}
}

func (r *ArticleRecord) Text() string { return r.BodyText }
