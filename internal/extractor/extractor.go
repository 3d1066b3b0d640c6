package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/LJTian/FilingPulse/internal/processor"
	"github.com/LJTian/FilingPulse/internal/record"
	"github.com/PuerkitoBio/goquery"
)

// Extractor 抽象一种记录类型的抽取策略，Driver 只依赖这个接口
type Extractor interface {
	Name() string
	Header() []string
	// Extract 从原始 HTML 中定位所需元素并生成 Record
	Extract(pageURL string, body []byte) (record.Record, error)
	// Complete 用清洗后的正文补全依赖它的字段（例如情感分）
	Complete(rec record.Record, normalized string) (record.Record, error)
}

// TextScorer 对清洗后的整段文本打分
type TextScorer interface {
	ScoreText(text string) float64
}

// New 按配置的 variant 选择抽取策略
func New(variant string, scorer TextScorer) (Extractor, error) {
	switch variant {
	case record.VariantFilings:
		if scorer == nil {
			return nil, fmt.Errorf("extractor %s: sentiment scorer is required", variant)
		}
		return NewFilingExtractor(scorer), nil
	case record.VariantArticles:
		return NewArticleExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown record variant %q", variant)
	}
}

func parseDocument(pageURL string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Element: "html"}
	}
	return doc, nil
}

// paragraphTexts 返回所有 <p> 的文本（保留原样，只去首尾空白），跳过空段落
func paragraphTexts(doc *goquery.Document) []string {
	var out []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// firstText 依次尝试选择器，返回第一个非空文本
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := processor.CollapseWhitespace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr 依次尝试 选择器/属性 组合，返回第一个非空属性值
func firstAttr(doc *goquery.Document, pairs ...[2]string) string {
	for _, p := range pairs {
		if v := strings.TrimSpace(doc.Find(p[0]).First().AttrOr(p[1], "")); v != "" {
			return v
		}
	}
	return ""
}
