package extractor

import "fmt"

// ExtractionError 页面缺少必需元素；结构性问题，重试无意义
type ExtractionError struct {
	URL     string
	Element string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: required element %q not found", e.URL, e.Element)
}

// DateParseError 找到了报告期标记，但后续文本不符合 "<月份> <日>, <年>" 格式
type DateParseError struct {
	URL    string
	Text   string
	Reason string
}

func (e *DateParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse quarterly date %q: %s", e.Text, e.Reason)
	}
	return fmt.Sprintf("parse quarterly date %q from %s: %s", e.Text, e.URL, e.Reason)
}
