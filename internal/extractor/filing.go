package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LJTian/FilingPulse/internal/record"
)

// FilingExtractor 处理 SEC 10-Q 季度报告：报告期日期作为 Key，全文情感分作为值
type FilingExtractor struct {
	scorer TextScorer
}

func NewFilingExtractor(scorer TextScorer) *FilingExtractor {
	return &FilingExtractor{scorer: scorer}
}

func (f *FilingExtractor) Name() string {
	return record.VariantFilings
}

func (f *FilingExtractor) Header() []string {
	return record.FilingHeader()
}

func (f *FilingExtractor) Extract(pageURL string, body []byte) (record.Record, error) {
	doc, err := parseDocument(pageURL, body)
	if err != nil {
		return nil, err
	}

	paras := paragraphTexts(doc)
	if len(paras) == 0 {
		return nil, &ExtractionError{URL: pageURL, Element: "p"}
	}

	// 标记可能出现在多个段落里（封面、页眉），取第一个能成功解析的
	var (
		date     string
		firstErr error
	)
	for _, p := range paras {
		d, found, err := FindQuarterDate(p)
		if !found {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		date = d
		break
	}

	if date == "" {
		if firstErr != nil {
			var dpe *DateParseError
			if errors.As(firstErr, &dpe) {
				dpe.URL = pageURL
			}
			return nil, firstErr
		}
		return nil, &ExtractionError{URL: pageURL, Element: QuarterMarker}
	}

	return &record.FilingRecord{
		URL:        pageURL,
		FilingDate: date,
		RawText:    strings.Join(paras, " "),
	}, nil
}

func (f *FilingExtractor) Complete(rec record.Record, normalized string) (record.Record, error) {
	fr, ok := rec.(*record.FilingRecord)
	if !ok {
		return nil, fmt.Errorf("filing extractor: unexpected record type %T", rec)
	}
	out := *fr
	out.SentimentScore = f.scorer.ScoreText(normalized)
	return &out, nil
}
