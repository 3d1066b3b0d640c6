package extractor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuarterMarker 10-Q 封面中标识报告期的固定短语
const QuarterMarker = "for the quarterly period ended"

var monthNumbers = map[string]int{
	"january":   1,
	"february":  2,
	"march":     3,
	"april":     4,
	"may":       5,
	"june":      6,
	"july":      7,
	"august":    8,
	"september": 9,
	"october":   10,
	"november":  11,
	"december":  12,
}

// FindQuarterDate 在文本中查找报告期标记并解析为 YYYY-MM-DD。
// 没有标记时 found=false；有标记但格式不对时返回 *DateParseError。
func FindQuarterDate(text string) (date string, found bool, err error) {
	// SEC 页面常用不间断空格，先统一空白再匹配
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	idx := strings.Index(norm, QuarterMarker)
	if idx < 0 {
		return "", false, nil
	}

	rest := strings.TrimSpace(norm[idx+len(QuarterMarker):])
	date, err = ParseQuarterDate(rest)
	if err != nil {
		return "", true, err
	}
	return date, true, nil
}

// ParseQuarterDate 解析 "<month-name> <day>, <year>"（逗号可省略），忽略其后的文本
func ParseQuarterDate(s string) (string, error) {
	fields := strings.Fields(strings.ReplaceAll(strings.ToLower(s), ",", " "))
	if len(fields) < 3 {
		return "", &DateParseError{Text: s, Reason: "expected <month> <day>, <year>"}
	}

	month, ok := monthNumbers[fields[0]]
	if !ok {
		return "", &DateParseError{Text: s, Reason: fmt.Sprintf("unknown month %q", fields[0])}
	}

	day, err := strconv.Atoi(fields[1])
	if err != nil || day < 1 || day > 31 {
		return "", &DateParseError{Text: s, Reason: fmt.Sprintf("invalid day %q", fields[1])}
	}

	yearText := strings.TrimRight(fields[2], ".;:)")
	year, err := strconv.Atoi(yearText)
	if err != nil || len(yearText) != 4 {
		return "", &DateParseError{Text: s, Reason: fmt.Sprintf("invalid year %q", fields[2])}
	}

	out := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	// 过滤 February 30 这类不存在的日期
	if _, err := time.Parse("2006-01-02", out); err != nil {
		return "", &DateParseError{Text: s, Reason: fmt.Sprintf("no such date %s", out)}
	}
	return out, nil
}
