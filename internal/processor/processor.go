package processor

import (
	"strings"
	"unicode"
)

// Normalizer 把抽取出的原始正文清洗为适合情感打分的规范形式：
// 只保留英文字母、空格与句点，转小写，合并空白，去掉停用词。
// 纯函数，不修改任何 Record 的原始字段。
type Normalizer struct {
	stopWords map[string]struct{}
}

func NewNormalizer() *Normalizer {
	return NewNormalizerWithStopWords(englishStopWords)
}

// NewNormalizerWithStopWords 使用自定义停用词表（大小写不敏感）
func NewNormalizerWithStopWords(words []string) *Normalizer {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Normalizer{stopWords: set}
}

func (n *Normalizer) Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == ' ', r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			// 换行、制表符、不间断空格统一视作单词分隔
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(strings.ToLower(b.String()))
	kept := words[:0]
	for _, w := range words {
		if n.IsStopWord(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func (n *Normalizer) IsStopWord(word string) bool {
	_, ok := n.stopWords[strings.ToLower(word)]
	return ok
}

// CollapseWhitespace 合并连续空白并去掉首尾空白
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
