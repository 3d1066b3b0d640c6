package processor

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// 情感分聚合方式
const (
	// SentimentMean 所有句子 compound 分的平均值（默认）
	SentimentMean = "mean"
	// SentimentLast 只保留最后一句的分数，与旧版脚本输出保持兼容
	SentimentLast = "last"
)

// Scorer 对单个句子打分，返回 [-1, 1] 区间的 compound 极性
type Scorer interface {
	Score(sentence string) float64
}

// Splitter 把文本切成句子
type Splitter interface {
	Split(text string) []string
}

// VaderScorer 基于 VADER 词典的情感打分
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Score(sentence string) float64 {
	return v.analyzer.PolarityScores(sentence).Compound
}

// PunktSplitter 使用英文 punkt 模型分句
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewPunktSplitter() (*PunktSplitter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load english sentence tokenizer: %w", err)
	}
	return &PunktSplitter{tokenizer: tok}, nil
}

func (p *PunktSplitter) Split(text string) []string {
	var out []string
	for _, s := range p.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SentimentScorer 对清洗后的正文逐句打分并聚合
type SentimentScorer struct {
	splitter Splitter
	scorer   Scorer
	mode     string
}

func NewSentimentScorer(splitter Splitter, scorer Scorer, mode string) (*SentimentScorer, error) {
	switch mode {
	case "":
		mode = SentimentMean
	case SentimentMean, SentimentLast:
	default:
		return nil, fmt.Errorf("unknown sentiment mode %q", mode)
	}
	return &SentimentScorer{splitter: splitter, scorer: scorer, mode: mode}, nil
}

// NewDefaultSentimentScorer punkt 分句 + VADER 打分
func NewDefaultSentimentScorer(mode string) (*SentimentScorer, error) {
	splitter, err := NewPunktSplitter()
	if err != nil {
		return nil, err
	}
	return NewSentimentScorer(splitter, NewVaderScorer(), mode)
}

// ScoreText 没有句子时返回 0
func (s *SentimentScorer) ScoreText(text string) float64 {
	sents := s.splitter.Split(text)
	if len(sents) == 0 {
		return 0
	}

	if s.mode == SentimentLast {
		return round4(s.scorer.Score(sents[len(sents)-1]))
	}

	var sum float64
	for _, sent := range sents {
		sum += s.scorer.Score(sent)
	}
	return round4(sum / float64(len(sents)))
}

func (s *SentimentScorer) Mode() string {
	return s.mode
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
