package pipeline

import (
	"context"
	"time"
)

const (
	ModeURLs   = "urls"
	ModeSearch = "search"
)

// RunStats 一次运行的计数与结果
type RunStats struct {
	Job     string `json:"job,omitempty"`
	Variant string `json:"variant"`
	Mode    string `json:"mode"`
	Output  string `json:"output"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Visited     int            `json:"visited"`
	Fetched     int            `json:"fetched"`
	Extracted   int            `json:"extracted"`
	Recorded    int            `json:"recorded"`
	Overwritten int            `json:"overwritten"`
	Failed      map[string]int `json:"failed"`
	Flushes     int            `json:"flushes"`
	Rows        int            `json:"rows"`

	SearchPages        int `json:"searchPages,omitempty"`
	SearchPageFailures int `json:"searchPageFailures,omitempty"`
	Discovered         int `json:"discovered,omitempty"`

	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty"`
}

func (s RunStats) FailedTotal() int {
	n := 0
	for _, v := range s.Failed {
		n += v
	}
	return n
}

func (s RunStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Job 绑定一个 Driver 与它的输入，供 CLI 和定时任务复用
type Job struct {
	Name   string
	Driver *Driver

	URLs        []string
	SearchURL   string
	SearchPages int
}

// Run 有搜索地址时走搜索模式，否则处理静态 URL 列表
func (j *Job) Run(ctx context.Context) (RunStats, error) {
	if j.SearchURL != "" {
		return j.Driver.RunSearch(ctx, j.SearchURL, j.SearchPages)
	}
	return j.Driver.Run(ctx, j.URLs)
}
