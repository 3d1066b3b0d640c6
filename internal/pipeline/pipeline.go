package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LJTian/FilingPulse/internal/collector"
	"github.com/LJTian/FilingPulse/internal/extractor"
	"github.com/LJTian/FilingPulse/internal/persist"
	"github.com/LJTian/FilingPulse/internal/record"
)

// ItemState 单个 WorkItem 的处理阶段
type ItemState int

const (
	StatePending ItemState = iota
	StateFetched
	StateExtracted
	StateNormalized
	StateRecorded
	StateFailed
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetched:
		return "fetched"
	case StateExtracted:
		return "extracted"
	case StateNormalized:
		return "normalized"
	case StateRecorded:
		return "recorded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// 失败分类，用作 RunStats.Failed 的键
const (
	FailFetch   = "fetch"
	FailExtract = "extract"
	FailDate    = "date"
	FailOther   = "other"
)

// Persister 把累积快照整体写出
type Persister interface {
	Prepare() error
	Flush(header []string, snapshot []record.Record) error
	Path() string
}

type TextNormalizer interface {
	Normalize(text string) string
}

// RunObserver 在一次运行结束（含取消）后收到统计与最终快照
type RunObserver interface {
	OnRunFinished(ctx context.Context, stats RunStats, header []string, snapshot []record.Record) error
}

type Options struct {
	// JobName 写入 RunStats.Job，便于运行历史区分不同任务
	JobName   string
	Logger    *logrus.Logger
	Observer  RunObserver
	PageParam string
	// Denylist 为空时使用 collector.DefaultDenylist
	Denylist []string
}

type Driver struct {
	fetcher    collector.Fetcher
	extractor  extractor.Extractor
	normalizer TextNormalizer
	persister  Persister

	jobName   string
	log       *logrus.Logger
	observer  RunObserver
	pageParam string
	denylist  []string
}

func NewDriver(f collector.Fetcher, ex extractor.Extractor, n TextNormalizer, p Persister, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if len(opts.Denylist) == 0 {
		opts.Denylist = collector.DefaultDenylist()
	}
	return &Driver{
		fetcher:    f,
		extractor:  ex,
		normalizer: n,
		persister:  p,
		jobName:    opts.JobName,
		log:        opts.Logger,
		observer:   opts.Observer,
		pageParam:  opts.PageParam,
		denylist:   opts.Denylist,
	}
}

// run 一次运行的可变状态，只被 Driver 所在 goroutine 访问
type run struct {
	acc   *record.Accumulator
	stats RunStats
	index int
}

func (d *Driver) start(mode string) (*run, error) {
	r := &run{
		acc: record.NewAccumulator(),
		stats: RunStats{
			Job:       d.jobName,
			Variant:   d.extractor.Name(),
			Mode:      mode,
			Output:    d.persister.Path(),
			StartedAt: time.Now(),
			Failed:    make(map[string]int),
		},
	}
	// 输出目录不可用属于运行级错误，不处理任何条目
	if err := d.persister.Prepare(); err != nil {
		r.stats.FinishedAt = time.Now()
		return r, fmt.Errorf("prepare output: %w", err)
	}
	return r, nil
}

// Run 按顺序处理给定 URL 列表
func (d *Driver) Run(ctx context.Context, urls []string) (RunStats, error) {
	r, err := d.start(ModeURLs)
	if err != nil {
		return r.stats, err
	}

	for _, u := range urls {
		if ctx.Err() != nil {
			r.stats.Cancelled = true
			break
		}
		if err := d.step(ctx, r, u); err != nil {
			return d.finish(ctx, r, err)
		}
	}
	return d.finish(ctx, r, nil)
}

// RunSearch 逐页抓取搜索结果，把新发现的链接送入同一处理循环
func (d *Driver) RunSearch(ctx context.Context, searchURL string, numPages int) (RunStats, error) {
	r, err := d.start(ModeSearch)
	if err != nil {
		return r.stats, err
	}
	if numPages < 1 {
		numPages = 1
	}

	queued := make(map[string]struct{})
pages:
	for page := 1; page <= numPages; page++ {
		if ctx.Err() != nil {
			r.stats.Cancelled = true
			break
		}

		pageURL, err := collector.SearchPageURL(searchURL, page, d.pageParam)
		if err != nil {
			return d.finish(ctx, r, err)
		}
		r.stats.SearchPages++

		plog := d.log.WithFields(logrus.Fields{"search_page": page, "url": pageURL})
		body, err := d.fetcher.Fetch(context.WithoutCancel(ctx), pageURL)
		if err != nil {
			r.stats.SearchPageFailures++
			plog.Warnf("fetch search page error: %v", err)
			continue
		}
		links, err := collector.DiscoverLinks(body, d.denylist)
		if err != nil {
			r.stats.SearchPageFailures++
			plog.Warnf("parse search page error: %v", err)
			continue
		}

		for _, link := range links {
			if _, ok := queued[link]; ok || r.acc.Has(link) {
				continue
			}
			queued[link] = struct{}{}
			r.stats.Discovered++

			if ctx.Err() != nil {
				r.stats.Cancelled = true
				break pages
			}
			if err := d.step(ctx, r, link); err != nil {
				return d.finish(ctx, r, err)
			}
		}
		plog.Infof("search page done, links=%d", len(links))
	}
	return d.finish(ctx, r, nil)
}

// step 处理一个条目后立即落盘；只有持久化失败会返回错误
func (d *Driver) step(ctx context.Context, r *run, pageURL string) error {
	r.index++
	r.stats.Visited++

	state, err := d.processItem(ctx, r, pageURL)
	if err != nil {
		kind := classify(err)
		r.stats.Failed[kind]++
		d.log.WithFields(logrus.Fields{
			"url":   pageURL,
			"index": r.index,
			"stage": state.String(),
			"kind":  kind,
		}).Warnf("item failed: %v", err)
	}
	return d.flush(r)
}

// processItem 返回失败时所处的阶段，成功时返回 StateRecorded
func (d *Driver) processItem(ctx context.Context, r *run, pageURL string) (ItemState, error) {
	// 取消只在条目之间生效，进行中的抓取不被打断
	body, err := d.fetcher.Fetch(context.WithoutCancel(ctx), pageURL)
	if err != nil {
		return StatePending, err
	}
	r.stats.Fetched++

	rec, err := d.extractor.Extract(pageURL, body)
	if err != nil {
		return StateFetched, err
	}
	r.stats.Extracted++

	normalized := d.normalizer.Normalize(rec.Text())
	rec, err = d.extractor.Complete(rec, normalized)
	if err != nil {
		return StateNormalized, err
	}

	if r.acc.Upsert(rec) {
		r.stats.Overwritten++
		d.log.WithFields(logrus.Fields{"url": pageURL, "key": rec.Key()}).Info("record overwritten")
	}
	r.stats.Recorded++
	return StateRecorded, nil
}

func (d *Driver) flush(r *run) error {
	if err := d.persister.Flush(d.extractor.Header(), r.acc.Snapshot()); err != nil {
		return err
	}
	r.stats.Flushes++
	return nil
}

// finish 做最终落盘并通知观察者；cause 非空时说明运行提前结束
func (d *Driver) finish(ctx context.Context, r *run, cause error) (RunStats, error) {
	var persistErr *persist.PersistError
	if !errors.As(cause, &persistErr) {
		if err := d.flush(r); err != nil && cause == nil {
			cause = err
		}
	}
	r.stats.Rows = r.acc.Len()
	r.stats.FinishedAt = time.Now()
	if cause != nil {
		r.stats.Error = cause.Error()
	}

	d.log.WithFields(logrus.Fields{
		"variant":   r.stats.Variant,
		"visited":   r.stats.Visited,
		"recorded":  r.stats.Recorded,
		"failed":    r.stats.FailedTotal(),
		"rows":      r.stats.Rows,
		"cancelled": r.stats.Cancelled,
		"output":    r.stats.Output,
	}).Info("pipeline run done")

	if d.observer != nil {
		if err := d.observer.OnRunFinished(context.WithoutCancel(ctx), r.stats, d.extractor.Header(), r.acc.Snapshot()); err != nil {
			d.log.Warnf("record run history error: %v", err)
		}
	}
	return r.stats, cause
}

func classify(err error) string {
	var (
		fe  *collector.FetchError
		dpe *extractor.DateParseError
		ee  *extractor.ExtractionError
	)
	switch {
	case errors.As(err, &fe):
		return FailFetch
	case errors.As(err, &dpe):
		return FailDate
	case errors.As(err, &ee):
		return FailExtract
	}
	return FailOther
}
