package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/LJTian/FilingPulse/internal/pipeline"
)

var (
	ErrJobRunning = errors.New("job is already running")
	ErrUnknownJob = errors.New("unknown job")
)

// Runner 一次完整的抓取任务
type Runner interface {
	Run(ctx context.Context) (pipeline.RunStats, error)
}

// JobSpec 一个任务与它的 cron 表达式；CronSpec 为空时只允许手动触发
type JobSpec struct {
	Name     string
	CronSpec string
	Runner   Runner
}

// JobStatus 对外展示的任务状态
type JobStatus struct {
	Name     string             `json:"name"`
	CronSpec string             `json:"cronSpec"`
	Running  bool               `json:"running"`
	LastRun  *pipeline.RunStats `json:"lastRun,omitempty"`
	LastErr  string             `json:"lastError,omitempty"`
	NextRun  *time.Time         `json:"nextRun,omitempty"`
}

type job struct {
	spec    JobSpec
	entry   cron.EntryID
	running sync.Mutex
	active  atomic.Bool

	mu      sync.Mutex
	last    *pipeline.RunStats
	lastErr error
}

// Scheduler 按 cron 周期运行 pipeline 任务。同一任务同时最多运行一次，
// 两次运行不会同时写同一个输出文件。
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	jobs map[string]*job
}

func New(specs []JobSpec, log *logrus.Logger) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*job),
	}

	for _, spec := range specs {
		if _, dup := s.jobs[spec.Name]; dup {
			cancel()
			return nil, fmt.Errorf("duplicate job %q", spec.Name)
		}
		j := &job{spec: spec}
		if spec.CronSpec != "" {
			id, err := s.cron.AddFunc(spec.CronSpec, func() { s.runJob(j) })
			if err != nil {
				cancel()
				return nil, fmt.Errorf("add job %s (%s): %w", spec.Name, spec.CronSpec, err)
			}
			j.entry = id
		}
		s.jobs[spec.Name] = j
	}
	return s, nil
}

// Cron 暴露底层 cron，便于追加其它周期任务
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并取消进行中的任务；任务会在当前条目结束后做最终落盘再退出
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Trigger 在后台立即运行一次任务，任务正在运行时返回 ErrJobRunning
func (s *Scheduler) Trigger(name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if !j.running.TryLock() {
		return ErrJobRunning
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer j.running.Unlock()
		s.execute(j)
	}()
	return nil
}

// RunOnce 同步运行一次任务，方便命令行或测试直接调用
func (s *Scheduler) RunOnce(name string) (pipeline.RunStats, error) {
	j, ok := s.jobs[name]
	if !ok {
		return pipeline.RunStats{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if !j.running.TryLock() {
		return pipeline.RunStats{}, ErrJobRunning
	}
	defer j.running.Unlock()
	return s.execute(j)
}

func (s *Scheduler) runJob(j *job) {
	if !j.running.TryLock() {
		s.log.WithField("job", j.spec.Name).Info("previous run still in progress, skip")
		return
	}
	defer j.running.Unlock()
	s.wg.Add(1)
	defer s.wg.Done()
	s.execute(j)
}

func (s *Scheduler) execute(j *job) (pipeline.RunStats, error) {
	log := s.log.WithField("job", j.spec.Name)
	log.Info("start scrape job...")
	j.active.Store(true)
	defer j.active.Store(false)

	stats, err := j.spec.Runner.Run(s.ctx)

	j.mu.Lock()
	j.last = &stats
	j.lastErr = err
	j.mu.Unlock()

	if err != nil {
		log.Errorf("job %s error: %v", j.spec.Name, err)
		return stats, err
	}
	log.Infof("%s done, visited=%d recorded=%d rows=%d", j.spec.Name, stats.Visited, stats.Recorded, stats.Rows)
	return stats, nil
}

// LastRun 返回任务最近一次运行的统计
func (s *Scheduler) LastRun(name string) (pipeline.RunStats, bool) {
	j, ok := s.jobs[name]
	if !ok {
		return pipeline.RunStats{}, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return pipeline.RunStats{}, false
	}
	return *j.last, true
}

// Jobs 按名称排序返回所有任务状态
func (s *Scheduler) Jobs() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for name, j := range s.jobs {
		st := JobStatus{Name: name, CronSpec: j.spec.CronSpec, Running: j.active.Load()}

		j.mu.Lock()
		if j.last != nil {
			last := *j.last
			st.LastRun = &last
		}
		if j.lastErr != nil {
			st.LastErr = j.lastErr.Error()
		}
		j.mu.Unlock()

		if j.entry != 0 {
			if next := s.cron.Entry(j.entry).Next; !next.IsZero() {
				st.NextRun = &next
			}
		}
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
