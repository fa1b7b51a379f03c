package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// Scheduler Cron 定时任务托管服务
type Scheduler struct {
	cron     *cron.Cron
	logger   logging.Logger
	events   *event.Manager
	injector atomic.Pointer[inject.Injector]
	mu       sync.RWMutex
	jobs     map[string]job
}

type job struct {
	id   cron.EntryID
	spec string
}

// Entry 任务调度信息
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// options Scheduler 配置选项
type options struct {
	// Location 时区，默认 UTC
	Location *time.Location
	// EnableSeconds 是否启用秒级精度（默认分钟级）
	EnableSeconds bool
	// EnableCronLogger 是否启用 cron 库的内部调度日志
	EnableCronLogger bool
}

// newScheduler 创建 Cron 托管服务；events 为 nil 时不分发任务事件
func newScheduler(logger logging.Logger, events *event.Manager, opt options) *Scheduler {
	if logger == nil {
		logger = logging.Nop()
	}

	cronOpts := []cron.Option{
		cron.WithChain(cron.Recover(newCronLogger(logger))),
	}
	if opt.EnableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	if opt.EnableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}
	if opt.Location != nil {
		cronOpts = append(cronOpts, cron.WithLocation(opt.Location))
	}

	return &Scheduler{
		cron:   cron.New(cronOpts...),
		logger: logger,
		events: events,
		jobs:   make(map[string]job),
	}
}

// addJob 添加定时任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "@every 1h"
func (s *Scheduler) addJob(spec, name string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron job '%s' already registered", name)
	}

	entryID, err := s.cron.AddFunc(spec, func() { s.run(name, spec, fn) })
	if err != nil {
		return fmt.Errorf("failed to add cron job '%s': %w", name, err)
	}

	s.jobs[name] = job{id: entryID, spec: spec}
	s.logger.Debug("Cron job registered",
		logging.Field{Key: "job", Value: name},
		logging.Field{Key: "spec", Value: spec})
	return nil
}

// addInjectedJob 添加参数由注入器解析的任务
func (s *Scheduler) addInjectedJob(spec, name string, handler any) error {
	if err := inject.CheckCallable(handler); err != nil {
		return fmt.Errorf("cron job '%s': %w", name, err)
	}
	return s.addJob(spec, name, func() error {
		injector := s.injector.Load()
		if injector == nil {
			return fmt.Errorf("cron: injector not ready for job '%s'", name)
		}
		return injector.Call(handler)
	})
}

// setInjector 注入器创建后调用
func (s *Scheduler) setInjector(injector *inject.Injector) {
	s.injector.Store(injector)
}

// run 执行一次任务：先分发 JobEvent，未被取消时执行并分发 JobCompletedEvent
func (s *Scheduler) run(name, spec string, fn func() error) {
	if s.events != nil {
		evt := &JobEvent{Job: name, Spec: spec, Time: time.Now()}
		if err := s.events.DispatchEvent(evt); err != nil {
			s.logger.Warn("Cron job event handler failed",
				logging.Field{Key: "job", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
		}
		if evt.IsCancelled() {
			s.logger.Debug("Cron job skipped", logging.Field{Key: "job", Value: name})
			return
		}
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Error("Cron job failed",
			logging.Field{Key: "job", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		s.logger.Debug("Cron job completed",
			logging.Field{Key: "job", Value: name},
			logging.Field{Key: "elapsed", Value: elapsed.String()})
	}

	if s.events != nil {
		if derr := s.events.DispatchEvent(&JobCompletedEvent{Job: name, Err: err, Duration: elapsed}); derr != nil {
			s.logger.Warn("Cron job event handler failed",
				logging.Field{Key: "job", Value: name},
				logging.Field{Key: "error", Value: derr.Error()})
		}
	}
}

// Trigger 立即同步执行指定任务一次，不影响调度
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("cron job '%s' not found", name)
	}

	s.cron.Entry(j.id).WrappedJob.Run()
	return nil
}

// Remove 移除定时任务
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[name]
	if !exists {
		return false
	}
	s.cron.Remove(j.id)
	delete(s.jobs, name)
	s.logger.Info("Cron job removed", logging.Field{Key: "job", Value: name})
	return true
}

// Entries 按名称排序返回所有任务的调度信息
func (s *Scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.jobs))
	for name, j := range s.jobs {
		e := s.cron.Entry(j.id)
		entries = append(entries, Entry{Name: name, Spec: j.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name < entries[b].Name })
	return entries
}

// Name 实现 hosting.Named
func (s *Scheduler) Name() string {
	return "cron"
}

// Start 启动调度并阻塞直到上下文取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Cron scheduler starting", logging.Field{Key: "jobs", Value: len(s.jobs)})
	s.cron.Start()

	<-ctx.Done()
	return nil
}

// Stop 停止调度并等待正在运行的任务完成
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Cron scheduler stopping")

	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("Cron scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Cron scheduler stop timeout, forcing shutdown")
		return ctx.Err()
	}
}

// cronLogger 适配器：将框架日志接口适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprintf("%v", keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
