// Package hosting 托管服务：随应用启动、在应用关闭时停止的后台组件
package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/mint/logging"
)

// HostedService 托管服务接口
// 框架会在独立的 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑。
	// Start 的 context 被取消时服务应自动停止，Stop 用于额外的清理工作。
	Stop(ctx context.Context) error
}

// Named 可选接口：为托管服务提供日志中使用的名称
type Named interface {
	Name() string
}

// NameOf 返回托管服务的名称
func NameOf(service HostedService) string {
	if n, ok := service.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", service)
}

// Func 把阻塞函数适配为托管服务，Stop 为空操作
type Func func(ctx context.Context) error

// Start 实现 HostedService
func (f Func) Start(ctx context.Context) error {
	return f(ctx)
}

// Stop 实现 HostedService
func (f Func) Stop(context.Context) error {
	return nil
}

// HostedServiceManager 托管服务管理器
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HostedServiceManager{
		services: make([]HostedService, 0),
		logger:   logger,
	}
}

// Add 添加托管服务
func (m *HostedServiceManager) Add(services ...HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range services {
		if s != nil {
			m.services = append(m.services, s)
		}
	}
}

// Len 返回托管服务数量
func (m *HostedServiceManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 并发启动所有托管服务
// 返回的通道接收服务 Start 返回的非取消错误，缓冲区大小等于服务数量
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))

	m.logger.Info("Starting hosted services",
		logging.Field{Key: "count", Value: len(m.services)})

	for _, service := range m.services {
		m.wg.Add(1)
		go func(svc HostedService) {
			defer m.wg.Done()
			name := NameOf(svc)

			m.logger.Debug("Starting hosted service", logging.Field{Key: "service", Value: name})

			err := m.start(ctx, svc)
			switch {
			case err == nil:
				m.logger.Info("Hosted service completed", logging.Field{Key: "service", Value: name})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("Hosted service stopped (context done)", logging.Field{Key: "service", Value: name})
			default:
				m.logger.Error("Hosted service error",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- fmt.Errorf("hosting: %s: %w", name, err)
			}
		}(service)
	}

	return errCh
}

// start 调用 Start 并把 panic 转为错误
func (m *HostedServiceManager) start(ctx context.Context, svc HostedService) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return svc.Start(ctx)
}

// StopAll 按添加顺序的逆序依次停止所有托管服务
// 单个服务停止失败不会中断其余服务，全部错误合并返回
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info("Stopping hosted services",
		logging.Field{Key: "count", Value: len(m.services)})

	var errs []error
	for i := len(m.services) - 1; i >= 0; i-- {
		svc := m.services[i]
		name := NameOf(svc)
		if err := svc.Stop(ctx); err != nil {
			m.logger.Error("Failed to stop hosted service",
				logging.Field{Key: "service", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
			errs = append(errs, fmt.Errorf("hosting: stop %s: %w", name, err))
			continue
		}
		m.logger.Debug("Hosted service stopped", logging.Field{Key: "service", Value: name})
	}

	return errors.Join(errs...)
}

// Wait 等待所有 Start 调用返回
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}

// WaitContext 等待所有 Start 调用返回，ctx 结束时放弃等待
func (m *HostedServiceManager) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BackgroundService 后台服务基类
type BackgroundService struct {
	name     string
	logger   logging.Logger
	stopOnce sync.Once
	doneOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Name 实现 Named
func (s *BackgroundService) Name() string {
	return s.name
}

// Start 阻塞直到停止信号或上下文取消
func (s *BackgroundService) Start(ctx context.Context) error {
	defer s.Done()
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	return nil
}

// Stop 发出停止信号并等待服务结束或超时
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Background service stop timeout", logging.Field{Key: "service", Value: s.name})
		return ctx.Err()
	}
}

// ShouldStop 检查是否应该停止
func (s *BackgroundService) ShouldStop() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务完成，可重复调用
func (s *BackgroundService) Done() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// TimedHostedService 定时托管服务：按固定间隔执行任务
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 启动定时服务；任务失败只记录日志，不会终止服务
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("Timed task failed",
					logging.Field{Key: "service", Value: s.name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
