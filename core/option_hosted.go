package core

import (
	"context"
	"time"

	"github.com/gocrud/mint/config"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/hosting"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// WithHostedService 注册托管服务
// 框架会在独立的 goroutine 中调用 Start，在关闭时调用 Stop
func WithHostedService(services ...hosting.HostedService) Option {
	return func(b *ApplicationBuilder) error {
		b.AddHostedService(services...)
		return nil
	}
}

// WorkerFunc 定义简单的后台任务函数
// 这是一个阻塞函数，通过 ctx.Done() 判断退出。
type WorkerFunc func(ctx context.Context) error

// WithWorker 将一个阻塞的函数注册为后台服务
func WithWorker(fn WorkerFunc) Option {
	return func(b *ApplicationBuilder) error {
		b.AddTask(fn)
		return nil
	}
}

// WithTimedWorker 将函数注册为按固定间隔执行的后台服务
func WithTimedWorker(name string, interval time.Duration, fn WorkerFunc) Option {
	return func(b *ApplicationBuilder) error {
		b.AddTimedTask(name, interval, fn)
		return nil
	}
}

// WithModule 添加注入模块
func WithModule(modules ...inject.Module) Option {
	return func(b *ApplicationBuilder) error {
		b.AddModule(modules...)
		return nil
	}
}

// WithListener 添加事件监听器
func WithListener(listeners ...event.Listener) Option {
	return func(b *ApplicationBuilder) error {
		b.AddListener(listeners...)
		return nil
	}
}

// WithConfigurator 添加配置器
func WithConfigurator(configurators ...Configurator) Option {
	return func(b *ApplicationBuilder) error {
		b.Configure(configurators...)
		return nil
	}
}

// WithConfiguration 配置配置源
func WithConfiguration(configure func(*config.ConfigurationBuilder)) Option {
	return func(b *ApplicationBuilder) error {
		b.ConfigureConfiguration(configure)
		return nil
	}
}

// WithLogging 配置日志
func WithLogging(configure func(*logging.LoggingBuilder)) Option {
	return func(b *ApplicationBuilder) error {
		b.ConfigureLogging(configure)
		return nil
	}
}

// WithEnvironment 设置环境名称
func WithEnvironment(env string) Option {
	return func(b *ApplicationBuilder) error {
		b.UseEnvironment(env)
		return nil
	}
}
