package core

import (
	"fmt"
	"sync"

	"github.com/gocrud/mint/config"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/hosting"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// Configurator 配置器函数类型
// 配置器用于扩展应用程序：贡献注入模块、事件监听器、托管服务与清理函数
type Configurator func(*BuildContext)

// BuildContext 构建上下文
// 提供给配置器的上下文环境，包含配置、日志、事件管理器与类型目录
type BuildContext struct {
	configuration *config.ReloadableConfiguration
	loggerFactory logging.LoggerFactory
	logger        logging.Logger
	environment   Environment
	catalog       *inject.Catalog
	events        *event.Manager

	modules        []inject.Module
	listeners      []event.Listener
	hostedServices []hosting.HostedService
	onBuilt        []func(*inject.Injector) error
	cleanups       []cleanup
	errs           []error

	mu sync.Mutex
}

type cleanup struct {
	key string
	fn  func()
}

// AddModule 添加注入模块；先添加的模块优先级更高
func (c *BuildContext) AddModule(modules ...inject.Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules = append(c.modules, modules...)
}

// AddListener 添加事件监听器，注入器创建后注册到事件管理器
func (c *BuildContext) AddListener(listeners ...event.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listeners...)
}

// AddHostedService 添加托管服务
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedServices = append(c.hostedServices, service)
}

// OnInjectorBuilt 注册注入器创建后的回调，用于解析依赖注入构造的组件
// 回调按注册顺序执行，返回错误时 Build 失败
func (c *BuildContext) OnInjectorBuilt(fn func(*inject.Injector) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBuilt = append(c.onBuilt, fn)
}

// SetCleanup 设置资源清理函数；同一个 key 只保留最后一次设置
// 应用停止时按注册顺序的逆序执行
func (c *BuildContext) SetCleanup(key string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cleanups {
		if c.cleanups[i].key == key {
			c.cleanups[i].fn = fn
			return
		}
	}
	c.cleanups = append(c.cleanups, cleanup{key: key, fn: fn})
}

// Fail 记录配置错误，Build 会返回所有记录的错误
func (c *BuildContext) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// GetLogger 获取日志记录器
func (c *BuildContext) GetLogger() logging.Logger {
	return c.logger
}

// LoggerFactory 获取日志工厂
func (c *BuildContext) LoggerFactory() logging.LoggerFactory {
	return c.loggerFactory
}

// GetConfiguration 获取配置对象
func (c *BuildContext) GetConfiguration() config.Configuration {
	return c.configuration
}

// GetEnvironment 获取环境信息
func (c *BuildContext) GetEnvironment() Environment {
	return c.environment
}

// Catalog 获取构造函数目录
func (c *BuildContext) Catalog() *inject.Catalog {
	return c.catalog
}

// Events 获取事件管理器
func (c *BuildContext) Events() *event.Manager {
	return c.events
}

// ConfigureOptions 配置选项模式：绑定 config.Option[T] 与 config.OptionMonitor[T]
// 使用示例: core.ConfigureOptions[AppSetting](ctx, "app")
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	ctx.AddModule(config.OptionsModule[T](ctx.configuration, section))

	ctx.logger.Debug("Configured options",
		logging.Field{Key: "type", Value: inject.TypeOf[T]().String()},
		logging.Field{Key: "section", Value: section})
}

// AddHostedServiceOf 从注入器解析类型 T 作为托管服务
// T 的构造函数需要在目录中登记，或者由某个模块绑定
func AddHostedServiceOf[T hosting.HostedService](ctx *BuildContext) {
	ctx.OnInjectorBuilt(func(injector *inject.Injector) error {
		svc, err := inject.Get[T](injector)
		if err != nil {
			return fmt.Errorf("core: resolve hosted service %v: %w", inject.TypeOf[T](), err)
		}
		ctx.AddHostedService(svc)
		return nil
	})
}

// AddListenerOf 从注入器解析类型 T 作为事件监听器
func AddListenerOf[T event.Listener](ctx *BuildContext) {
	ctx.OnInjectorBuilt(func(injector *inject.Injector) error {
		l, err := inject.Get[T](injector)
		if err != nil {
			return fmt.Errorf("core: resolve listener %v: %w", inject.TypeOf[T](), err)
		}
		ctx.AddListener(l)
		return nil
	})
}

// takeOnBuilt 取出并清空注入器回调
func (c *BuildContext) takeOnBuilt() []func(*inject.Injector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := c.onBuilt
	c.onBuilt = nil
	return fns
}
