package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/mint/config"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/hosting"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// ErrAlreadyRunning 应用已经在运行
var ErrAlreadyRunning = errors.New("core: application is already running")

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Injector() *inject.Injector
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	Events() *event.Manager
	GetService(ptr any) error
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	environment     string
	configBuilder   *config.ConfigurationBuilder
	loggingBuilder  *logging.LoggingBuilder
	catalog         *inject.Catalog
	modules         []inject.Module
	listeners       []event.Listener
	configurators   []Configurator
	shutdownTimeout time.Duration
	mu              sync.RWMutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewConfigurationBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		catalog:         inject.DefaultCatalog,
		configurators:   make([]Configurator, 0),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// UseCatalog 设置构造函数目录，默认为 inject.DefaultCatalog
func (b *ApplicationBuilder) UseCatalog(catalog *inject.Catalog) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if catalog != nil {
		b.catalog = catalog
	}
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// AddModule 添加注入模块
// 显式添加的模块优先于配置器贡献的模块，先添加的优先级更高
func (b *ApplicationBuilder) AddModule(modules ...inject.Module) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modules = append(b.modules, modules...)
	return b
}

// AddListener 添加事件监听器
func (b *ApplicationBuilder) AddListener(listeners ...event.Listener) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listeners...)
	return b
}

// Configure 添加配置器
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range configurators {
		if c != nil {
			b.configurators = append(b.configurators, c)
		}
	}
	return b
}

// AddExtension 添加应用程序扩展
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	validateExtension(ext)

	if mp, ok := ext.(ModuleProvider); ok {
		b.AddModule(mp.Modules()...)
	}
	if ac, ok := ext.(AppConfigurator); ok {
		b.Configure(ac.ConfigureBuilder)
	}
	if l, ok := ext.(event.Listener); ok {
		b.AddListener(l)
	}
	return b
}

// AddOptions 注册配置选项
// 使用示例: core.AddOptions[AppSetting](builder, "app")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddConfigValues 把配置键绑定为常量，供带标记的构造函数参数注入
func (b *ApplicationBuilder) AddConfigValues(constants ...config.Constant) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddModule(config.Module(ctx.GetConfiguration(), constants...))
	})
}

// AddHostedService 添加托管服务实例
func (b *ApplicationBuilder) AddHostedService(services ...hosting.HostedService) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		for _, s := range services {
			ctx.AddHostedService(s)
		}
	})
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.AddHostedService(hosting.Func(task))
}

// AddTimedTask 添加按固定间隔执行的后台任务
func (b *ApplicationBuilder) AddTimedTask(name string, interval time.Duration, task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(hosting.NewTimedHostedService(name, interval, task,
			ctx.LoggerFactory().CreateLogger("Task."+name)))
	})
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// Build 构建应用程序
//
// 依次构建配置、日志工厂与事件管理器，执行所有配置器，然后创建注入器。
// 核心服务（配置、日志、事件管理器、环境、注入器本身）由优先级最低的核心模块绑定：
// 任何模块为这些类型提供的绑定都会覆盖默认值。
func (b *ApplicationBuilder) Build() (Application, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg, err := b.configBuilder.BuildReloadable()
	if err != nil {
		return nil, fmt.Errorf("core: build configuration: %w", err)
	}

	if name := cfg.Get("logging:level"); name != "" {
		level, ok := logging.ParseLevel(name)
		if !ok {
			return nil, fmt.Errorf("core: unknown logging level %q", name)
		}
		b.loggingBuilder.SetMinimumLevel(level)
	}
	if err := b.loggingBuilder.Err(); err != nil {
		return nil, fmt.Errorf("core: build logging: %w", err)
	}
	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")

	logger.Info("Building application",
		logging.Field{Key: "environment", Value: b.environment})

	env := NewEnvironment(b.environment)
	events := event.NewManager(event.WithLogger(loggerFactory.CreateLogger("Events")))

	ctx := &BuildContext{
		configuration: cfg,
		loggerFactory: loggerFactory,
		logger:        logger,
		environment:   env,
		catalog:       b.catalog,
		events:        events,
	}
	for _, configurator := range b.configurators {
		configurator(ctx)
	}

	// 构建失败时释放已打开的资源（数据库、客户端等）
	fail := func(err error) (Application, error) {
		runCleanups(logger, ctx.cleanups)
		return nil, err
	}

	if err := errors.Join(ctx.errs...); err != nil {
		return fail(fmt.Errorf("core: configure application: %w", err))
	}

	modules := make([]inject.Module, 0, len(b.modules)+len(ctx.modules)+1)
	modules = append(modules, coreModule(cfg, loggerFactory, logger, events, env))
	modules = append(modules, b.modules...)
	modules = append(modules, ctx.modules...)

	injector, err := inject.NewInjectorBuilder().
		WithCatalog(b.catalog).
		WithLogger(loggerFactory.CreateLogger("Injector")).
		AddModule(modules...).
		Build()
	if err != nil {
		return fail(fmt.Errorf("core: create injector: %w", err))
	}
	if !injector.Binder().BindingExists(inject.TypeOf[*inject.Injector]()) {
		injector.Binder().BindSingleton(inject.TypeOf[*inject.Injector](), injector)
	}

	logger.Info("Injector created successfully")

	for _, fn := range ctx.takeOnBuilt() {
		if err := fn(injector); err != nil {
			return fail(err)
		}
	}

	listeners := append(append([]event.Listener{}, b.listeners...), ctx.listeners...)
	for _, l := range listeners {
		if _, err := events.RegisterListener(l); err != nil {
			return fail(fmt.Errorf("core: register listener %T: %w", l, err))
		}
	}

	return &application{
		injector:        injector,
		configuration:   cfg,
		logger:          logger,
		environment:     env,
		events:          events,
		hostedServices:  ctx.hostedServices,
		cleanups:        ctx.cleanups,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}, nil
}

// coreModule 绑定核心服务
// 它在模块列表最前面（最后安装），只绑定尚未被其他模块绑定的类型
func coreModule(cfg *config.ReloadableConfiguration, factory logging.LoggerFactory, logger logging.Logger, events *event.Manager, env Environment) inject.Module {
	return inject.NewModule("core", func(m *inject.AbstractModule) error {
		b, err := m.Binder()
		if err != nil {
			return err
		}
		bind := func(typ reflect.Type, instance any) {
			if b.BindingExists(typ) || b.SingletonExists(typ) {
				return
			}
			b.BindSingleton(typ, instance)
		}
		bind(inject.TypeOf[config.Configuration](), cfg)
		bind(inject.TypeOf[*config.ReloadableConfiguration](), cfg)
		bind(inject.TypeOf[logging.LoggerFactory](), factory)
		bind(inject.TypeOf[logging.Logger](), logger)
		bind(inject.TypeOf[*event.Manager](), events)
		bind(inject.TypeOf[Environment](), env)
		return nil
	})
}

// application 应用程序实现
type application struct {
	injector        *inject.Injector
	configuration   *config.ReloadableConfiguration
	logger          logging.Logger
	environment     Environment
	events          *event.Manager
	hostedServices  []hosting.HostedService
	serviceManager  *hosting.HostedServiceManager
	cleanups        []cleanup
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	running         bool
	mu              sync.RWMutex
}

// Run 运行应用程序（阻塞）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 运行应用程序，直到收到信号、Stop 被调用、ctx 结束或托管服务失败
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	a.logger.Info("Starting application",
		logging.Field{Key: "environment", Value: a.environment.Name()})

	// 文件配置源变化时自动重新加载
	go func() {
		if err := a.configuration.Watch(runCtx, a.logger); err != nil {
			a.logger.Warn("Failed to watch configuration",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	a.serviceManager = hosting.NewHostedServiceManager(a.logger)
	a.serviceManager.Add(a.hostedServices...)
	errCh := a.serviceManager.StartAll(runCtx)

	a.dispatch(&ApplicationStartedEvent{
		Environment: a.environment.Name(),
		Services:    a.serviceManager.Len(),
	})

	a.logger.Info("Application started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	var reason string

	select {
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal",
			logging.Field{Key: "signal", Value: sig.String()})
		reason = StopReasonSignal
	case <-a.stopCh:
		a.logger.Info("Application stop requested")
		reason = StopReasonStop
	case <-ctx.Done():
		a.logger.Info("Context cancelled")
		reason = StopReasonContext
	case err := <-errCh:
		a.logger.Error("Hosted service failed, stopping application",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
		reason = StopReasonFailure
	}

	a.dispatch(&ApplicationStoppingEvent{Reason: reason, Err: runErr})

	a.logger.Info("Shutting down application",
		logging.Field{Key: "timeout", Value: a.shutdownTimeout.String()})

	runCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.serviceManager.StopAll(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop hosted services",
			logging.Field{Key: "error", Value: err.Error()})
	}
	if err := a.serviceManager.WaitContext(shutdownCtx); err != nil {
		a.logger.Warn("Hosted services did not finish before shutdown timeout")
	}

	a.runCleanups()

	a.logger.Info("Application stopped")
	return runErr
}

// dispatch 分发生命周期事件；处理器错误只记录日志
func (a *application) dispatch(e event.Event) {
	if err := a.events.DispatchEvent(e); err != nil {
		a.logger.Warn("Lifecycle event handler failed",
			logging.Field{Key: "event", Value: fmt.Sprintf("%T", e)},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// runCleanups 按注册顺序的逆序执行清理函数
func (a *application) runCleanups() {
	runCleanups(a.logger, a.cleanups)
}

func runCleanups(logger logging.Logger, cleanups []cleanup) {
	if len(cleanups) == 0 {
		return
	}
	logger.Info("Running cleanup functions",
		logging.Field{Key: "count", Value: len(cleanups)})
	for i := len(cleanups) - 1; i >= 0; i-- {
		c := cleanups[i]
		logger.Debug("Running cleanup", logging.Field{Key: "key", Value: c.key})
		c.fn()
	}
}

// Stop 请求停止应用程序，可重复调用
func (a *application) Stop(context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	return nil
}

// Injector 获取注入器
func (a *application) Injector() *inject.Injector {
	return a.injector
}

// Configuration 获取配置
func (a *application) Configuration() config.Configuration {
	return a.configuration
}

// Logger 获取日志记录器
func (a *application) Logger() logging.Logger {
	return a.logger
}

// Environment 获取环境
func (a *application) Environment() Environment {
	return a.environment
}

// Events 获取事件管理器
func (a *application) Events() *event.Manager {
	return a.events
}

// GetService 从注入器获取服务实例并写入指针参数
//
// 使用示例：
//
//	var svc *MyService
//	err := app.GetService(&svc)
func (a *application) GetService(ptr any) error {
	return a.injector.Inject(ptr)
}
