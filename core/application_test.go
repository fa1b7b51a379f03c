package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/mint/config"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/hosting"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

func newTestBuilder() *ApplicationBuilder {
	return NewApplicationBuilder().
		UseCatalog(inject.NewCatalog()).
		UseShutdownTimeout(time.Second)
}

type taggedLogger struct {
	logging.Logger
}

func TestBuild_BindsCoreServices(t *testing.T) {
	app, err := newTestBuilder().UseEnvironment("staging").Build()
	require.NoError(t, err)

	injector := app.Injector()
	assert.Same(t, injector, inject.MustGet[*inject.Injector](injector))
	assert.Same(t, app.Events(), inject.MustGet[*event.Manager](injector))
	assert.Equal(t, app.Configuration(), inject.MustGet[config.Configuration](injector))
	assert.NotNil(t, inject.MustGet[*config.ReloadableConfiguration](injector))
	assert.NotNil(t, inject.MustGet[logging.LoggerFactory](injector))
	assert.NotNil(t, inject.MustGet[logging.Logger](injector))
	assert.True(t, inject.MustGet[Environment](injector).IsStaging())
	assert.True(t, app.Environment().IsStaging())
}

func TestBuild_ModulesOverrideCoreBindings(t *testing.T) {
	custom := &taggedLogger{Logger: logging.Nop()}

	app, err := newTestBuilder().
		AddModule(inject.ModuleFunc(func(b inject.Binder) error {
			b.BindSingleton(inject.TypeOf[logging.Logger](), custom)
			return nil
		})).
		Build()
	require.NoError(t, err)

	assert.Same(t, custom, inject.MustGet[logging.Logger](app.Injector()))
}

func TestBuild_ExplicitModulesWinOverConfigurators(t *testing.T) {
	marker := inject.NewMarker("greeting")

	app, err := newTestBuilder().
		Configure(func(ctx *BuildContext) {
			ctx.AddModule(inject.ModuleFunc(func(b inject.Binder) error {
				return inject.BindConstant(b, marker, "from configurator")
			}))
		}).
		AddModule(inject.ModuleFunc(func(b inject.Binder) error {
			return inject.BindConstant(b, marker, "explicit")
		})).
		Build()
	require.NoError(t, err)

	v, ok := app.Injector().Binder().Constant(inject.TypeOf[string](), marker)
	require.True(t, ok)
	assert.Equal(t, "explicit", v)
}

func TestBuild_ConfiguratorFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := newTestBuilder().
		Configure(func(ctx *BuildContext) { ctx.Fail(boom) }).
		Build()
	assert.ErrorIs(t, err, boom)
}

func TestBuild_FailureRunsCleanups(t *testing.T) {
	boom := errors.New("boom")
	var cleaned []string
	opened := func(ctx *BuildContext) {
		ctx.SetCleanup("database", func() { cleaned = append(cleaned, "database") })
		ctx.SetCleanup("redis", func() { cleaned = append(cleaned, "redis") })
	}

	_, err := newTestBuilder().
		Configure(opened, func(ctx *BuildContext) { ctx.Fail(boom) }).
		Build()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"redis", "database"}, cleaned)

	cleaned = nil
	_, err = newTestBuilder().
		Configure(opened, func(ctx *BuildContext) {
			ctx.OnInjectorBuilt(func(*inject.Injector) error { return boom })
		}).
		Build()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"redis", "database"}, cleaned)
}

func TestBuild_MissingConfigurationFile(t *testing.T) {
	_, err := newTestBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddYamlFile("does-not-exist.yaml")
		}).
		Build()
	assert.Error(t, err)
}

func TestBuild_LoggingLevelFromConfiguration(t *testing.T) {
	_, err := newTestBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{"logging": map[string]any{"level": "debug"}})
		}).
		Build()
	require.NoError(t, err)

	_, err = newTestBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{"logging": map[string]any{"level": "verbose"}})
		}).
		Build()
	assert.ErrorContains(t, err, "unknown logging level")
}

type Feature struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
}

func TestAddOptions(t *testing.T) {
	b := newTestBuilder().ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
		cb.AddInMemory(map[string]any{"feature": map[string]any{"enabled": true, "name": "beta"}})
	})
	AddOptions[Feature](b, "feature")

	app, err := b.Build()
	require.NoError(t, err)

	opt := inject.MustGet[config.Option[Feature]](app.Injector())
	assert.Equal(t, Feature{Enabled: true, Name: "beta"}, opt.Value())
}

type Endpoint struct {
	Addr string
}

func TestAddConfigValues(t *testing.T) {
	addr := inject.NewMarker("addr")
	catalog := inject.NewCatalog()
	catalog.MustProvide(func(a string) *Endpoint { return &Endpoint{Addr: a} }, inject.Annotate(0, addr))

	app, err := newTestBuilder().
		UseCatalog(catalog).
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{"server": map[string]any{"addr": ":9000"}})
		}).
		AddConfigValues(config.Value[string]("server:addr", addr)).
		Build()
	require.NoError(t, err)

	var ep *Endpoint
	require.NoError(t, app.GetService(&ep))
	assert.Equal(t, ":9000", ep.Addr)
}

type Repository interface {
	Find() string
}

type memoryRepository struct {
	calls int
}

func (*memoryRepository) Find() string { return "memory" }

func TestAddSingletonAndTransient(t *testing.T) {
	b := newTestBuilder()
	AddSingleton[Repository, *memoryRepository](b)

	app, err := b.Build()
	require.NoError(t, err)

	r1 := inject.MustGet[Repository](app.Injector())
	r2 := inject.MustGet[Repository](app.Injector())
	assert.Same(t, r1, r2)
	assert.Equal(t, "memory", r1.Find())

	b = newTestBuilder()
	AddTransient[Repository, *memoryRepository](b)
	app, err = b.Build()
	require.NoError(t, err)
	assert.NotSame(t, inject.MustGet[Repository](app.Injector()), inject.MustGet[Repository](app.Injector()))
}

// lifecycle 记录生命周期事件
type lifecycle struct {
	mu      sync.Mutex
	started chan *ApplicationStartedEvent
	seen    []string
}

func newLifecycle() *lifecycle {
	return &lifecycle{started: make(chan *ApplicationStartedEvent, 1)}
}

func (l *lifecycle) EventHandlers() map[string]event.HandlerTag {
	return map[string]event.HandlerTag{
		"OnStarted":       {},
		"VetoStopping":    {Priority: event.PriorityHigh},
		"OnStopping":      {Priority: event.PriorityLow},
		"MonitorStopping": {Priority: event.PriorityMonitor, IgnoreCancelled: true},
	}
}

func (l *lifecycle) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, s)
}

func (l *lifecycle) OnStarted(e *ApplicationStartedEvent) error {
	l.started <- e
	return nil
}

func (l *lifecycle) VetoStopping(e *ApplicationStoppingEvent) {
	l.record("veto:" + e.Reason)
	e.SetCancelled(true)
}

func (l *lifecycle) OnStopping(e *ApplicationStoppingEvent) {
	l.record("stopping")
}

func (l *lifecycle) MonitorStopping(e *ApplicationStoppingEvent) {
	l.record("monitor")
}

type probeService struct {
	started chan struct{}
	stopped chan struct{}
}

func (p *probeService) Start(ctx context.Context) error {
	close(p.started)
	<-ctx.Done()
	return nil
}

func (p *probeService) Stop(context.Context) error {
	close(p.stopped)
	return nil
}

func TestRunAsync_Lifecycle(t *testing.T) {
	l := newLifecycle()
	probe := &probeService{started: make(chan struct{}), stopped: make(chan struct{})}
	var cleaned []string

	app, err := newTestBuilder().
		AddListener(l).
		AddHostedService(probe).
		Configure(func(ctx *BuildContext) {
			ctx.SetCleanup("first", func() { cleaned = append(cleaned, "first") })
			ctx.SetCleanup("second", func() { cleaned = append(cleaned, "second") })
		}).
		Build()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.RunAsync(context.Background()) }()

	started := <-l.started
	assert.Equal(t, 1, started.Services)
	assert.Equal(t, "development", started.Environment)
	<-probe.started

	assert.ErrorIs(t, app.RunAsync(context.Background()), ErrAlreadyRunning)

	require.NoError(t, app.Stop(context.Background()))
	require.NoError(t, app.Stop(context.Background()))
	require.NoError(t, <-done)

	<-probe.stopped
	// 取消只拦截后续的普通处理器，关闭流程照常完成
	assert.Equal(t, []string{"monitor", "veto:stop"}, l.seen)
	assert.Equal(t, []string{"second", "first"}, cleaned)
}

func TestRunAsync_HostedServiceFailure(t *testing.T) {
	boom := errors.New("boom")
	var reason string

	app, err := newTestBuilder().
		AddTask(func(context.Context) error { return boom }).
		Build()
	require.NoError(t, err)

	_, err = event.Subscribe(app.Events(), func(e *ApplicationStoppingEvent) error {
		reason = e.Reason
		assert.ErrorIs(t, e.Err, boom)
		return nil
	})
	require.NoError(t, err)

	err = app.RunAsync(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StopReasonFailure, reason)
}

func TestRunAsync_ContextCancelled(t *testing.T) {
	app, err := newTestBuilder().Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = event.Subscribe(app.Events(), func(*ApplicationStartedEvent) error {
		cancel()
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, app.RunAsync(ctx))
}

type resolvedService struct {
	*hosting.BackgroundService
}

func TestAddHostedServiceOf(t *testing.T) {
	catalog := inject.NewCatalog()
	catalog.MustProvide(func(logger logging.Logger) *resolvedService {
		return &resolvedService{BackgroundService: hosting.NewBackgroundService("resolved", logger)}
	})

	_, err := newTestBuilder().
		UseCatalog(catalog).
		Configure(AddHostedServiceOf[*resolvedService]).
		Build()
	require.NoError(t, err)

	_, err = newTestBuilder().
		Configure(AddHostedServiceOf[*probeService], func(ctx *BuildContext) {}).
		Build()
	require.NoError(t, err, "zero-value struct pointers are constructible")

	_, err = newTestBuilder().
		Configure(AddHostedServiceOf[hosting.HostedService]).
		Build()
	assert.ErrorIs(t, err, inject.ErrBindingNotFound)
}

func TestApply(t *testing.T) {
	boom := errors.New("boom")
	b := newTestBuilder()

	require.NoError(t, b.Apply(
		WithEnvironment("production"),
		WithModule(inject.ModuleFunc(func(inject.Binder) error { return nil })),
		WithWorker(func(ctx context.Context) error { <-ctx.Done(); return nil }),
		nil,
	))
	assert.Equal(t, "production", b.environment)
	assert.Len(t, b.modules, 1)
	assert.Len(t, b.configurators, 1)

	assert.ErrorIs(t, b.Apply(func(*ApplicationBuilder) error { return boom }), boom)
}
