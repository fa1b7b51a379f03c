package mint_test

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/mint"
	"github.com/gocrud/mint/config"
	"github.com/gocrud/mint/configure/cron"
	"github.com/gocrud/mint/configure/database"
	"github.com/gocrud/mint/configure/web"
	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
)

// TestService 模拟业务服务
type TestService struct {
	DB     *gorm.DB
	Config config.Configuration
}

func NewTestService(db *gorm.DB, cfg config.Configuration) *TestService {
	return &TestService{DB: db, Config: cfg}
}

// TestController 模拟控制器
type TestController struct {
	Service *TestService
}

func NewTestController(svc *TestService) *TestController {
	return &TestController{Service: svc}
}

func (c *TestController) MountRoutes(r gin.IRouter) {
	r.GET("/ping", func(ctx *gin.Context) {
		name := c.Service.Config.Get("app.name")
		if err := c.Service.DB.Exec("SELECT 1").Error; err != nil {
			name += "-nodb"
		}
		ctx.String(http.StatusOK, "pong: "+name)
	})
}

// startupRecorder 记录启动事件
type startupRecorder struct {
	services atomic.Int32
}

func (r *startupRecorder) EventHandlers() map[string]event.HandlerTag {
	return map[string]event.HandlerTag{"OnStarted": {Priority: event.PriorityMonitor}}
}

func (r *startupRecorder) OnStarted(e *core.ApplicationStartedEvent) {
	r.services.Store(int32(e.Services))
}

func TestIntegration(t *testing.T) {
	t.Setenv("TEST_APP_NAME", "IntegrationTest")

	var hostRef atomic.Pointer[web.Host]
	recorder := &startupRecorder{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- mint.RunContext(ctx,
			core.WithConfiguration(func(cb *config.ConfigurationBuilder) {
				cb.AddEnvironmentVariables("TEST_")
			}),
			core.WithListener(recorder),
			database.New(database.WithDatabase(database.DefaultDatabase,
				sqlite.Open("file:integration?mode=memory&cache=shared"))),
			cron.New(cron.AddJob("@every 1h", "noop", func() {})),
			web.New(web.WithPort(0), web.WithControllers(NewTestController)),
			core.WithConfigurator(func(bc *core.BuildContext) {
				bc.Catalog().MustProvide(NewTestService)
				bc.OnInjectorBuilt(func(injector *inject.Injector) error {
					host, err := inject.Get[*web.Host](injector)
					hostRef.Store(host)
					return err
				})
			}),
		)
	}()

	require.Eventually(t, func() bool { return hostRef.Load() != nil && recorder.services.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	host := hostRef.Load()
	<-host.Ready()

	// web 与 cron 两个托管服务
	assert.Equal(t, int32(2), recorder.services.Load())

	resp, err := http.Get("http://" + host.Address() + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong: IntegrationTest", string(body))

	cancel()
	assert.NoError(t, <-done)
}

// TestWorker 阻塞直到 Stop 被调用
type TestWorker struct {
	Started chan struct{}
	Stopped chan struct{}
	stopCh  chan struct{}
}

func (w *TestWorker) Start(ctx context.Context) error {
	close(w.Started)
	<-w.stopCh
	return nil
}

func (w *TestWorker) Stop(ctx context.Context) error {
	close(w.stopCh)
	close(w.Stopped)
	return nil
}

func TestHostedService(t *testing.T) {
	worker := &TestWorker{
		Started: make(chan struct{}),
		Stopped: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mint.RunContext(ctx, core.WithHostedService(worker)) }()

	select {
	case <-worker.Started:
	case <-time.After(time.Second):
		t.Fatal("worker did not start")
	}

	cancel()
	require.NoError(t, <-done)

	select {
	case <-worker.Stopped:
	default:
		t.Fatal("worker was not stopped")
	}
}
