package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// SimpleController 普通控制器
type SimpleController struct{}

func (c *SimpleController) MountRoutes(router gin.IRouter) {
	router.GET("/simple", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "simple")
	})
}

// DepService 模拟依赖服务
type DepService struct {
	Value string
}

// ControllerWithDep 构造函数注入
type ControllerWithDep struct {
	Svc *DepService
}

func NewControllerWithDep(svc *DepService) *ControllerWithDep {
	return &ControllerWithDep{Svc: svc}
}

func (c *ControllerWithDep) MountRoutes(router gin.IRouter) {
	router.GET("/dep", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Svc.Value)
	})
}

// ControllerWithTag 字段注入
type ControllerWithTag struct {
	Svc *DepService `inject:""`
}

func (c *ControllerWithTag) MountRoutes(router gin.IRouter) {
	router.GET("/tag", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "tag:"+c.Svc.Value)
	})
}

// notAController 没有实现 Controller
type notAController struct{}

type pinged struct{}

func newApp(t *testing.T, options func(*Builder)) core.Application {
	t.Helper()
	app, err := core.NewApplicationBuilder().
		UseCatalog(inject.NewCatalog()).
		AddModule(inject.ModuleFunc(func(b inject.Binder) error {
			b.BindSingleton(inject.TypeOf[*DepService](), &DepService{Value: "injected-value"})
			return nil
		})).
		Configure(Configure(options)).
		Build()
	require.NoError(t, err)
	return app
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestConfigure_MountsControllers(t *testing.T) {
	app := newApp(t, func(b *Builder) {
		b.UsePort(0).UseRequestLogging()
		b.AddControllers(NewControllerWithDep, &ControllerWithTag{}, reflect.TypeOf(&SimpleController{}))
		b.Get("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	})

	host := inject.MustGet[*Host](app.Injector())
	h := host.Handler()

	w := get(t, h, "/simple")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "simple", w.Body.String())

	assert.Equal(t, "injected-value", get(t, h, "/dep").Body.String())
	assert.Equal(t, "tag:injected-value", get(t, h, "/tag").Body.String())
	assert.Equal(t, "ok", get(t, h, "/health").Body.String())
	assert.Equal(t, http.StatusNotFound, get(t, h, "/debug/bindings").Code)
}

func TestConfigure_Diagnostics(t *testing.T) {
	app := newApp(t, func(b *Builder) {
		b.EnableDiagnostics("/debug")
	})
	_, err := event.Subscribe(app.Events(), func(*pinged) error { return nil }, event.WithPriority(event.PriorityHigh))
	require.NoError(t, err)

	h := inject.MustGet[*Host](app.Injector()).Handler()

	w := get(t, h, "/debug/bindings")
	require.Equal(t, http.StatusOK, w.Code)
	var snap inject.BinderSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Contains(t, snap.Singletons, "*web.Host")
	assert.Contains(t, snap.Singletons, "*web.DepService")

	w = get(t, h, "/debug/events")
	require.Equal(t, http.StatusOK, w.Code)
	var handlers []event.HandlerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &handlers))
	require.Len(t, handlers, 1)
	assert.Equal(t, "*web.pinged", handlers[0].Event)
	assert.Equal(t, event.PriorityHigh.String(), handlers[0].Priority)
}

func TestConfigure_ControllerErrors(t *testing.T) {
	build := func(controllers ...any) error {
		_, err := core.NewApplicationBuilder().
			UseCatalog(inject.NewCatalog()).
			Configure(Configure(func(b *Builder) { b.AddControllers(controllers...) })).
			Build()
		return err
	}

	assert.ErrorContains(t, build("nope"), "unsupported controller string")
	assert.ErrorContains(t, build(reflect.TypeOf(&notAController{})), "does not implement web.Controller")
	assert.ErrorContains(t, build(func() (int, int) { return 0, 0 }), "register controller")
}

func TestHost_StartStop(t *testing.T) {
	b := NewBuilder(nil).UseHost("127.0.0.1").UsePort(0)
	b.Get("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	host := b.Build(logging.Nop())
	assert.Equal(t, "web", host.Name())

	done := make(chan error, 1)
	go func() { done <- host.Start(context.Background()) }()

	select {
	case <-host.Ready():
	case <-time.After(time.Second):
		t.Fatal("host did not start")
	}

	resp, err := http.Get("http://" + host.Address() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, host.Stop(ctx))
	assert.NoError(t, <-done)
}
