package web

import (
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// Controller 控制器接口
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	core.BaseBuilder
	host        string
	port        int
	engine      *gin.Engine
	controllers []any
	diagnostics string
	logger      logging.Logger
}

// NewBuilder 创建 Web 构建器；ctx 可以为 nil
func NewBuilder(ctx *core.BuildContext) *Builder {
	// 设置 Gin 为发布模式（默认）
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Builder{
		BaseBuilder: core.NewBaseBuilder(ctx),
		port:        8080,
		engine:      engine,
		logger:      logging.Nop(),
	}
}

// UsePort 设置端口；0 表示由系统分配
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// UseHost 设置监听的主机地址，默认监听所有地址
func (b *Builder) UseHost(host string) *Builder {
	b.host = host
	return b
}

// UseRequestLogging 使用框架日志记录之后注册的路由上的每个请求
func (b *Builder) UseRequestLogging() *Builder {
	b.engine.Use(requestLogger(func() logging.Logger { return b.logger }))
	return b
}

// EnableDiagnostics 在 prefix 下挂载 /bindings 与 /events 诊断路由
func (b *Builder) EnableDiagnostics(prefix string) *Builder {
	b.diagnostics = prefix
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器
// 传入参数可以是：
// 1. 控制器的构造函数 (例如 NewUserController)，参数从注入器解析
// 2. 控制器实例指针 (例如 &UserController{})，带 `inject` 标签的字段会被注入
// 3. 控制器类型 (reflect.Type)，由注入器按绑定或默认构造解析
// 注入器创建后按注册顺序解析控制器并挂载路由
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// Static 服务静态文件
func (b *Builder) Static(relativePath, root string) *Builder {
	b.engine.Static(relativePath, root)
	return b
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(relativePath, fs)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// controllerSource 待解析的控制器：类型或实例二选一
type controllerSource struct {
	typ      reflect.Type
	instance Controller
}

func (s controllerSource) String() string {
	if s.instance != nil {
		return fmt.Sprintf("%T", s.instance)
	}
	return s.typ.String()
}

// prepareControllers 把构造函数登记到目录，返回按注册顺序排列的控制器来源
func (b *Builder) prepareControllers(catalog *inject.Catalog) ([]controllerSource, error) {
	sources := make([]controllerSource, 0, len(b.controllers))
	for _, item := range b.controllers {
		switch v := item.(type) {
		case reflect.Type:
			sources = append(sources, controllerSource{typ: v})
		case Controller:
			sources = append(sources, controllerSource{instance: v})
		default:
			if reflect.TypeOf(item) == nil || reflect.TypeOf(item).Kind() != reflect.Func {
				return nil, fmt.Errorf("unsupported controller %T", item)
			}
			if err := catalog.Provide(item); err != nil {
				return nil, fmt.Errorf("register controller %T: %w", item, err)
			}
			sources = append(sources, controllerSource{typ: reflect.TypeOf(item).Out(0)})
		}
	}
	return sources, nil
}

// Build 构建 Web 主机
func (b *Builder) Build(logger logging.Logger) *Host {
	if logger != nil {
		b.logger = logger
	}
	logger = b.logger

	return &Host{
		addr:   net.JoinHostPort(b.host, strconv.Itoa(b.port)),
		engine: b.engine,
		server: &http.Server{Handler: b.engine},
		logger: logger,
		ready:  make(chan struct{}),
	}
}
