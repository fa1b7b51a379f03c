package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// Host Web 主机
type Host struct {
	addr   string
	engine *gin.Engine
	server *http.Server
	logger logging.Logger

	mu        sync.RWMutex
	listening string
	ready     chan struct{}
	readyOnce sync.Once
}

// Name 实现 hosting.Named
func (h *Host) Name() string {
	return "web"
}

// Handler 返回路由处理器，可直接用于 httptest
func (h *Host) Handler() http.Handler {
	return h.engine
}

// Address 获取实际监听地址 (e.g., "[::]:50234")，仅在 Ready 之后有效
func (h *Host) Address() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.listening
}

// Ready 监听成功后关闭的通道
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Start 启动 Web 主机，阻塞直到 Stop 被调用
func (h *Host) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", h.addr, err)
	}

	h.mu.Lock()
	h.listening = ln.Addr().String()
	h.mu.Unlock()
	h.readyOnce.Do(func() { close(h.ready) })

	h.logger.Info("Web host started", logging.Field{Key: "address", Value: ln.Addr().String()})

	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("Web host error", logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}

	h.logger.Info("Web host stopped")
	return nil
}

// mapControllers 从注入器解析控制器并挂载路由
func (h *Host) mapControllers(injector *inject.Injector, sources []controllerSource) error {
	for _, src := range sources {
		ctrl := src.instance
		if ctrl != nil {
			if err := injector.InjectMembers(ctrl); err != nil {
				return fmt.Errorf("failed to inject controller %s: %w", src, err)
			}
		} else {
			instance, err := injector.GetInstance(src.typ)
			if err != nil {
				return fmt.Errorf("failed to resolve controller %s: %w", src, err)
			}
			var ok bool
			if ctrl, ok = instance.(Controller); !ok {
				return fmt.Errorf("%s does not implement web.Controller", src)
			}
		}

		ctrl.MountRoutes(h.engine)
		h.logger.Debug("Mapped controller routes", logging.Field{Key: "controller", Value: src.String()})
	}
	return nil
}
