package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// requestLogger 请求日志中间件
func requestLogger(loggerOf func() logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := loggerOf()
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: c.FullPath()},
			{Key: "status", Value: c.Writer.Status()},
			{Key: "elapsed", Value: time.Since(start).String()},
		}
		switch {
		case len(c.Errors) > 0:
			logger.Error("Request failed", append(fields, logging.Field{Key: "error", Value: c.Errors.String()})...)
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn("Request completed", fields...)
		default:
			logger.Debug("Request completed", fields...)
		}
	}
}

// mountDiagnostics 挂载注入绑定与事件处理器的诊断路由
func mountDiagnostics(router gin.IRouter, injector *inject.Injector, events *event.Manager) {
	router.GET("/bindings", func(c *gin.Context) {
		c.JSON(http.StatusOK, inject.Snapshot(injector.Binder()))
	})
	router.GET("/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, events.Registry().Snapshot())
	})
}
