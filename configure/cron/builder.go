package cron

import (
	"fmt"
	"time"

	"github.com/gocrud/mint/core"
	"github.com/gocrud/mint/event"
	"github.com/gocrud/mint/logging"
)

// Builder Cron 配置构建器
type Builder struct {
	core.BaseBuilder
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
}

// jobDefinition 任务定义
type jobDefinition struct {
	spec     string
	name     string
	fn       func() error
	injected any
}

// NewBuilder 创建 Cron 构建器；ctx 可以为 nil
func NewBuilder(ctx *core.BuildContext) *Builder {
	return &Builder{
		BaseBuilder: core.NewBaseBuilder(ctx),
		location:    "UTC",
		jobs:        make([]jobDefinition, 0),
	}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置时区，如 "Asia/Shanghai"
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加简单任务
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	return b.AddJobE(spec, name, func() error {
		handler()
		return nil
	})
}

// AddJobE 添加可能失败的任务，错误写入日志并随 JobCompletedEvent 分发
func (b *Builder) AddJobE(spec, name string, handler func() error) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, fn: handler})
	return b
}

// AddJobWithDI 添加带依赖注入的任务
// handler 的参数在每次执行时从注入器解析，返回值只能为空或 error
//
// 示例：
//
//	builder.AddJobWithDI("0 */5 * * * *", "sync-data", func(svc *DataService, logger logging.Logger) {
//	    svc.Sync()
//	})
func (b *Builder) AddJobWithDI(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, injected: handler})
	return b
}

// Build 构建调度器
func (b *Builder) Build(logger logging.Logger, events *event.Manager) (*Scheduler, error) {
	loc, err := time.LoadLocation(b.location)
	if err != nil {
		return nil, fmt.Errorf("invalid cron location '%s': %w", b.location, err)
	}

	s := newScheduler(logger, events, options{
		Location:         loc,
		EnableSeconds:    b.enableSeconds,
		EnableCronLogger: b.enableCronLogger,
	})

	for _, job := range b.jobs {
		if job.injected != nil {
			err = s.addInjectedJob(job.spec, job.name, job.injected)
		} else {
			err = s.addJob(job.spec, job.name, job.fn)
		}
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}
