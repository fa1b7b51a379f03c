package config

import (
	"fmt"
	"sync/atomic"
)

// Option 静态配置选项，应用启动时绑定一次
type Option[T any] interface {
	Value() T
}

// OptionMonitor 监听配置选项，总是返回最近一次成功绑定的值
type OptionMonitor[T any] interface {
	Value() T
}

// Load 把配置节 section 绑定到 T；section 为空时绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}

type staticOption[T any] struct {
	value T
}

func (o staticOption[T]) Value() T { return o.value }

// NewOption 创建静态配置选项
func NewOption[T any](value T) Option[T] {
	return staticOption[T]{value: value}
}

// sectionMonitor 在配置重新加载后重新绑定配置节，绑定失败时保留旧值
type sectionMonitor[T any] struct {
	cfg     Configuration
	section string
	current atomic.Pointer[T]
}

func newSectionMonitor[T any](cfg Configuration, section string) *sectionMonitor[T] {
	m := &sectionMonitor[T]{cfg: cfg, section: section}
	if err := m.refresh(); err != nil {
		// 配置节不存在或无法绑定时使用零值
		m.current.Store(new(T))
	}
	if rc, ok := cfg.(interface{ OnReload(func()) }); ok {
		rc.OnReload(func() { _ = m.refresh() })
	}
	return m
}

func (m *sectionMonitor[T]) refresh() error {
	v, err := Load[T](m.cfg, m.section)
	if err != nil {
		return fmt.Errorf("config: bind section %s: %w", m.section, err)
	}
	m.current.Store(&v)
	return nil
}

func (m *sectionMonitor[T]) Value() T {
	return *m.current.Load()
}
