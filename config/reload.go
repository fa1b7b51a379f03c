package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gocrud/mint/logging"
)

// ReloadableConfiguration 可重新加载的配置
// 重新加载时按原顺序读取所有配置源并原子替换数据
type ReloadableConfiguration struct {
	*configuration
	builder *ConfigurationBuilder

	mu        sync.Mutex
	callbacks []func()
}

// BuildReloadable 构建可重新加载的配置
func (b *ConfigurationBuilder) BuildReloadable() (*ReloadableConfiguration, error) {
	data, err := b.load()
	if err != nil {
		return nil, err
	}
	return &ReloadableConfiguration{
		configuration: newConfiguration(data),
		builder:       b,
	}, nil
}

// OnReload 注册重新加载后的回调
func (c *ReloadableConfiguration) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// Reload 重新加载全部配置源；失败时保留旧数据
func (c *ReloadableConfiguration) Reload() error {
	data, err := c.builder.load()
	if err != nil {
		return err
	}
	c.store.replace(data)

	c.mu.Lock()
	callbacks := make([]func(), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// Watch 监听文件配置源，文件变化时重新加载，直到 ctx 结束
func (c *ReloadableConfiguration) Watch(ctx context.Context, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// 监听所在目录：编辑器常以重命名方式保存文件
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, source := range c.builder.Sources() {
		fs, ok := source.(*FileSource)
		if !ok {
			continue
		}
		abs, err := filepath.Abs(fs.Path)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("config: failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}
	if len(files) == 0 {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if !files[abs] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := c.Reload(); err != nil {
				logger.Warn("Configuration reload failed",
					logging.Field{Key: "file", Value: ev.Name},
					logging.Field{Key: "error", Value: err})
				continue
			}
			logger.Info("Configuration reloaded",
				logging.Field{Key: "file", Value: ev.Name})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Configuration watcher error",
				logging.Field{Key: "error", Value: err})
		}
	}
}
