package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/gocrud/mint/inject"
	"github.com/gocrud/mint/logging"
)

// DefaultDatabase 默认实例名称，同时以无标记的 *gorm.DB 绑定
const DefaultDatabase = "default"

// DatabaseOptions 数据库配置选项
type DatabaseOptions struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any // 需要自动迁移的模型
	// SlowThreshold 慢查询阈值，超过时以 Warn 级别记录
	SlowThreshold time.Duration
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, dialector gorm.Dialector) *DatabaseOptions {
	return &DatabaseOptions{
		Name:          name,
		Dialector:     dialector,
		MaxIdleConns:  10,
		MaxOpenConns:  100,
		MaxLifetime:   time.Hour,
		AutoMigrate:   make([]any, 0),
		SlowThreshold: 200 * time.Millisecond,
	}
}

// Validate 验证配置
func (o *DatabaseOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database dialector is required")
	}
	return nil
}

// DatabaseFactory 数据库客户端工厂
type DatabaseFactory struct {
	dbs map[string]*gorm.DB
	mu  sync.RWMutex
}

// NewDatabaseFactory 创建数据库工厂
func NewDatabaseFactory() *DatabaseFactory {
	return &DatabaseFactory{
		dbs: make(map[string]*gorm.DB),
	}
}

// Register 打开数据库连接、配置连接池并执行自动迁移
// logger 为 nil 时使用 gorm 默认日志
func (f *DatabaseFactory) Register(opts DatabaseOptions, logger logging.Logger) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.dbs[opts.Name]; exists {
		return fmt.Errorf("database '%s' already registered", opts.Name)
	}

	cfg := opts.GormConfig
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	if cfg.Logger == nil && logger != nil {
		cfg.Logger = newGormLogger(logger, opts.SlowThreshold)
	}

	db, err := gorm.Open(opts.Dialector, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database '%s': %w", opts.Name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for '%s': %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			sqlDB.Close()
			return fmt.Errorf("auto migrate failed for '%s': %w", opts.Name, err)
		}
	}

	f.dbs[opts.Name] = db
	return nil
}

// Get 获取指定名称的数据库实例
func (f *DatabaseFactory) Get(name string) (*gorm.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	db, ok := f.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database '%s' not found", name)
	}
	return db, nil
}

// Each 按名称顺序遍历所有数据库实例
func (f *DatabaseFactory) Each(fn func(name string, db *gorm.DB)) {
	f.mu.RLock()
	names := make([]string, 0, len(f.dbs))
	for name := range f.dbs {
		names = append(names, name)
	}
	dbs := make(map[string]*gorm.DB, len(f.dbs))
	for k, v := range f.dbs {
		dbs[k] = v
	}
	f.mu.RUnlock()

	sort.Strings(names)
	for _, name := range names {
		fn(name, dbs[name])
	}
}

// Module 返回绑定工厂与所有实例的注入模块
// 实例按 inject.Named(name) 绑定为常量，default 实例同时作为无标记单例
func (f *DatabaseFactory) Module() inject.Module {
	return inject.NewModule("database", func(m *inject.AbstractModule) error {
		b, err := m.Binder()
		if err != nil {
			return err
		}
		b.BindSingleton(inject.TypeOf[*DatabaseFactory](), f)

		var bindErr error
		f.Each(func(name string, db *gorm.DB) {
			if err := inject.BindConstant(b, inject.Named(name), db); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
			if name == DefaultDatabase {
				b.BindSingleton(inject.TypeOf[*gorm.DB](), db)
			}
		})
		return bindErr
	})
}

// Close 关闭所有数据库连接
func (f *DatabaseFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, db := range f.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to get sql.DB for '%s': %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database '%s': %w", name, err))
		}
	}

	f.dbs = make(map[string]*gorm.DB)
	return errors.Join(errs...)
}
