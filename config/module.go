package config

import (
	"fmt"
	"reflect"

	"github.com/gocrud/mint/inject"
)

// Constant 把一个配置键绑定为常量 (Type, Marker) -> 值
type Constant struct {
	Key    string
	Marker *inject.Marker
	Type   reflect.Type

	def    any
	hasDef bool
}

// Value 声明类型为 T 的配置常量，键不存在时 Module 配置失败
//
//	var ListenAddr = inject.NewMarker("listen-addr")
//
//	config.Module(cfg, config.Value[string]("server:addr", ListenAddr))
func Value[T any](key string, marker *inject.Marker) Constant {
	return Constant{Key: key, Marker: marker, Type: inject.TypeOf[T]()}
}

// ValueOr 与 Value 相同，键不存在时使用默认值
func ValueOr[T any](key string, marker *inject.Marker, def T) Constant {
	return Constant{Key: key, Marker: marker, Type: inject.TypeOf[T](), def: def, hasDef: true}
}

// resolve 读取并转换配置值
func (c Constant) resolve(cfg Configuration) (any, error) {
	raw, ok := cfg.Lookup(c.Key)
	if !ok {
		if c.hasDef {
			return c.def, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, c.Key)
	}
	v, err := Convert(raw, c.Type)
	if err != nil {
		return nil, fmt.Errorf("config: key %s: %w", c.Key, err)
	}
	return v, nil
}

// Module 返回配置模块：把 cfg 缓存为 Configuration 单例，并把每个 Constant 绑定为常量
func Module(cfg Configuration, constants ...Constant) inject.Module {
	return inject.NewModule("config", func(m *inject.AbstractModule) error {
		b, err := m.Binder()
		if err != nil {
			return err
		}
		b.BindSingleton(inject.TypeOf[Configuration](), cfg)

		for _, c := range constants {
			v, err := c.resolve(cfg)
			if err != nil {
				return err
			}
			if err := b.BindConstant(inject.ConstantBinding{Type: c.Type, Marker: c.Marker, Value: v}); err != nil {
				return fmt.Errorf("config: bind %s: %w", c.Key, err)
			}
		}
		return nil
	})
}

// OptionsModule 绑定配置节 section 的 Option[T] 与 OptionMonitor[T] 单例
// cfg 为 *ReloadableConfiguration 时，OptionMonitor 在重新加载后返回新值
func OptionsModule[T any](cfg Configuration, section string) inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		monitor := newSectionMonitor[T](cfg, section)
		b.BindSingleton(inject.TypeOf[Option[T]](), NewOption(monitor.Value()))
		b.BindSingleton(inject.TypeOf[OptionMonitor[T]](), OptionMonitor[T](monitor))
		return nil
	})
}
