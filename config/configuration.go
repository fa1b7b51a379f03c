// Package config 提供分层配置：多个配置源按顺序合并，后加入的覆盖先加入的
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// ErrKeyNotFound 配置键不存在
var ErrKeyNotFound = errors.New("config: key not found")

// Configuration 配置接口（类似于 .NET Core IConfiguration）
type Configuration interface {
	// Get 获取配置值
	Get(key string) string
	// GetWithDefault 获取配置值，如果不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetFloat 获取浮点配置值
	GetFloat(key string) (float64, error)
	// GetDuration 获取时长配置值，支持 "5s" 形式或纳秒数
	GetDuration(key string) (time.Duration, error)
	// Lookup 获取原始配置值
	Lookup(key string) (any, bool)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体
	Bind(key string, target any) error
	// GetAll 获取所有配置
	GetAll() map[string]any
}

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 配置构建器
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{
		sources: make([]ConfigurationSource, 0),
	}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&FileSource{Path: path, Format: FormatJSON, Optional: isOptional(optional)})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&FileSource{Path: path, Format: FormatYAML, Optional: isOptional(optional)})
}

// AddTomlFile 添加 TOML 文件配置源
func (b *ConfigurationBuilder) AddTomlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&FileSource{Path: path, Format: FormatTOML, Optional: isOptional(optional)})
}

// AddFile 按扩展名识别格式添加文件配置源
func (b *ConfigurationBuilder) AddFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&FileSource{Path: path, Format: formatFromPath(path), Optional: isOptional(optional)})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// Sources 返回配置源快照
func (b *ConfigurationBuilder) Sources() []ConfigurationSource {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ConfigurationSource, len(b.sources))
	copy(out, b.sources)
	return out
}

func isOptional(optional []bool) bool {
	return len(optional) > 0 && optional[0]
}

// Build 构建配置
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	data, err := b.load()
	if err != nil {
		return nil, err
	}
	return newConfiguration(data), nil
}

// load 按顺序加载所有配置源（后面的会覆盖前面的）
func (b *ConfigurationBuilder) load() (map[string]any, error) {
	data := make(map[string]any)
	for _, source := range b.Sources() {
		loaded, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: failed to load source %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	return data, nil
}

// configuration 配置实现
type configuration struct {
	store *store
}

func newConfiguration(data map[string]any) *configuration {
	return &configuration{store: newStore(data)}
}

// NewFromMap 从 map 创建配置
func NewFromMap(data map[string]any) Configuration {
	copied := make(map[string]any)
	mergeMaps(copied, data)
	return newConfiguration(copied)
}

// Lookup 获取原始配置值
func (c *configuration) Lookup(key string) (any, bool) {
	v := c.getByPath(key)
	return v, v != nil
}

// Get 获取配置值
func (c *configuration) Get(key string) string {
	value := c.getByPath(key)
	if value == nil {
		return ""
	}
	s, err := toString(value)
	if err != nil {
		return ""
	}
	return s
}

// GetWithDefault 获取配置值，如果不存在则返回默认值
func (c *configuration) GetWithDefault(key, defaultValue string) string {
	value := c.Get(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetInt 获取整数配置值
func (c *configuration) GetInt(key string) (int, error) {
	v, err := c.typed(key, reflect.TypeOf(0))
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// GetBool 获取布尔配置值
func (c *configuration) GetBool(key string) (bool, error) {
	v, err := c.typed(key, reflect.TypeOf(false))
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// GetFloat 获取浮点配置值
func (c *configuration) GetFloat(key string) (float64, error) {
	v, err := c.typed(key, reflect.TypeOf(float64(0)))
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// GetDuration 获取时长配置值
func (c *configuration) GetDuration(key string) (time.Duration, error) {
	v, err := c.typed(key, durationType)
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}

func (c *configuration) typed(key string, typ reflect.Type) (any, error) {
	value := c.getByPath(key)
	if value == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	v, err := Convert(value, typ)
	if err != nil {
		return nil, fmt.Errorf("config: key %s: %w", key, err)
	}
	return v, nil
}

// GetSection 获取配置节
func (c *configuration) GetSection(key string) Configuration {
	if m, ok := c.getByPath(key).(map[string]any); ok {
		return newConfiguration(m)
	}
	return newConfiguration(make(map[string]any))
}

// Bind 绑定配置到结构体
func (c *configuration) Bind(key string, target any) error {
	data := c.getByPath(key)
	if data == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return bindJSON(data, target)
}

// GetAll 获取所有配置
func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.store.snapshot())
	return result
}

// getByPath 通过路径获取值（支持 "a:b:c" 或 "a.b.c"）
func (c *configuration) getByPath(path string) any {
	data := c.store.snapshot()
	if path == "" {
		return data
	}
	return lookupPath(data, splitKey(path))
}

// bindJSON 使用 JSON 序列化/反序列化进行绑定
func bindJSON(data any, target any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: failed to marshal data: %w", err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("config: failed to unmarshal data: %w", err)
	}
	return nil
}

// mergeMaps 合并两个 map，嵌套 map 递归合并并复制，避免与源共享
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if srcIsMap {
			dstMap, ok := dst[k].(map[string]any)
			if !ok {
				dstMap = make(map[string]any, len(srcMap))
				dst[k] = dstMap
			}
			mergeMaps(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}
