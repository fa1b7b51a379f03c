package etcd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/mint/inject"
)

// DefaultClient 默认客户端名称，同时以无标记的 *clientv3.Client 绑定
const DefaultClient = "default"

// EtcdClientOptions etcd 客户端配置选项
type EtcdClientOptions struct {
	Name               string        // 客户端名称
	Endpoints          []string      // etcd 服务器地址列表
	DialTimeout        time.Duration // 连接超时时间
	Username           string        // 用户名（可选）
	Password           string        // 密码（可选）
	AutoSyncInterval   time.Duration // 自动同步间隔（可选）
	MaxCallSendMsgSize int           // 最大发送消息大小（可选）
	MaxCallRecvMsgSize int           // 最大接收消息大小（可选）
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *EtcdClientOptions {
	return &EtcdClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *EtcdClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("etcd client name is required")
	}
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	return nil
}

// EtcdClientFactory etcd 客户端工厂
type EtcdClientFactory struct {
	clients map[string]*clientv3.Client
	mu      sync.RWMutex
}

// NewEtcdClientFactory 创建客户端工厂
func NewEtcdClientFactory() *EtcdClientFactory {
	return &EtcdClientFactory{
		clients: make(map[string]*clientv3.Client),
	}
}

// Register 创建并注册 etcd 客户端；连接在首次请求时建立
func (f *EtcdClientFactory) Register(opts EtcdClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("etcd client '%s' already registered", opts.Name)
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:          opts.Endpoints,
		DialTimeout:        opts.DialTimeout,
		Username:           opts.Username,
		Password:           opts.Password,
		AutoSyncInterval:   opts.AutoSyncInterval,
		MaxCallSendMsgSize: opts.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: opts.MaxCallRecvMsgSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create etcd client: %w", err)
	}

	f.clients[opts.Name] = client
	return nil
}

// Get 获取指定名称的客户端
func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("etcd client '%s' not found", name)
	}
	return client, nil
}

// Each 按名称顺序遍历所有客户端
func (f *EtcdClientFactory) Each(fn func(name string, client *clientv3.Client)) {
	f.mu.RLock()
	names := make([]string, 0, len(f.clients))
	for name := range f.clients {
		names = append(names, name)
	}
	clients := make(map[string]*clientv3.Client, len(f.clients))
	for k, v := range f.clients {
		clients[k] = v
	}
	f.mu.RUnlock()

	sort.Strings(names)
	for _, name := range names {
		fn(name, clients[name])
	}
}

// Module 返回绑定工厂与所有客户端的注入模块
// 客户端按 inject.Named(name) 绑定为常量，default 客户端同时作为无标记单例
func (f *EtcdClientFactory) Module() inject.Module {
	return inject.NewModule("etcd", func(m *inject.AbstractModule) error {
		b, err := m.Binder()
		if err != nil {
			return err
		}
		b.BindSingleton(inject.TypeOf[*EtcdClientFactory](), f)

		var bindErr error
		f.Each(func(name string, client *clientv3.Client) {
			if err := inject.BindConstant(b, inject.Named(name), client); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
			if name == DefaultClient {
				b.BindSingleton(inject.TypeOf[*clientv3.Client](), client)
			}
		})
		return bindErr
	})
}

// Close 关闭所有 etcd 客户端
func (f *EtcdClientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close client '%s': %w", name, err))
		}
	}

	f.clients = make(map[string]*clientv3.Client)
	return errors.Join(errs...)
}
