package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/gocrud/mint/inject"
)

// DefaultClient 默认客户端名称，同时以无标记的 *mongo.Client 绑定
const DefaultClient = "default"

// MongoOptions MongoDB 客户端配置选项
type MongoOptions struct {
	Name        string
	Uri         string
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
	// Database 非空时额外按客户端名称绑定 *mongo.Database
	Database string
	// Ping 注册时是否检查连通性，mongo.Connect 本身不建立连接
	Ping bool
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *MongoOptions {
	return &MongoOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("mongo client name is required")
	}
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	return nil
}

func (o *MongoOptions) clientOptions() *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(o.Uri)
	if o.Username != "" || o.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: o.Username,
			Password: o.Password,
		})
	}
	if o.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		clientOpts.SetConnectTimeout(o.Timeout)
		clientOpts.SetServerSelectionTimeout(o.Timeout)
	}
	return clientOpts
}

type mongoClient struct {
	client   *mongo.Client
	database string
}

// MongoFactory MongoDB 客户端工厂
type MongoFactory struct {
	clients map[string]mongoClient
	mu      sync.RWMutex
}

// NewMongoFactory 创建客户端工厂
func NewMongoFactory() *MongoFactory {
	return &MongoFactory{
		clients: make(map[string]mongoClient),
	}
}

// Register 注册 MongoDB 客户端
func (f *MongoFactory) Register(opts MongoOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("mongo client '%s' already registered", opts.Name)
	}

	client, err := mongo.Connect(opts.clientOptions())
	if err != nil {
		return fmt.Errorf("failed to create mongo client '%s': %w", opts.Name, err)
	}

	if opts.Ping {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			client.Disconnect(context.Background())
			return fmt.Errorf("failed to ping mongo '%s': %w", opts.Name, err)
		}
	}

	f.clients[opts.Name] = mongoClient{client: client, database: opts.Database}
	return nil
}

// Get 获取指定名称的客户端
func (f *MongoFactory) Get(name string) (*mongo.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	return c.client, nil
}

// Database 获取指定客户端上配置的数据库
func (f *MongoFactory) Database(name string) (*mongo.Database, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	if c.database == "" {
		return nil, fmt.Errorf("mongo client '%s' has no database configured", name)
	}
	return c.client.Database(c.database), nil
}

// Each 按名称顺序遍历所有客户端
func (f *MongoFactory) Each(fn func(name string, client *mongo.Client)) {
	f.mu.RLock()
	names := make([]string, 0, len(f.clients))
	clients := make(map[string]*mongo.Client, len(f.clients))
	for name, c := range f.clients {
		names = append(names, name)
		clients[name] = c.client
	}
	f.mu.RUnlock()

	sort.Strings(names)
	for _, name := range names {
		fn(name, clients[name])
	}
}

// Module 返回绑定工厂与所有客户端的注入模块
func (f *MongoFactory) Module() inject.Module {
	return inject.NewModule("mongodb", func(m *inject.AbstractModule) error {
		b, err := m.Binder()
		if err != nil {
			return err
		}
		b.BindSingleton(inject.TypeOf[*MongoFactory](), f)

		var bindErr error
		f.Each(func(name string, client *mongo.Client) {
			marker := inject.Named(name)
			bindErr = errors.Join(bindErr, inject.BindConstant(b, marker, client))

			if db, err := f.Database(name); err == nil {
				bindErr = errors.Join(bindErr, inject.BindConstant(b, marker, db))
				if name == DefaultClient {
					b.BindSingleton(inject.TypeOf[*mongo.Database](), db)
				}
			}
			if name == DefaultClient {
				b.BindSingleton(inject.TypeOf[*mongo.Client](), client)
			}
		})
		return bindErr
	})
}

// Close 断开所有客户端
func (f *MongoFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for name, c := range f.clients {
		if err := c.client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close client '%s': %w", name, err))
		}
	}

	f.clients = make(map[string]mongoClient)
	return errors.Join(errs...)
}
