package core

// BaseBuilder 提供基础的构建上下文能力
// 需要读取配置或注册清理函数的模块 Builder 嵌入此结构体
type BaseBuilder struct {
	ctx *BuildContext
}

// NewBaseBuilder 创建基础构建器；ctx 可以为 nil（单独测试 Builder 时）
func NewBaseBuilder(ctx *BuildContext) BaseBuilder {
	return BaseBuilder{ctx: ctx}
}

// ConfigContext 获取构建上下文（受限接口）
func (b *BaseBuilder) ConfigContext() ConfigurationContext {
	if b.ctx == nil {
		return nil
	}
	return b.ctx
}

// RegisterCleanup 允许 Builder 注册清理函数
// 这样 Builder 内部可以注册清理，但通过 ConfigContext() 获取的接口无法注册
func (b *BaseBuilder) RegisterCleanup(key string, cleanup func()) {
	if b.ctx != nil {
		b.ctx.SetCleanup(key, cleanup)
	}
}
