package core

// Option 修改 ApplicationBuilder 的函数，用于 mint.Run 的声明式启动
type Option func(b *ApplicationBuilder) error

// Apply 依次应用多个 Option，遇到错误立即返回
func (b *ApplicationBuilder) Apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(b); err != nil {
			return err
		}
	}
	return nil
}
