package inject

import (
	"errors"
	"reflect"
	"strings"
)

var (
	// ErrBindingNotFound 请求的定义没有绑定、默认自绑定也没有可满足的构造函数
	ErrBindingNotFound = errors.New("inject: no binding or satisfiable constructor")
	// ErrReentrantConfiguration 模块在配置过程中被再次配置
	ErrReentrantConfiguration = errors.New("inject: module re-entry is not allowed")
	// ErrCyclicDependency 解析过程中再次请求了正在解析的定义
	ErrCyclicDependency = errors.New("inject: cyclic dependency")
	// ErrConstructionFailed 构造函数返回了错误或 nil 实例
	ErrConstructionFailed = errors.New("inject: construction failed")
	// ErrNotAssignable 实现类型或常量值不满足声明类型
	ErrNotAssignable = errors.New("inject: not assignable")
	// ErrBinderUnavailable 在 Configure 之外使用模块的 Binder
	ErrBinderUnavailable = errors.New("inject: binder can only be used within Configure")
)

// ResolutionError 描述一次失败的解析
type ResolutionError struct {
	// Definition 无法满足的定义类型
	Definition reflect.Type
	// Path 从顶层请求到失败点的解析路径
	Path []reflect.Type
	Err  error

	// direct 表示该定义根本没有候选构造函数（不是下游解析失败导致的）
	direct bool
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	sb.WriteString(": ")
	if e.Definition != nil {
		sb.WriteString(e.Definition.String())
	} else {
		sb.WriteString("<nil>")
	}
	if len(e.Path) > 1 {
		sb.WriteString(" (path: ")
		for i, t := range e.Path {
			if i > 0 {
				sb.WriteString(" -> ")
			}
			sb.WriteString(t.String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// isDirectNotFound 判断 err 是否表示 typ 本身没有任何可注入的构造函数
func isDirectNotFound(err error, typ reflect.Type) bool {
	var re *ResolutionError
	if !errors.As(err, &re) {
		return false
	}
	return re.direct && re.Definition == typ && errors.Is(re.Err, ErrBindingNotFound)
}
