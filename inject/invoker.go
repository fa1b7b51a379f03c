package inject

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Invoker 实例化调用器
// 封装了反射调用的细节，预先检查错误和返回值
type Invoker func(args []reflect.Value) (any, error)

// createConstructorInvoker 创建构造函数调用器
func createConstructorInvoker(fn reflect.Value) Invoker {
	return func(args []reflect.Value) (any, error) {
		results := fn.Call(args)
		if len(results) == 0 {
			return nil, fmt.Errorf("constructor returned no values")
		}

		// 检查 error
		if len(results) > 1 {
			lastResult := results[len(results)-1]
			if !lastResult.IsNil() {
				return nil, lastResult.Interface().(error)
			}
		}

		// 检查 nil
		firstResult := results[0]
		switch firstResult.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if firstResult.IsNil() {
				return nil, fmt.Errorf("constructor returned nil instance")
			}
		}

		return firstResult.Interface(), nil
	}
}

// argValue 把解析得到的实例转换为可以传给 typ 参数的 reflect.Value
func argValue(v any, typ reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(typ)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != typ && rv.Type().ConvertibleTo(typ) && !rv.Type().AssignableTo(typ) {
		return rv.Convert(typ)
	}
	return rv
}
