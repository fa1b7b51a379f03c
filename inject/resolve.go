package inject

import (
	"fmt"
	"reflect"
)

// Get 解析类型 T 的实例
//
// 示例：
//
//	svc, err := inject.Get[UserService](injector)
func Get[T any](injector *Injector) (T, error) {
	var zero T
	inst, err := injector.GetInstance(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	v, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("%w: resolved %T for %v", ErrNotAssignable, inst, TypeOf[T]())
	}
	return v, nil
}

// MustGet 与 Get 相同，失败时 panic
func MustGet[T any](injector *Injector) T {
	v, err := Get[T](injector)
	if err != nil {
		panic(err)
	}
	return v
}

// Inject 通过指针注入实例到目标变量
//
//	var svc UserService
//	err := injector.Inject(&svc)
func (i *Injector) Inject(target any) error {
	targetVal := reflect.ValueOf(target)
	if targetVal.Kind() != reflect.Pointer {
		return fmt.Errorf("inject: target must be a pointer, got %T", target)
	}
	if targetVal.IsNil() {
		return fmt.Errorf("inject: target pointer is nil")
	}

	elem := targetVal.Elem()
	inst, err := i.GetInstance(elem.Type())
	if err != nil {
		return err
	}
	elem.Set(argValue(inst, elem.Type()))
	return nil
}

// InjectMembers 为结构体中带 `inject` 标签的导出字段注入实例
// 标签值为 "optional" 时，无法解析的字段保持原值
//
//	type Handler struct {
//		Users UserService `inject:""`
//		Audit AuditLog    `inject:"optional"`
//	}
func (i *Injector) InjectMembers(target any) error {
	targetVal := reflect.ValueOf(target)
	if targetVal.Kind() != reflect.Pointer || targetVal.IsNil() || targetVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("inject: target must be a non-nil pointer to struct, got %T", target)
	}

	structVal := targetVal.Elem()
	structType := structVal.Type()
	for idx := 0; idx < structType.NumField(); idx++ {
		field := structType.Field(idx)
		tag, ok := field.Tag.Lookup("inject")
		if !ok || !field.IsExported() {
			continue
		}

		inst, err := i.GetInstance(field.Type)
		if err != nil {
			if tag == "optional" && isDirectNotFound(err, field.Type) {
				continue
			}
			return fmt.Errorf("inject: field %s: %w", field.Name, err)
		}
		structVal.Field(idx).Set(argValue(inst, field.Type))
	}
	return nil
}

// CheckCallable 检查 fn 能否交给 Call 调用：必须是函数，且没有返回值或只返回 error
func CheckCallable(fn any) error {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("inject: expected a function, got %T", fn)
	}
	switch {
	case fnType.NumOut() == 0:
	case fnType.NumOut() == 1 && fnType.Out(0) == errorType:
	default:
		return fmt.Errorf("inject: %v must return nothing or error", fnType)
	}
	return nil
}

// Call 从注入器解析 fn 的全部参数后调用 fn
// 参数按类型解析，不支持标记；fn 返回的 error 原样返回
//
//	err := injector.Call(func(repo Repository, logger logging.Logger) error { ... })
func (i *Injector) Call(fn any) error {
	if err := CheckCallable(fn); err != nil {
		return err
	}

	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	args := make([]reflect.Value, fnType.NumIn())
	for idx := range args {
		paramType := fnType.In(idx)
		inst, err := i.GetInstance(paramType)
		if err != nil {
			return fmt.Errorf("inject: parameter %d (%v): %w", idx, paramType, err)
		}
		args[idx] = argValue(inst, paramType)
	}

	results := fnVal.Call(args)
	if len(results) == 1 && !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}
