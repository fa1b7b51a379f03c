package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/golobby/cast"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Convert 把配置原始值转换为 typ
//
// 标量通过 cast 从字符串形式转换；time.Duration 支持 "1m30s" 形式；
// 结构体、map 与切片通过 JSON 绑定。
func Convert(value any, typ reflect.Type) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("cannot convert nil to %v", typ)
	}
	if vt := reflect.TypeOf(value); vt.AssignableTo(typ) {
		return value, nil
	}

	if typ == durationType {
		return toDuration(value)
	}

	switch typ.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
		target := reflect.New(typ)
		if err := bindJSON(value, target.Interface()); err != nil {
			return nil, err
		}
		return target.Elem().Interface(), nil
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("cannot convert %T to %v", value, typ)
	}

	s, err := toString(value)
	if err != nil {
		return nil, err
	}
	out, err := cast.FromType(s, typ)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to %v: %w", s, typ, err)
	}
	// cast 返回基础类型，命名类型需要再转换一次
	if ov := reflect.ValueOf(out); ov.Type() != typ {
		if !ov.Type().ConvertibleTo(typ) {
			return nil, fmt.Errorf("cannot convert %q to %v", s, typ)
		}
		return ov.Convert(typ).Interface(), nil
	}
	return out, nil
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return "", fmt.Errorf("cannot use %T as a scalar value", value)
	}
	return fmt.Sprintf("%v", value), nil
}

func toDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n), nil
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case float64:
		return time.Duration(v), nil
	}
	return 0, fmt.Errorf("cannot convert %T to time.Duration", value)
}
