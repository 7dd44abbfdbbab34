package secmap

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/go-viper/mapstructure/v2"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// Converter 是自定义转换钩子：把原始值转换为 target 类型。
//
// 无法处理时原样返回 raw；返回值满足 target 时才会被采用。
// 返回的 *[MappingError] 视为该值映射失败，其他错误原样向上传播。
type Converter func(raw any, target reflect.Type) (any, error)

// Enum 由枚举类型实现，返回全部取值；名称取 fmt.Sprint 的结果，匹配时忽略大小写。
type Enum interface {
	EnumValues() []any
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// ChainConverters 依次执行多个转换器，前一个的输出作为后一个的输入，
// 得到满足 target 的值即返回。
func ChainConverters(converters ...Converter) Converter {
	return func(raw any, target reflect.Type) (any, error) {
		current := raw
		for _, conv := range converters {
			if conv == nil {
				continue
			}
			out, err := conv(current, target)
			if err != nil {
				return nil, err
			}
			if _, ok := satisfies(out, target); ok {
				return out, nil
			}
			if out != nil {
				current = out
			}
		}

		return current, nil
	}
}

// WeakConverter 是默认转换器，基于 mapstructure 做宽松的标量转换：
// "8080" 转 int、"30s" 转 time.Duration、实现 encoding.TextUnmarshaler 的类型从字符串解析，
// 映射可解码为普通（非 section）结构体。
//
// 枚举、字符串、section 与集合类型由引擎自身处理，这里原样返回。
func WeakConverter(raw any, target reflect.Type) (any, error) {
	if raw == nil || !weakTarget(target) {
		return raw, nil
	}
	if err := checkNumber(raw, target); err != nil {
		return nil, err
	}

	out := reflect.New(target)
	conf := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		Result:           out.Interface(),
		WeaklyTypedInput: true,
		TagName:          "json",
	}
	decoder, err := mapstructure.NewDecoder(conf)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(plain(raw)); err != nil {
		return nil, &MappingError{
			Message: fmt.Sprintf("cannot convert %s to %s", describe(raw), target),
			Cause:   err,
		}
	}

	return out.Elem().Interface(), nil
}

// checkNumber 拒绝 mapstructure 会静默截断的数值：溢出与非整数的浮点数。
func checkNumber(raw any, target reflect.Type) error {
	if _, ok := satisfies(raw, target); ok {
		return nil
	}

	v := reflect.ValueOf(raw)
	tk := target.Kind()
	if !isIntKind(tk) && !isUintKind(tk) && !isFloatKind(tk) {
		return nil
	}

	switch kind := v.Kind(); {
	case isIntKind(kind), isUintKind(kind):
		return mappingErrorf("value %v overflows %s", raw, target)
	case isFloatKind(kind) && !isFloatKind(tk):
		f := v.Float()
		if f != math.Trunc(f) {
			return mappingErrorf("value %v is not an integer", raw)
		}
		if f < math.MinInt64 || f >= math.MaxInt64 ||
			(isIntKind(tk) && target.OverflowInt(int64(f))) ||
			(isUintKind(tk) && (f < 0 || target.OverflowUint(uint64(f)))) {
			return mappingErrorf("value %v overflows %s", raw, target)
		}
	case isFloatKind(kind):
		return mappingErrorf("value %v overflows %s", raw, target)
	}

	return nil
}

func weakTarget(target reflect.Type) bool {
	if isOpen(target) || target.Kind() == reflect.String || isEnum(target) {
		return false
	}
	if _, ok := sectionStruct(target); ok {
		return false
	}

	return !isCollection(target)
}

// plain 把 *store.Map 还原为 map[string]any，供 mapstructure 使用。
func plain(raw any) any {
	switch typed := raw.(type) {
	case *store.Map:
		return typed.ToGo()
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = plain(typed[i])
		}

		return out
	default:
		return raw
	}
}

func describe(raw any) string {
	switch raw.(type) {
	case *store.Map:
		return "a mapping"
	case []any:
		return "a list"
	case string:
		return fmt.Sprintf("%q", raw)
	default:
		return fmt.Sprintf("%v", raw)
	}
}

func stringify(raw any) string {
	if m, ok := raw.(*store.Map); ok {
		return fmt.Sprint(m.ToGo())
	}

	return fmt.Sprint(raw)
}

// ═══════════════════════════════════════════════════════════════════════════
// 类型判断
// ═══════════════════════════════════════════════════════════════════════════

func isEnum(typ reflect.Type) bool {
	return typ.Kind() != reflect.Pointer && typ.Kind() != reflect.Interface && typ.Implements(enumIface)
}

// isTextual 判断类型是否从文本解析（如 net.IP、time.Time），这类类型按标量处理。
func isTextual(typ reflect.Type) bool {
	return reflect.PointerTo(typ).Implements(textUnmarshalerType)
}

func isCollection(typ reflect.Type) bool {
	if isTextual(typ) {
		return false
	}
	if isOrdered(typ) {
		return true
	}
	switch typ.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// satisfies 判断 raw 是否已满足 target，包含数值种类之间的无损转换。
func satisfies(raw any, target reflect.Type) (reflect.Value, bool) {
	v := reflect.ValueOf(raw)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if v.Type().AssignableTo(target) {
		return v, true
	}
	if isEnum(target) {
		return reflect.Value{}, false
	}

	kind := v.Kind()
	switch tk := target.Kind(); {
	case isIntKind(tk):
		switch {
		case isIntKind(kind) && !target.OverflowInt(v.Int()):
			return v.Convert(target), true
		case isUintKind(kind) && v.Uint() <= 1<<63-1 && !target.OverflowInt(int64(v.Uint())):
			return v.Convert(target), true
		}
	case isUintKind(tk):
		switch {
		case isUintKind(kind) && !target.OverflowUint(v.Uint()):
			return v.Convert(target), true
		case isIntKind(kind) && v.Int() >= 0 && !target.OverflowUint(uint64(v.Int())):
			return v.Convert(target), true
		}
	case isFloatKind(tk):
		switch {
		case isIntKind(kind), isUintKind(kind):
			return v.Convert(target), true
		case isFloatKind(kind) && !target.OverflowFloat(v.Float()):
			return v.Convert(target), true
		}
	}

	return reflect.Value{}, false
}

// ═══════════════════════════════════════════════════════════════════════════
// 转换分派
// ═══════════════════════════════════════════════════════════════════════════

// convert 把原始值转换为 target 类型，无效的 reflect.Value 表示缺失。
func (m *Mapper) convert(raw any, target reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Value{}, nil
	}
	if v, ok := satisfies(raw, target); ok {
		return v, nil
	}

	if m.converter != nil {
		out, err := m.converter(raw, target)
		if err != nil {
			return reflect.Value{}, err
		}
		if v, ok := satisfies(out, target); ok {
			return v, nil
		}
	}

	if isOpen(target) {
		return reflect.ValueOf(raw), nil
	}

	if isEnum(target) {
		return matchEnum(raw, target)
	}

	if st, ok := sectionStruct(target); ok {
		src, isMap := store.Normalize(raw).(*store.Map)
		if !isMap {
			src = store.NewMap()
		}
		ptr, err := m.bindStruct(st, "", src)
		if err != nil {
			return reflect.Value{}, err
		}
		if v, ok := satisfies(sectionValue(ptr, target), target); ok {
			return v, nil
		}

		return reflect.Value{}, errors.New(ErrCodeUnsupportedType, fmt.Sprintf("cannot produce %s from section %s", target, st))
	}

	if isCollection(target) {
		return m.convertCollection(raw, target)
	}

	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(stringify(raw)).Convert(target), nil
	case reflect.Pointer:
		inner, err := m.convert(raw, target.Elem())
		if err != nil || !inner.IsValid() {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(inner)

		return ptr, nil
	}

	return reflect.Value{}, errors.New(ErrCodeUnsupportedType,
		fmt.Sprintf("unsupported type %s (value %s)", target, describe(raw)))
}

func matchEnum(raw any, target reflect.Type) (reflect.Value, error) {
	values := reflect.Zero(target).Interface().(Enum).EnumValues()
	text := stringify(raw)

	names := make([]string, 0, len(values))
	for _, val := range values {
		name := fmt.Sprint(val)
		names = append(names, name)
		if !strings.EqualFold(name, text) {
			continue
		}
		if v, ok := satisfies(val, target); ok {
			return v, nil
		}
	}

	return reflect.Value{}, mappingErrorf("value %q was not one of %s", text, strings.Join(names, ", "))
}

// applyConverter 对已有值再做一次钩子转换（用于默认值等场景）。
func (m *Mapper) applyConverter(value reflect.Value, target reflect.Type) (reflect.Value, error) {
	if v, ok := satisfies(value.Interface(), target); ok {
		return v, nil
	}
	if m.converter != nil {
		out, err := m.converter(value.Interface(), target)
		if err != nil {
			return reflect.Value{}, err
		}
		if v, ok := satisfies(out, target); ok {
			return v, nil
		}
	}

	return reflect.Value{}, mappingErrorf("value of type %s cannot be used as %s", value.Type(), target)
}
