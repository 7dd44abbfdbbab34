package secmap

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

var (
	durationType       = reflect.TypeFor[time.Duration]()
	textMarshalerIface = reflect.TypeFor[encoding.TextMarshaler]()
)

// Dump 把已绑定的 section 转回配置树，key 与绑定时一致。
//
// section 与映射输出为 *store.Map（可用 store.NewDocumentFrom 编码为 YAML），
// 枚举与 time.Duration 输出名称，实现 encoding.TextMarshaler 的类型输出文本；
// 值为 nil 的字段不输出。
func Dump(v any) any {
	return dumpValue(reflect.ValueOf(v))
}

func dumpValue(val reflect.Value) any {
	for val.IsValid() && (val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface) {
		if val.IsNil() {
			return nil
		}
		if val.Kind() == reflect.Pointer {
			if m, ok := val.Interface().(orderedMapping); ok {
				return dumpOrdered(m)
			}
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return nil
	}

	typ := val.Type()
	switch {
	case typ == durationType, isEnum(typ):
		return fmt.Sprint(val.Interface())
	case isOrdered(typ):
		return dumpOrdered(addressable(val).Addr().Interface().(orderedMapping))
	case typ.Implements(textMarshalerIface):
		return marshalText(val.Interface().(encoding.TextMarshaler))
	case reflect.PointerTo(typ).Implements(textMarshalerIface):
		return marshalText(addressable(val).Addr().Interface().(encoding.TextMarshaler))
	}

	if _, ok := sectionStruct(typ); ok {
		return dumpSection(val)
	}

	switch val.Kind() {
	case reflect.Slice:
		if val.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, val.Len())
		for i := range val.Len() {
			out[i] = dumpValue(val.Index(i))
		}

		return out
	case reflect.Map:
		return dumpMap(val)
	default:
		return val.Interface()
	}
}

func dumpSection(val reflect.Value) any {
	fields, err := Fields(val.Type())
	if err != nil {
		return nil
	}

	out := store.NewMap()
	for _, field := range fields {
		dumped := dumpValue(val.FieldByIndex(field.Index))
		if dumped == nil {
			continue
		}
		if nested, ok := dumped.(*store.Map); ok && field.Inline {
			for key, value := range nested.All() {
				out.Set(key, value)
			}

			continue
		}
		out.Set(field.Key, dumped)
	}

	return out
}

// dumpMap 按 key 的文本排序输出，集合 map[K]struct{} 输出为列表。
func dumpMap(val reflect.Value) any {
	if val.IsNil() {
		return nil
	}

	keys := val.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	if val.Type().Elem() == emptyStruct {
		out := make([]any, len(keys))
		for i, key := range keys {
			out[i] = dumpValue(key)
		}

		return out
	}

	out := store.NewMap()
	for _, key := range keys {
		out.Set(dumpValue(key), dumpValue(val.MapIndex(key)))
	}

	return out
}

func dumpOrdered(m orderedMapping) any {
	out := store.NewMap()
	m.each(func(key, value any) {
		out.Set(dumpValue(reflect.ValueOf(key)), dumpValue(reflect.ValueOf(value)))
	})

	return out
}

func marshalText(m encoding.TextMarshaler) any {
	text, err := m.MarshalText()
	if err != nil {
		return nil
	}

	return string(text)
}

// addressable 返回可取地址的副本。
func addressable(val reflect.Value) reflect.Value {
	if val.CanAddr() {
		return val
	}
	ptr := reflect.New(val.Type())
	ptr.Elem().Set(val)

	return ptr.Elem()
}
