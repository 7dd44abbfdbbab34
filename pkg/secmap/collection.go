package secmap

import (
	"fmt"
	"reflect"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// convertCollection 处理 slice、数组、集合（map[K]struct{}）、map 与 [Ordered]。
//
// 原始值形状不符时得到空集合而不是失败；单个元素失败会附加其位置。
func (m *Mapper) convertCollection(raw any, target reflect.Type) (reflect.Value, error) {
	if isOrdered(target) {
		return m.convertOrdered(raw, target)
	}

	switch target.Kind() {
	case reflect.Slice:
		return m.convertSlice(raw, target)
	case reflect.Array:
		return m.convertArray(raw, target)
	case reflect.Map:
		if target.Elem() == emptyStruct {
			return m.convertSet(raw, target)
		}

		return m.convertMap(raw, target)
	}

	return reflect.Value{}, nil
}

func (m *Mapper) convertSlice(raw any, target reflect.Type) (reflect.Value, error) {
	seq, _ := raw.([]any)
	out := reflect.MakeSlice(target, len(seq), len(seq))
	for i, item := range seq {
		v, err := m.convert(item, target.Elem())
		if err != nil {
			return reflect.Value{}, annotate(err, fmt.Sprintf(" (at index %d of a list)", i))
		}
		if v.IsValid() {
			out.Index(i).Set(v)
		}
	}

	return out, nil
}

// convertArray 按序列填充定长数组：超出长度是映射失败，不足的位置保留零值。
func (m *Mapper) convertArray(raw any, target reflect.Type) (reflect.Value, error) {
	seq, _ := raw.([]any)
	if len(seq) > target.Len() {
		return reflect.Value{}, mappingErrorf("expected at most %d elements but got %d", target.Len(), len(seq))
	}

	out := reflect.New(target).Elem()
	for i, item := range seq {
		v, err := m.convert(item, target.Elem())
		if err != nil {
			return reflect.Value{}, annotate(err, fmt.Sprintf(" (at index %d of an array)", i))
		}
		if v.IsValid() {
			out.Index(i).Set(v)
		}
	}

	return out, nil
}

func (m *Mapper) convertSet(raw any, target reflect.Type) (reflect.Value, error) {
	seq, _ := raw.([]any)
	out := reflect.MakeMapWithSize(target, len(seq))
	member := reflect.New(emptyStruct).Elem()
	for i, item := range seq {
		k, err := m.convert(item, target.Key())
		if err != nil {
			return reflect.Value{}, annotate(err, fmt.Sprintf(" (at index %d of a list)", i))
		}
		if k.IsValid() {
			out.SetMapIndex(k, member)
		}
	}

	return out, nil
}

func (m *Mapper) convertMap(raw any, target reflect.Type) (reflect.Value, error) {
	src, _ := store.Normalize(raw).(*store.Map)
	out := reflect.MakeMapWithSize(target, src.Len())
	err := m.eachEntry(src, target.Key(), target.Elem(), func(k, v reflect.Value) {
		if !v.IsValid() {
			v = reflect.Zero(target.Elem())
		}
		out.SetMapIndex(k, v)
	})
	if err != nil {
		return reflect.Value{}, err
	}

	return out, nil
}

func (m *Mapper) convertOrdered(raw any, target reflect.Type) (reflect.Value, error) {
	structType := target
	if target.Kind() == reflect.Pointer {
		structType = target.Elem()
	}

	ptr := reflect.New(structType)
	om, ok := ptr.Interface().(orderedMapping)
	if !ok {
		return reflect.Value{}, nil
	}
	keyType, valueType := om.typeArgs()

	src, _ := store.Normalize(raw).(*store.Map)
	if err := m.eachEntry(src, keyType, valueType, om.put); err != nil {
		return reflect.Value{}, err
	}

	if target.Kind() == reflect.Pointer {
		return ptr, nil
	}

	return ptr.Elem(), nil
}

// eachEntry 按存储顺序转换映射中的每个条目，key 转换为缺失的条目被跳过。
func (m *Mapper) eachEntry(src *store.Map, keyType, valueType reflect.Type, put func(k, v reflect.Value)) error {
	for rawKey, rawValue := range src.All() {
		k, err := m.convert(rawKey, keyType)
		if err != nil {
			return annotate(err, " (at the key of a map)")
		}
		if !k.IsValid() {
			continue
		}

		v, err := m.convert(rawValue, valueType)
		if err != nil {
			return annotate(err, fmt.Sprintf(" (at value for key=%v of a map)", rawKey))
		}
		put(k, v)
	}

	return nil
}
