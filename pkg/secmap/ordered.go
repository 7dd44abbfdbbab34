package secmap

import (
	"iter"
	"reflect"
	"slices"
)

// Ordered 是保持插入顺序的映射，绑定时按存储中的顺序写入条目。
//
// 零值可直接使用。字段可声明为 Ordered[K, V] 或 *Ordered[K, V]。
type Ordered[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrdered 创建空映射。
func NewOrdered[K comparable, V any]() *Ordered[K, V] {
	return &Ordered[K, V]{values: make(map[K]V)}
}

// Set 写入条目，已存在的 key 保持原有位置。
func (o *Ordered[K, V]) Set(key K, value V) {
	if o.values == nil {
		o.values = make(map[K]V)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get 取值。
func (o *Ordered[K, V]) Get(key K) (V, bool) {
	val, ok := o.values[key]

	return val, ok
}

// Len 返回条目数量。
func (o *Ordered[K, V]) Len() int {
	return len(o.keys)
}

// Keys 按插入顺序返回 key 的副本。
func (o *Ordered[K, V]) Keys() []K {
	return slices.Clone(o.keys)
}

// All 按插入顺序遍历。
func (o *Ordered[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, key := range o.keys {
			if !yield(key, o.values[key]) {
				return
			}
		}
	}
}

// orderedMapping 供引擎在不知道类型参数的情况下填充 Ordered。
type orderedMapping interface {
	typeArgs() (reflect.Type, reflect.Type)
	put(key, value reflect.Value)
	each(fn func(key, value any))
}

func (o *Ordered[K, V]) typeArgs() (reflect.Type, reflect.Type) {
	return reflect.TypeFor[K](), reflect.TypeFor[V]()
}

func (o *Ordered[K, V]) put(key, value reflect.Value) {
	k, ok := key.Interface().(K)
	if !ok {
		return
	}

	var v V
	if value.IsValid() {
		if typed, ok := value.Interface().(V); ok {
			v = typed
		}
	}
	o.Set(k, v)
}

func (o *Ordered[K, V]) each(fn func(key, value any)) {
	for key, value := range o.All() {
		fn(key, value)
	}
}

// isOrdered 判断 typ 是否为 Ordered[K, V] 或其指针。
func isOrdered(typ reflect.Type) bool {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	return typ.Kind() == reflect.Struct && reflect.PointerTo(typ).Implements(orderedTarget)
}
