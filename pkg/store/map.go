package store

import (
	"fmt"
	"iter"
	"slices"
	"sort"
)

// Map 是保持插入顺序的映射，对应 YAML 中的 mapping 节点。
//
// key 保留原始标量类型（string、int、bool 等），按路径查找时使用其字符串形式匹配。
type Map struct {
	keys   []any
	values map[any]any
}

// NewMap 创建空的有序映射。
func NewMap() *Map {
	return &Map{values: make(map[any]any)}
}

// FromGo 将普通 map 递归转换为 [Map]，key 按字典序排列。
func FromGo(src map[string]any) *Map {
	out := NewMap()
	keys := make([]string, 0, len(src))
	for key := range src {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out.Set(key, Normalize(src[key]))
	}

	return out
}

// Normalize 把 map[string]any / map[any]any 等 Go 原生结构递归转换为 [Map]。
func Normalize(val any) any {
	switch typed := val.(type) {
	case map[string]any:
		return FromGo(typed)
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[fmt.Sprintf("%v", key)] = value
		}

		return FromGo(out)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = Normalize(typed[i])
		}

		return out
	default:
		return val
	}
}

// Len 返回条目数量。
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys 返回 key 的副本，顺序即插入顺序。
func (m *Map) Keys() []any {
	if m == nil {
		return nil
	}

	return slices.Clone(m.keys)
}

// Get 按原始 key 取值。
func (m *Map) Get(key any) (any, bool) {
	if m == nil {
		return nil, false
	}
	val, ok := m.values[key]

	return val, ok
}

// Lookup 按字符串形式查找 key，先精确匹配，再比较各 key 的 fmt 形式。
func (m *Map) Lookup(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if val, ok := m.values[key]; ok {
		return val, true
	}
	for _, k := range m.keys {
		if _, isString := k.(string); isString {
			continue
		}
		if fmt.Sprintf("%v", k) == key {
			return m.values[k], true
		}
	}

	return nil, false
}

// Set 写入条目；已存在的 key 保持原有位置。
func (m *Map) Set(key, value any) {
	if m.values == nil {
		m.values = make(map[any]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete 删除条目，返回是否存在。
func (m *Map) Delete(key any) bool {
	if m == nil {
		return false
	}
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k any) bool { return k == key })

	return true
}

// resolveKey 返回与字符串 key 对应的原始 key。
func (m *Map) resolveKey(key string) (any, bool) {
	if _, ok := m.values[key]; ok {
		return key, true
	}
	for _, k := range m.keys {
		if fmt.Sprintf("%v", k) == key {
			return k, true
		}
	}

	return nil, false
}

// All 按插入顺序遍历条目。
func (m *Map) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		if m == nil {
			return
		}
		for _, key := range m.keys {
			if !yield(key, m.values[key]) {
				return
			}
		}
	}
}

// Clone 深拷贝映射及其中的序列与子映射。
func (m *Map) Clone() *Map {
	out := NewMap()
	for key, value := range m.All() {
		out.Set(key, cloneValue(value))
	}

	return out
}

// ToGo 转换为 map[string]any，便于 JSON 输出。
func (m *Map) ToGo() map[string]any {
	out := make(map[string]any, m.Len())
	for key, value := range m.All() {
		out[fmt.Sprintf("%v", key)] = toGoValue(value)
	}

	return out
}

func cloneValue(val any) any {
	switch typed := val.(type) {
	case *Map:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = cloneValue(typed[i])
		}

		return out
	default:
		return val
	}
}

func toGoValue(val any) any {
	switch typed := val.(type) {
	case *Map:
		return typed.ToGo()
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = toGoValue(typed[i])
		}

		return out
	default:
		return val
	}
}
