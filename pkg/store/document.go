package store

import (
	"fmt"
	"strings"
)

// Store 是绑定引擎唯一依赖的存储接口。
//
// Get 按点分路径取值，nil 表示不存在。空路径返回根映射。
type Store interface {
	Get(path string) any
}

// Document 是以 [Map] 为根的层级配置文档。
type Document struct {
	root *Map
}

var _ Store = (*Document)(nil)

// NewDocument 创建空文档。
func NewDocument() *Document {
	return &Document{root: NewMap()}
}

// NewDocumentFrom 以给定映射作为根创建文档，nil 视为空映射。
func NewDocumentFrom(root *Map) *Document {
	if root == nil {
		root = NewMap()
	}

	return &Document{root: root}
}

// Root 返回根映射。
func (d *Document) Root() *Map {
	return d.root
}

// Get 实现 [Store]。
//
// 路径中途遇到非映射值或空段时返回 nil。
func (d *Document) Get(path string) any {
	if path == "" {
		return d.root
	}

	var current any = d.root
	for part := range strings.SplitSeq(path, ".") {
		m, ok := current.(*Map)
		if !ok || part == "" {
			return nil
		}
		current, ok = m.Lookup(part)
		if !ok {
			return nil
		}
	}

	return current
}

// Exists 判断路径是否存在（值为 null 的 key 也算存在）。
func (d *Document) Exists(path string) bool {
	parent, last := d.parentOf(path)
	if parent == nil {
		return false
	}
	_, ok := parent.resolveKey(last)

	return ok
}

// Set 按路径写值，缺失的中间层自动创建，非映射的中间值会被替换。
func (d *Document) Set(path string, value any) {
	parts := strings.Split(path, ".")
	current := d.root
	for i, part := range parts {
		key := any(part)
		if existing, ok := current.resolveKey(part); ok {
			key = existing
		}
		if i == len(parts)-1 {
			current.Set(key, value)

			return
		}

		next, _ := current.values[key].(*Map)
		if next == nil {
			next = NewMap()
			current.Set(key, next)
		}
		current = next
	}
}

// Remove 删除路径对应的条目，返回是否删除成功。
func (d *Document) Remove(path string) bool {
	parent, last := d.parentOf(path)
	if parent == nil {
		return false
	}
	key, ok := parent.resolveKey(last)
	if !ok {
		return false
	}

	return parent.Delete(key)
}

func (d *Document) parentOf(path string) (*Map, string) {
	if path == "" {
		return nil, ""
	}
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return d.root, path
	}
	parent, _ := d.Get(path[:idx]).(*Map)

	return parent, path[idx+1:]
}

// Keys 返回所有叶子路径（空映射本身视为叶子），顺序与文档一致。
func (d *Document) Keys() []string {
	var keys []string
	flattenMapKeys(d.root, "", &keys)

	return keys
}

func flattenMapKeys(data *Map, prefix string, keys *[]string) {
	for key, value := range data.All() {
		fullKey := fmt.Sprintf("%v", key)
		if prefix != "" {
			fullKey = prefix + "." + fullKey
		}
		if child, ok := value.(*Map); ok {
			if child.Len() == 0 {
				*keys = append(*keys, fullKey)

				continue
			}
			flattenMapKeys(child, fullKey, keys)

			continue
		}

		*keys = append(*keys, fullKey)
	}
}

// ExtendMissingKeys 把 defaults 中存在而当前文档缺失的 key 补齐，返回补充的 key 数量。
//
// 已存在的值不会被覆盖；两边都是映射时递归合并。
func (d *Document) ExtendMissingKeys(defaults *Document) int {
	return extendMap(d.root, defaults.root)
}

func extendMap(dst, src *Map) int {
	count := 0
	for key, value := range src.All() {
		existing, ok := dst.Get(key)
		if !ok {
			dst.Set(key, cloneValue(value))
			count++

			continue
		}

		srcMap, srcIsMap := value.(*Map)
		dstMap, dstIsMap := existing.(*Map)
		if srcIsMap && dstIsMap {
			count += extendMap(dstMap, srcMap)
		}
	}

	return count
}

// Clone 深拷贝文档。
func (d *Document) Clone() *Document {
	return &Document{root: d.root.Clone()}
}
