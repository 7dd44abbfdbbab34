package secmap

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/agilira/go-errors"
)

// Field 描述参与映射的一个结构体字段。
type Field struct {
	// Name 是 Go 字段名。
	Name string
	// Key 是查找时使用的有效名称。
	Key string
	// Type 是声明类型。
	Type reflect.Type
	// Index 是 reflect.Value.FieldByIndex 使用的索引路径。
	Index []int
	// Always 表示缺失时也要实例化（依赖 Defaulter 或转换器给出值）。
	Always bool
	// Inline 表示沿用父路径，不追加自身名称。
	Inline bool
	// Decide 表示具体类型由 [RuntimeDecider] 在运行时决定。
	Decide bool
	// Owner 是声明该字段的结构体类型。
	Owner reflect.Type
}

// Open 判断字段类型是否需要运行时决定。
func (f Field) Open() bool {
	return f.Decide || isOpen(f.Type)
}

const tagName = "secmap"

var fieldCache sync.Map // reflect.Type -> []Field

// Fields 返回 section 结构体 typ 参与映射的字段，已按处理顺序排列。
//
// 具体类型字段在前，any 或 decide 字段在后，各自保持声明顺序。
func Fields(typ reflect.Type) ([]Field, error) {
	st, ok := sectionStruct(typ)
	if !ok {
		if st == nil {
			return nil, errors.New(ErrCodeInvalidTarget, fmt.Sprintf("%s is not a struct type", typ))
		}

		return nil, errors.New(ErrCodeNoConstructor,
			fmt.Sprintf("%s does not implement secmap.Section (embed secmap.Base)", st))
	}

	if cached, ok := fieldCache.Load(st); ok {
		return cached.([]Field), nil
	}

	var fields []Field
	if err := collectFields(st, st, nil, &fields); err != nil {
		return nil, err
	}
	if err := checkDuplicates(st, fields); err != nil {
		return nil, err
	}

	ordered := make([]Field, 0, len(fields))
	for _, f := range fields {
		if !f.Open() {
			ordered = append(ordered, f)
		}
	}
	for _, f := range fields {
		if f.Open() {
			ordered = append(ordered, f)
		}
	}

	fieldCache.Store(st, ordered)

	return ordered, nil
}

// collectFields 收集 owner 声明的字段，嵌入结构体的字段排在自身字段之后。
func collectFields(root, owner reflect.Type, index []int, out *[]Field) error {
	always := false
	for i := range owner.NumField() {
		if sf := owner.Field(i); sf.Anonymous && sf.Type == alwaysType {
			always = true
		}
	}

	var embedded []reflect.StructField
	for i := range owner.NumField() {
		sf := owner.Field(i)
		tag := sf.Tag.Get(tagName)
		if tag == "-" {
			continue
		}
		name, opts := parseTag(tag)

		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
			if sf.Type != alwaysType && sf.Type != baseType {
				embedded = append(embedded, sf)
			}

			continue
		}
		if !sf.IsExported() {
			continue
		}

		if sf.Type == root || sf.Type == reflect.PointerTo(root) ||
			sf.Type == owner || sf.Type == reflect.PointerTo(owner) {
			return errors.New(ErrCodeSelfReference,
				fmt.Sprintf("field %s.%s refers to its own type", owner.Name(), sf.Name))
		}

		if name == "" {
			name = jsonName(sf)
		}
		if name == "" {
			name = lowerFirst(sf.Name)
		}

		*out = append(*out, Field{
			Name:   sf.Name,
			Key:    name,
			Type:   sf.Type,
			Index:  appendIndex(index, sf.Index[0]),
			Always: always || opts["always"],
			Inline: opts["inline"],
			Decide: opts["decide"],
			Owner:  owner,
		})
	}

	for _, sf := range embedded {
		if err := collectFields(root, sf.Type, appendIndex(index, sf.Index[0]), out); err != nil {
			return err
		}
	}

	return nil
}

func checkDuplicates(typ reflect.Type, fields []Field) error {
	seen := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Inline {
			continue
		}
		if prev, ok := seen[f.Key]; ok {
			return errors.New(ErrCodeDuplicateKey,
				fmt.Sprintf("fields %s and %s of %s both map to key %q", prev, f.Name, typ.Name(), f.Key))
		}
		seen[f.Key] = f.Name
	}

	return nil
}

func parseTag(tag string) (string, map[string]bool) {
	if tag == "" {
		return "", nil
	}
	parts := strings.Split(tag, ",")
	opts := make(map[string]bool, len(parts)-1)
	for _, opt := range parts[1:] {
		opts[strings.TrimSpace(opt)] = true
	}

	return strings.TrimSpace(parts[0]), opts
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToLower(r)) + s[size:]
}

func appendIndex(index []int, i int) []int {
	out := make([]int, len(index), len(index)+1)
	copy(out, index)

	return append(out, i)
}
