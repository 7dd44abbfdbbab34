package confdir

import (
	"reflect"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

type flagBinding struct {
	cmd  *cli.Command
	typ  reflect.Type
	root string
}

// FlagName 返回配置路径对应的 CLI flag 名称。
func FlagName(path string) string {
	return strings.ReplaceAll(path, ".", "-")
}

// apply 将用户显式设置的 flags 写入文档，返回写入的路径。
func (b flagBinding) apply(doc *store.Document) []string {
	var applied []string
	applyFlagsRecursive(b.cmd, doc, b.typ, b.root, &applied)

	return applied
}

// applyFlagsRecursive 递归遍历 section 字段并应用 CLI flags。
//
// 嵌套 section 递归处理，any 与 decide 字段无法确定类型，跳过。
func applyFlagsRecursive(cmd *cli.Command, doc *store.Document, typ reflect.Type, prefix string, applied *[]string) {
	fields, err := secmap.Fields(typ)
	if err != nil {
		return
	}

	for _, field := range fields {
		if field.Open() {
			continue
		}

		path := prefix
		if !field.Inline {
			path = secmap.JoinPaths(prefix, field.Key)
		}

		if _, err := secmap.Fields(field.Type); err == nil {
			applyFlagsRecursive(cmd, doc, field.Type, path, applied)

			continue
		}

		flag := FlagName(path)
		if !cmd.IsSet(flag) {
			continue
		}
		if value, ok := flagValue(cmd, flag, field.Type); ok {
			doc.Set(path, value)
			*applied = append(*applied, path)
		}
	}
}

// flagValue 按字段类型读取 CLI 值。
//
// 枚举、Text 等类型按字符串读取，交给绑定时的转换器处理。
func flagValue(cmd *cli.Command, flag string, typ reflect.Type) (any, bool) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	switch typ {
	case reflect.TypeFor[time.Duration]():
		return cmd.Duration(flag), true
	case reflect.TypeFor[time.Time]():
		return cmd.Timestamp(flag), true
	}
	if _, isEnum := reflect.Zero(typ).Interface().(secmap.Enum); isEnum {
		return cmd.String(flag), true
	}

	switch typ.Kind() {
	case reflect.String, reflect.Struct:
		return cmd.String(flag), true
	case reflect.Bool:
		return cmd.Bool(flag), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return cmd.Int(flag), true
	case reflect.Int64:
		return cmd.Int64(flag), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return cmd.Uint(flag), true
	case reflect.Uint64:
		return cmd.Uint64(flag), true
	case reflect.Float32, reflect.Float64:
		return cmd.Float64(flag), true
	case reflect.Slice:
		return sliceFlagValue(cmd, flag, typ.Elem())
	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any)
		for key, value := range cmd.StringMap(flag) {
			out[key] = value
		}

		return store.Normalize(out), true
	default:
		return nil, false
	}
}

// sliceFlagValue 处理切片类型，元素统一为 []any 以便按列表转换。
func sliceFlagValue(cmd *cli.Command, flag string, elem reflect.Type) (any, bool) {
	switch elem.Kind() {
	case reflect.String:
		return toList(cmd.StringSlice(flag)), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return toList(cmd.IntSlice(flag)), true
	case reflect.Int64:
		return toList(cmd.Int64Slice(flag)), true
	case reflect.Float32, reflect.Float64:
		return toList(cmd.Float64Slice(flag)), true
	default:
		return nil, false
	}
}

func toList[E any](values []E) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}
