package secmap

import (
	"strings"

	"github.com/agilira/go-errors"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// resolvePath 读取 path 处的原始值，nil 表示缺失。
//
// source 为 nil 时直接查询 st；否则在替代映射中逐段查找，中途遇到非映射值即视为缺失。
func resolvePath(st store.Store, path string, source *store.Map) (any, error) {
	if source == nil {
		if st == nil {
			return nil, nil
		}

		return st.Get(path), nil
	}
	if path == "" {
		return source, nil
	}

	current := source
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return nil, errors.New(ErrCodeBlankKey, "cannot resolve a blank key (path '"+path+"')")
		}

		val, ok := current.Lookup(segment)
		if i == len(segments)-1 {
			if !ok {
				return nil, nil
			}

			return val, nil
		}

		next, isMap := val.(*store.Map)
		if !isMap {
			return nil, nil
		}
		current = next
	}

	return nil, nil
}

// JoinPaths 以 "." 连接两段路径。
//
// 任一段为空白时返回另一段；已有分隔符时不会重复添加。
func JoinPaths(a, b string) string {
	switch {
	case strings.TrimSpace(a) == "":
		return b
	case strings.TrimSpace(b) == "":
		return a
	}

	aDot := strings.HasSuffix(a, ".")
	bDot := strings.HasPrefix(b, ".")
	switch {
	case aDot && bDot:
		return a + b[1:]
	case aDot || bDot:
		return a + b
	default:
		return a + "." + b
	}
}
