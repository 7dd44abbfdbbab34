package section

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/templexp"
)

// maxRenderDepth 限制 Text 之间相互引用的深度。
const maxRenderDepth = 16

// Text 是配置中的模板文本，渲染时从解释上下文取变量。
//
// 零值渲染为空字符串。
type Text struct {
	tpl  *templexp.Template
	env  *secmap.Env
	sink secmap.Sink
}

// ParseText 解析模板文本。
//
// 语法错误会以错误屏的形式写入 sink，并返回 [*secmap.MappingError]。
func ParseText(source string, env *secmap.Env, sink secmap.Sink) (*Text, error) {
	if sink == nil {
		sink = secmap.Discard
	}

	tpl, err := templexp.Parse(source)
	if err != nil {
		var te *templexp.Error
		if stderrors.As(err, &te) {
			sink.Log(te.Source, te.Pos, te.Msg, nil)
		} else {
			sink.Log(source, 0, err.Error(), err)
		}

		return nil, &secmap.MappingError{
			Message: "the above error occurred while trying to parse a template",
			Cause:   err,
		}
	}

	return &Text{tpl: tpl, env: env, sink: sink}, nil
}

// Source 返回模板原文。
func (t *Text) Source() string {
	if t == nil || t.tpl == nil {
		return ""
	}

	return t.tpl.Source()
}

// IsLiteral 判断是否不含任何变量引用。
func (t *Text) IsLiteral() bool {
	return t == nil || t.tpl == nil || t.tpl.IsLiteral()
}

// Render 渲染模板，extra 中的变量优先于构造时的上下文，可为 nil。
func (t *Text) Render(extra *secmap.Env) (string, error) {
	return t.render(extra, 0)
}

func (t *Text) render(extra *secmap.Env, depth int) (string, error) {
	if t == nil || t.tpl == nil {
		return "", nil
	}
	if depth > maxRenderDepth {
		return "", fmt.Errorf("template nesting deeper than %d levels: %q", maxRenderDepth, t.Source())
	}

	env := extra.Inherit(t.env)

	var nested error
	lookup := func(name string) (string, bool) {
		val, ok := env.Lookup(name)
		if !ok || val == nil {
			return "", false
		}
		text, err := valueText(val, extra, depth)
		if err != nil && nested == nil {
			nested = err
		}

		return text, true
	}

	out, err := t.tpl.Execute(lookup)
	if err != nil {
		return "", err
	}
	if nested != nil {
		return "", nested
	}

	return out, nil
}

func valueText(val any, extra *secmap.Env, depth int) (string, error) {
	switch typed := val.(type) {
	case string:
		return typed, nil
	case *Text:
		return typed.render(extra, depth+1)
	case Text:
		return typed.render(extra, depth+1)
	case *store.Map:
		return fmt.Sprint(typed.ToGo()), nil
	case fmt.Stringer:
		return typed.String(), nil
	default:
		return fmt.Sprint(val), nil
	}
}

// Plain 渲染模板；失败时把错误写入诊断输出并返回空字符串。
func (t *Text) Plain(extra *secmap.Env) string {
	out, err := t.Render(extra)
	if err == nil {
		return out
	}

	var te *templexp.Error
	if stderrors.As(err, &te) {
		t.sink.Log(te.Source, te.Pos, te.Msg, nil)
	} else {
		t.sink.Log(t.Source(), 0, "could not render template", err)
	}

	return ""
}

// String 以构造时的上下文渲染，失败时返回原文。
func (t *Text) String() string {
	out, err := t.Render(nil)
	if err != nil {
		return t.Source()
	}

	return out
}

// MarshalText 输出模板原文，便于序列化配置。
func (t Text) MarshalText() ([]byte, error) {
	return []byte(t.Source()), nil
}

var (
	textType    = reflect.TypeFor[Text]()
	textPtrType = reflect.TypeFor[*Text]()
)

// Converter 返回用于 [secmap.WithConverter] 的转换钩子：
//   - 任意标量转为 Text / *Text（以 env 与 sink 构造）
//   - 含 "${" 的字符串在转为数值或布尔类型前先渲染
//
// 其余情况原样返回，通常与 [secmap.WeakConverter] 串联使用。
func Converter(env *secmap.Env, sink secmap.Sink) secmap.Converter {
	return func(raw any, target reflect.Type) (any, error) {
		switch target {
		case textType, textPtrType:
			switch raw.(type) {
			case *store.Map, []any:
				return nil, &secmap.MappingError{Message: fmt.Sprintf("expected text but found %T", raw)}
			}
			text, err := ParseText(fmt.Sprint(raw), env, sink)
			if err != nil {
				return nil, err
			}
			if target == textPtrType {
				return text, nil
			}

			return *text, nil
		}

		s, ok := raw.(string)
		if !ok || !strings.Contains(s, "${") || !renderable(target) {
			return raw, nil
		}

		text, err := ParseText(s, env, sink)
		if err != nil {
			return nil, err
		}
		out, err := text.Render(nil)
		if err != nil {
			return nil, &secmap.MappingError{Message: fmt.Sprintf("could not render %q: %v", s, err), Cause: err}
		}

		return out, nil
	}
}

func renderable(target reflect.Type) bool {
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	if _, isEnum := reflect.Zero(target).Interface().(secmap.Enum); isEnum {
		return false
	}

	switch target.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
