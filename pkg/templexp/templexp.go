package templexp

import (
	"fmt"
	"os"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// 变量查找
// ═══════════════════════════════════════════════════════════════════════════

// Lookup 按名称查找变量值，第二个返回值表示变量是否已设置。
type Lookup func(name string) (string, bool)

// Environ 返回当前环境变量快照的查找函数。
func Environ() Lookup {
	vars := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			vars[parts[0]] = parts[1]
		}
	}

	return MapLookup(vars)
}

// MapLookup 基于 map 的查找函数。
func MapLookup(vars map[string]string) Lookup {
	return func(name string) (string, bool) {
		val, ok := vars[name]

		return val, ok
	}
}

// Chain 依次尝试多个查找函数，返回第一个命中的结果。
func Chain(lookups ...Lookup) Lookup {
	return func(name string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if val, ok := lookup(name); ok {
				return val, true
			}
		}

		return "", false
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误
// ═══════════════════════════════════════════════════════════════════════════

// Error 描述解析或展开失败，Pos 为 Source 中的字节偏移。
type Error struct {
	Source string
	Pos    int
	Msg    string
}

func (e *Error) Error() string {
	return "templexp: " + e.Msg
}

func requiredError(source string, pos int, name, word string) error {
	if word == "" {
		return &Error{Source: source, Pos: pos, Msg: name + ": parameter null or not set"}
	}

	return &Error{Source: source, Pos: pos, Msg: fmt.Sprintf("%s: %s", name, word)}
}

// ═══════════════════════════════════════════════════════════════════════════
// 解析
// ═══════════════════════════════════════════════════════════════════════════

// Template 是解析后的模板，可针对不同的变量来源多次执行。
type Template struct {
	source string
	parts  []part
}

type part struct {
	literal string
	expr    *expression
}

type expression struct {
	name string
	op   string
	word *Template
	pos  int
}

func isVarNameStart(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || ch == '_'
}

func isVarNameChar(ch byte) bool {
	return isVarNameStart(ch) || (ch >= '0' && ch <= '9') || ch == '.'
}

func parseShellParameter(expr string) (string, string, string, bool) {
	if expr == "" {
		return "", "", "", false
	}
	if !isVarNameStart(expr[0]) {
		return "", "", "", false
	}

	i := 1
	for i < len(expr) && isVarNameChar(expr[i]) {
		i++
	}

	name := expr[:i]
	rest := expr[i:]
	if rest == "" {
		return name, "", "", true
	}

	if len(rest) >= 2 && rest[0] == ':' {
		switch rest[1] {
		case '-', '+', '?', '=':
			return name, rest[:2], rest[2:], true
		}
	}

	switch rest[0] {
	case '-', '+', '?', '=':
		return name, rest[:1], rest[1:], true
	}

	return "", "", "", false
}

// Parse 解析模板文本。
//
// 未闭合的 "${" 返回带位置的 [*Error]；无法识别的 ${...} 表达式按原文保留。
func Parse(text string) (*Template, error) {
	return parseAt(text, text, 0)
}

func parseAt(source, text string, offset int) (*Template, error) {
	tpl := &Template{source: text}

	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			tpl.parts = append(tpl.parts, part{literal: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(text); {
		ch := text[i]
		if ch != '$' || i+1 >= len(text) {
			buf.WriteByte(ch)
			i++
			continue
		}

		next := text[i+1]
		if next == '$' {
			buf.WriteByte('$')
			i += 2
			continue
		}
		if next != '{' {
			buf.WriteByte(ch)
			i++
			continue
		}

		end := findMatchingBrace(text, i+2)
		if end == -1 {
			return nil, &Error{Source: source, Pos: offset + i, Msg: "unterminated \"${\""}
		}

		raw := text[i+2 : end]
		name, op, word, ok := parseShellParameter(raw)
		if !ok {
			buf.WriteString(text[i : end+1])
			i = end + 1
			continue
		}

		expr := &expression{name: name, op: op, pos: offset + i}
		if op != "" && strings.Contains(word, "${") {
			wordStart := i + 2 + len(name) + len(op)
			sub, err := parseAt(source, word, offset+wordStart)
			if err != nil {
				return nil, err
			}
			expr.word = sub
		} else if op != "" {
			expr.word = &Template{source: word, parts: []part{{literal: word}}}
		}

		flush()
		tpl.parts = append(tpl.parts, part{expr: expr})
		i = end + 1
	}
	flush()

	return tpl, nil
}

func findMatchingBrace(text string, start int) int {
	depth := 0
	for i := start; i < len(text); i++ {
		if text[i] == '$' && i+1 < len(text) && text[i+1] == '{' {
			depth++
			i++
			continue
		}
		if text[i] == '}' {
			if depth == 0 {
				return i
			}
			depth--
		}
	}

	return -1
}

// Source 返回模板原文。
func (t *Template) Source() string {
	return t.source
}

// IsLiteral 判断模板是否不含任何 ${...} 表达式。
func (t *Template) IsLiteral() bool {
	for _, p := range t.parts {
		if p.expr != nil {
			return false
		}
	}

	return true
}

// ═══════════════════════════════════════════════════════════════════════════
// 执行
// ═══════════════════════════════════════════════════════════════════════════

// scope 保存一次执行中 ":=" 赋值的结果，不会写回外部变量来源。
type scope struct {
	source   string
	lookup   Lookup
	assigned map[string]string
}

func (s *scope) get(name string) (string, bool) {
	if val, ok := s.assigned[name]; ok {
		return val, true
	}
	if s.lookup == nil {
		return "", false
	}

	return s.lookup(name)
}

// Execute 使用 lookup 展开模板，仅在必填校验失败时返回 error。
func (t *Template) Execute(lookup Lookup) (string, error) {
	s := &scope{source: t.source, lookup: lookup, assigned: make(map[string]string)}

	return t.execute(s)
}

func (t *Template) execute(s *scope) (string, error) {
	var buf strings.Builder
	for _, p := range t.parts {
		if p.expr == nil {
			buf.WriteString(p.literal)
			continue
		}
		val, err := p.expr.eval(s)
		if err != nil {
			return "", err
		}
		buf.WriteString(val)
	}

	return buf.String(), nil
}

func (e *expression) expandWord(s *scope) (string, error) {
	if e.word == nil {
		return "", nil
	}

	return e.word.execute(s)
}

func (e *expression) eval(s *scope) (string, error) {
	val, isSet := s.get(e.name)
	switch e.op {
	case "":
		return val, nil
	case ":-":
		if !isSet || val == "" {
			return e.expandWord(s)
		}
		return val, nil
	case "-":
		if !isSet {
			return e.expandWord(s)
		}
		return val, nil
	case ":+": // set and not empty
		if isSet && val != "" {
			return e.expandWord(s)
		}
		return "", nil
	case "+":
		if isSet {
			return e.expandWord(s)
		}
		return "", nil
	case ":?":
		if !isSet || val == "" {
			return "", e.required(s)
		}
		return val, nil
	case "?":
		if !isSet {
			return "", e.required(s)
		}
		return val, nil
	case ":=":
		if !isSet || val == "" {
			return e.assign(s)
		}
		return val, nil
	case "=":
		if !isSet {
			return e.assign(s)
		}
		return val, nil
	}

	return "", nil
}

func (e *expression) required(s *scope) error {
	word, err := e.expandWord(s)
	if err != nil {
		return err
	}

	return requiredError(s.source, e.pos, e.name, word)
}

func (e *expression) assign(s *scope) (string, error) {
	expanded, err := e.expandWord(s)
	if err != nil {
		return "", err
	}
	s.assigned[e.name] = expanded

	return expanded, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 便捷入口
// ═══════════════════════════════════════════════════════════════════════════

// Expand 解析并使用 lookup 展开文本。
func Expand(text string, lookup Lookup) (string, error) {
	tpl, err := Parse(text)
	if err != nil {
		return "", err
	}

	return tpl.Execute(lookup)
}

// ExpandTemplate 对输入字符串执行 Shell 参数展开，变量取自环境变量。
//
// 支持语法：
//   - ${VAR} - 变量替换
//   - ${VAR:-default} / ${VAR-default} - fallback
//   - ${VAR:+alt} / ${VAR+alt} - 替代值
//   - ${VAR:?msg} / ${VAR?msg} - 必填校验
//   - ${VAR:=default} / ${VAR=default} - 赋值（仅作用于当前展开）
//
// 返回展开后的字符串；模板未闭合或必填校验失败时返回 error。
func ExpandTemplate(text string) (string, error) {
	return Expand(text, Environ())
}
