// Package templexp 提供配置字符串的 Shell 参数展开。
//
// 该包仅处理 ${...} 语法，既用于配置文件整体展开，也作为配置值中的模板小语言
// （见 section.Text）。不执行命令、不引入模板引擎，强调可读性与可预测性。
//
// # 设计参考
//
//   - Bash 参数展开: https://www.gnu.org/software/bash/manual/bash.html#Shell-Parameter-Expansion
//
// # 语义说明
//
//  1. 仅做字符串层面的替换（不解析 $VAR）
//  2. 支持嵌套展开与 "$$" 字面量
//  3. ":=" 赋值仅作用于当前展开过程
//  4. 无法识别的表达式保持原样
//  5. 变量名允许包含 "."，如 ${lut.greeting}，由 [Lookup] 决定如何解析
//  6. 未闭合的 "${" 是解析错误，[Error] 携带字节偏移，便于定位
//
// # 快速开始
//
// 展开配置文件中的环境变量引用：
//
//	content := `api_key: "${OPENAI_API_KEY}"`
//	expanded, err := templexp.ExpandTemplate(content)
//
// 解析一次、多次执行：
//
//	tpl, err := templexp.Parse(`hello ${name:-world}`)
//	out, err := tpl.Execute(templexp.MapLookup(map[string]string{"name": "gopher"}))
//
// 详见 [Parse] 与 [ExpandTemplate] 文档。
package templexp
