// Package section 提供可直接用在 section 字段上的领域类型。
//
// [Text] 是带 ${name} 变量引用的模板文本（语法见 templexp 包），绑定时由 [Converter]
// 以 Mapper 的解释上下文构造，渲染时再查找变量：
//
//	type Banner struct {
//	    secmap.Base
//	    Title section.Text `secmap:"title"`
//	}
//
//	env := secmap.NewEnv().With("name", "demo")
//	m := secmap.New(doc,
//	    secmap.WithEnv(env),
//	    secmap.WithConverter(secmap.ChainConverters(section.Converter(env, sink), secmap.WeakConverter)),
//	)
//
// 同一钩子还会在数值与布尔字段取值前渲染模板，例如 port: ${PORT:-8080}。
package section
