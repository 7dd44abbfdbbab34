// Package secmap 把层级配置存储绑定到强类型的 section 结构体。
//
// section 是指针实现了 [Section] 的结构体，通常嵌入 [Base]。绑定时引擎先构造实例
// （调用 Construct，可在其中设置默认值），再按顺序处理每个字段，最后调用 Finalize。
//
// # 快速开始
//
//	type Item struct {
//	    secmap.Base
//	    Type   string `secmap:"type"`
//	    Amount int    `secmap:"amount"`
//	}
//
//	doc, _ := store.Parse([]byte("items:\n  sword: {type: diamond_sword, amount: 3}\n"))
//	item, err := secmap.Bind[Item](secmap.New(doc), "items.sword")
//
// # 字段标签
//
// 标签格式为 `secmap:"name,always,inline,decide"`，`secmap:"-"` 表示忽略：
//   - name - 查找名称，缺省时依次取 json 标签名、首字母小写的字段名
//   - always - 存储中缺失时仍实例化（由 [Defaulter] 或转换器给出值）
//   - inline - 沿用父路径，不追加自身名称
//   - decide - 具体类型由 [RuntimeDecider] 决定（any 类型字段总是如此）
//
// 嵌入 [Always] 等同于为该结构体声明的所有字段加上 always。
// 嵌入的结构体字段会展开，其字段排在自身字段之后。
//
// # 类型转换
//
// 支持标量（含数值种类间的无损转换）、实现 [Enum] 的枚举（忽略大小写）、嵌套 section、
// slice、数组、集合（map[K]struct{}）、map 与保持顺序的 [Ordered]。其余类型交给
// [Converter] 钩子，默认为 [WeakConverter]。
//
// # 错误
//
// 类型定义错误（无构造约定、自引用、重复 key 等）携带错误码（见 ErrCode* 常量），
// 可通过 [ErrorCode] 读取；单个值的映射失败为 [*MappingError]，逐层附加位置：
//
//	value "huge" was not one of SMALL, LARGE (at index 1 of a list) (at path 'shop.sizes')
//
// # 重载
//
// [Keeper] 持有根 section，[Keeper.Reload] 成功后按 [Priority] 依次通知监听器，
// 失败时保留旧的根。
package secmap
