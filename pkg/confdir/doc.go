// Package confdir 管理一个目录下的配置文件，是已加载配置的显式注册表。
//
// 每个文件的加载顺序 (从低到高)：
//  1. 配置文件 - 不存在时从 [WithDefaults] 复制，已存在时补齐缺失 key 并回写
//  2. 环境变量 - 通过 [WithEnvPrefix] 启用
//  3. key=value 覆盖 - 通过 [WithOverrides] 设置（如 --set）
//  4. CLI flags - 通过 [WithCommand] 设置
//
// 文件中的 cLut 与 sLut 两张表会合并为变量 lut，供 section.Text 以 ${lut.name} 引用；
// cLut 的值按模板解析，sLut 的值原样使用。
//
// # 快速开始
//
//	//go:embed defaults
//	var defaults embed.FS
//
//	sub, _ := fs.Sub(defaults, "defaults")
//	h, err := confdir.New(confdir.ResolveDir("myapp"),
//	    confdir.WithDefaults(sub),
//	    confdir.WithEnvPrefix("MYAPP_"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	keeper, err := confdir.Open[Settings](h, "settings.yaml", "")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(keeper.Root().Server.Addr)
//
// [Handler.Load] 同一文件会替换注册表中的旧条目，[Handler.Drop] 将其移除。
package confdir
