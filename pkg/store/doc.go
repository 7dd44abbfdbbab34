// Package store 提供层级配置存储。
//
// [Document] 以保持顺序的 [Map] 为根，按点分路径（如 items.sword.type）读写。
// 绑定引擎只依赖 [Store] 接口的 Get 方法，其余能力服务于文件加载与持久化：
//
//   - [Parse] / [LoadFile]：解析 YAML（JSON 亦可），保留 key 顺序
//   - [Document.Encode] / [SaveFile]：输出 YAML，原子写文件
//   - [Document.ExtendMissingKeys]：从默认文档补齐缺失 key
//   - [Document.ApplyEnv]：按前缀读取环境变量覆盖叶子 key
//
// 路径中的 key 以字符串形式匹配，YAML 中的整数 key（如 1: a）可用 "1" 访问。
package store
