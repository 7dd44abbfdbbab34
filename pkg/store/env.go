package store

import (
	"os"
	"sort"
	"strings"
)

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// EnvName 根据配置 key 生成环境变量名。
//
// 转换规则：
//   - key 中的 "." 和 "-" 转为 "_"
//   - 转为大写
//   - 添加前缀
//
// 示例 (前缀 "APP_")：
//   - server.idle-timeout → APP_SERVER_IDLE_TIMEOUT
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(envReplacer.Replace(key))
}

// EnvBindings 为文档的所有叶子 key 生成 环境变量名 → 配置路径 的映射。
func (d *Document) EnvBindings(prefix string) map[string]string {
	keys := d.Keys()
	bindings := make(map[string]string, len(keys))
	for _, key := range keys {
		bindings[EnvName(prefix, key)] = key
	}

	return bindings
}

// ApplyEnv 用环境变量覆盖已存在的叶子 key，返回被覆盖的路径（已排序）。
//
// lookup 为 nil 时使用 [os.LookupEnv]；空字符串不会覆盖。
func (d *Document) ApplyEnv(prefix string, lookup func(string) (string, bool)) []string {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var applied []string
	for envKey, path := range d.EnvBindings(prefix) {
		if val, ok := lookup(envKey); ok && val != "" {
			d.Set(path, val)
			applied = append(applied, path)
		}
	}
	sort.Strings(applied)

	return applied
}
