package confdir

import (
	"os"
	"path/filepath"
)

// DefaultDirs 返回默认配置目录的搜索顺序。
//
// 返回顺序即查找顺序，先命中的目录生效。
//
// 优先级 (从高到低)：
//  1. ./.appname - 当前目录应用配置
//  2. ~/.config/appname - 用户配置目录
//  3. /etc/appname - 系统级配置
//  4. config - 当前目录通用配置
func DefaultDirs(appName string) []string {
	var dirs []string

	if appName != "" {
		// 当前目录应用配置 (最高优先级)
		dirs = append(dirs, "."+appName)
		// 用户配置目录
		if configDir, err := os.UserConfigDir(); err == nil {
			dirs = append(dirs, filepath.Join(configDir, appName))
		}
		// 系统配置目录
		dirs = append(dirs, "/etc/"+appName)
	}

	// 当前目录通用配置 (最低优先级)
	dirs = append(dirs, "config")

	return dirs
}

// ResolveDir 返回第一个已存在的默认目录，都不存在时返回第一个候选目录。
func ResolveDir(appName string) string {
	dirs := DefaultDirs(appName)
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}

	return dirs[0]
}
