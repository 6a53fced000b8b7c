package contract

import (
	"path"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	s := strings.ReplaceAll(p, "\\", "/")
	return FileID(path.Clean(s))
}

// Stem 返回 FileID 的基名去掉扩展名，例如 "a/b/EIQ-1.json" → "EIQ-1"。
func Stem(id FileID) string {
	base := path.Base(string(id))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Dir 返回 FileID 的所在目录（正斜杠形式）。
func Dir(id FileID) string { return path.Dir(string(id)) }
