package rst

import "strings"

// Reindent 使多行标量在单元格内保持对齐：
// 首行原样（接在单元格标记之后），其余每行前置 8 空格。
// 不含换行时原样返回。
func Reindent(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = leftPad + lines[i]
	}
	return strings.Join(lines, "\n")
}
