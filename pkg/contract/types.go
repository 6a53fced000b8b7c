package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// RawNode: 富内容序列中的一个元素（线上形状为单键对象 {"<kind>": "<content>"}）。
// Content 保留原始 JSON 值，类型校验延后到渲染阶段，以便错误能指向具体节点。
type RawNode struct {
	Key     string
	Content any
}

// Value: 单元格值，二选一：
// - Nodes == nil：标量（Scalar 为 JSON 标量的字符串形式）；
// - Nodes != nil：富内容节点序列（可为空切片）。
type Value struct {
	Scalar string
	Nodes  []RawNode
}

// IsSequence 报告该值是否为富内容序列。
func (v Value) IsSequence() bool { return v.Nodes != nil }

// Field: 记录中的一个键值对。
type Field struct {
	Key   string
	Value Value
}

// Record: 单个输入文件解析出的顶层对象。
// 约束：
// - Fields 按 JSON 对象中的出现顺序排列；
// - Key 在 Fields 内唯一（重复键以首次出现为准，其余记入 Duplicates）；
// - 仅在渲染该文件期间存活，不跨文件共享。
type Record struct {
	FileID     FileID
	Fields     []Field
	Duplicates []string
}

// Lookup 按键查找字段值。
func (r Record) Lookup(key string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}
