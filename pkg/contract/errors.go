package contract

import "errors"

// 最小错误分类（用于上层策略判定与退出诊断）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用参数或输入路径不合法（如非 JSON 文件、未知排序列）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInputShape: 富内容元素不是单键对象，或节点种类无法识别。
	ErrInputShape = errors.New("input shape")
	// ErrUnknownKind: 节点种类不在已知集合内（总是与 ErrInputShape 一并包装）。
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrResource: 图片引用不存在、扩展名不受支持或内容不可用。
	ErrResource = errors.New("resource unavailable")
	// ErrPivotStrict: 严格模式下 JSON 对象缺少必需字段。
	ErrPivotStrict = errors.New("pivot field missing")
	// ErrTypeContract: 值的类型不符合约定（期望字符串/序列/对象）。
	ErrTypeContract = errors.New("type contract")
)
