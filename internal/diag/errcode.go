package diag

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"json2rst/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeShape     Code = "shape"
	CodeResource  Code = "resource"
	CodeStrict    Code = "strict"
	CodeType      Code = "type"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	// 输入形状（未知节点种类同时包装了 ErrInputShape）
	if errors.Is(err, contract.ErrInputShape) || errors.Is(err, contract.ErrUnknownKind) {
		return CodeShape
	}
	if errors.Is(err, contract.ErrResource) {
		return CodeResource
	}
	if errors.Is(err, contract.ErrPivotStrict) {
		return CodeStrict
	}
	if errors.Is(err, contract.ErrTypeContract) {
		return CodeType
	}
	if errors.Is(err, contract.ErrInvalidInput) || errors.Is(err, contract.ErrPathInvalid) {
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
