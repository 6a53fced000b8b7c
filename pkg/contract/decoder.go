package contract

import (
	"context"
	"io"
)

// Decoder: 将单文件字节流解析为 Record（保持键的出现顺序）。
// 约束：
//  1. 顶层必须是 JSON 对象，否则返回 ErrTypeContract；
//  2. 不做渲染相关的校验（节点种类等留给渲染器）；
//  3. 无内部并发、幂等。
type Decoder interface {
	Decode(ctx context.Context, fileID FileID, r io.Reader) (Record, error)
}
