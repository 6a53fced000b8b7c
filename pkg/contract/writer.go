package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识（相对输出根目录的路径，语义上与 FileID 同构）。
type ArtifactID = FileID

// Writer: 将渲染结果以流式方式持久化到目标介质。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 流式写入，按字节透传，不读取/修改业务内容；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}

// ReadBacker: 可选扩展，读取已写出的工件（例如写出 CSV 后再排序重写）。
type ReadBacker interface {
	Open(ctx context.Context, id ArtifactID) (io.ReadCloser, error)
}
