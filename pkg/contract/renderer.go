package contract

import "context"

// PageRenderer: 将一条 Record 渲染为完整的 rST 文档。
// 纯计算（图片解析除外），失败即返回，不产生部分输出。
type PageRenderer interface {
	Render(ctx context.Context, rec Record) (Page, error)
}

// Page: 渲染结果。Name 为输出文件基名（不含扩展名）。
type Page struct {
	Name string
	Text string
}

// ImageResolver: 将 image 节点的内容解析为可直接写入 `.. image::` 的引用。
// src 为节点所在的源文件，用于解析 "./"、"../" 开头的相对路径。
type ImageResolver interface {
	Resolve(src FileID, content string) (string, error)
}
