package rst

import (
	"context"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"json2rst/pkg/contract"
)

// RenderRow 渲染一行 list-table：stub（键）+ item（值）。
// 序列值交给 RenderContent，标量交给 Reindent。
func RenderRow(src contract.FileID, f contract.Field, images contract.ImageResolver) (string, error) {
	var cell string
	if f.Value.IsSequence() {
		c, err := RenderContent(src, f.Value.Nodes, images)
		if err != nil {
			return "", err
		}
		cell = c
	} else {
		cell = Reindent(f.Value.Scalar)
	}
	var b strings.Builder
	b.Grow(len(stubItem) + len(f.Key) + len(cellItem) + len(cell) + 3)
	b.WriteString(stubItem)
	b.WriteString(f.Key)
	b.WriteByte('\n')
	b.WriteString(cellItem)
	b.WriteString(cell)
	b.WriteString(blankLine)
	return b.String(), nil
}

// RenderBody 按字段顺序拼接全部行。
func RenderBody(rec contract.Record, images contract.ImageResolver) (string, error) {
	var b strings.Builder
	for _, f := range rec.Fields {
		row, err := RenderRow(rec.FileID, f, images)
		if err != nil {
			return "", err
		}
		b.WriteString(row)
	}
	return b.String(), nil
}

// PageOptions: 页面级可选项。
type PageOptions struct {
	// HeaderRows: >0 时输出 ":header-rows: N"。
	HeaderRows int `json:"header_rows"`
	// TitleFrom: 以该字段的标量值作为页面标题与输出文件名；缺失/为空时回退到源文件名。
	TitleFrom string `json:"title_from"`
}

// RenderPage 组装标题、list-table 头与表体。
func RenderPage(title string, headerRows int, body string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
		// 标记线需不短于标题的显示宽度（东亚字符占 2 列）。
		b.WriteString(strings.Repeat(titleMarker, runewidth.StringWidth(title)+2))
		b.WriteString(blankLine)
	}
	b.WriteString(tableInit)
	b.WriteByte('\n')
	b.WriteString(attrStubCols)
	b.WriteByte('\n')
	if headerRows > 0 {
		b.WriteString(attrHeaderRows)
		b.WriteString(strconv.Itoa(headerRows))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(body)
	return b.String()
}

// Renderer 实现 contract.PageRenderer。
type Renderer struct {
	images contract.ImageResolver
	opts   PageOptions
}

// NewRenderer 创建页面渲染器；images 可为 nil（此时遇到 image 节点即报错）。
func NewRenderer(images contract.ImageResolver, opts *PageOptions) *Renderer {
	r := &Renderer{images: images}
	if opts != nil {
		r.opts = *opts
	}
	return r
}

var _ contract.PageRenderer = (*Renderer)(nil)

// Render 渲染单条记录为完整页面。
func (r *Renderer) Render(ctx context.Context, rec contract.Record) (contract.Page, error) {
	select {
	case <-ctx.Done():
		return contract.Page{}, ctx.Err()
	default:
	}
	body, err := RenderBody(rec, r.images)
	if err != nil {
		return contract.Page{}, err
	}
	title := r.title(rec)
	return contract.Page{Name: title, Text: RenderPage(title, r.opts.HeaderRows, body)}, nil
}

func (r *Renderer) title(rec contract.Record) string {
	if r.opts.TitleFrom != "" {
		if v, ok := rec.Lookup(r.opts.TitleFrom); ok && !v.IsSequence() {
			if t := sanitizeTitle(v.Scalar); t != "" {
				return t
			}
		}
	}
	return contract.Stem(rec.FileID)
}

// sanitizeTitle 去除会破坏单行标题或输出文件名的字符。
func sanitizeTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("\r", " ", "\n", " ", "/", "_", "\\", "_").Replace(s)
	if s == "." || s == ".." {
		return ""
	}
	return s
}
