package rst

import (
	"fmt"
	"strings"

	"json2rst/pkg/contract"
)

// Position: 节点在所属序列中的上下文，由索引推导。
type Position struct {
	First bool // 是否为序列首个节点
	Prev  Kind // 前驱种类；首节点为 KindNone
	Next  Kind // 后继种类；末节点为 KindNone
}

// Node: 一个已校验的富内容节点。
type Node struct {
	Kind    Kind
	Content string
	Pos     Position
}

// pad 返回节点首行的左填充：首节点接在单元格标记之后，不填充。
func (n Node) pad() string {
	if n.Pos.First {
		return ""
	}
	return leftPad
}

// Render 输出该节点的 rST 片段（含自身的结尾换行）。
// images 仅在 KindImage 时使用。
func (n Node) Render(src contract.FileID, images contract.ImageResolver) (string, error) {
	pad := n.pad()
	switch n.Kind {
	case KindHeading:
		return pad + strong + n.Content + strong + blankLine, nil
	case KindParagraph:
		return pad + Reindent(n.Content) + blankLine, nil
	case KindUnorderedItem:
		return pad + ulItem + n.Content + blankLine, nil
	case KindOrderedItem:
		return pad + olItem + n.Content + blankLine, nil
	case KindInlineCode:
		return pad + literal + n.Content + literal + blankLine, nil
	case KindCodeBlock:
		return n.renderCodeLine(), nil
	case KindImage:
		if images == nil {
			return "", fmt.Errorf("%s: image %q: no image resolver: %w", src, n.Content, contract.ErrResource)
		}
		ref, err := images.Resolve(src, n.Content)
		if err != nil {
			return "", err
		}
		return pad + imageInit + ref + blankLine, nil
	default:
		return "", fmt.Errorf("%s: node kind %q: %w: %w", src, n.Kind, contract.ErrUnknownKind, contract.ErrInputShape)
	}
}

// renderCodeLine 处理代码块行的合并：
// 连续的 code-block 节点共用一个指令行，且只有最后一个节点输出块结尾空行。
func (n Node) renderCodeLine() string {
	var b strings.Builder
	if n.Pos.Prev != KindCodeBlock {
		b.WriteString(n.pad())
		b.WriteString(codeBlockInit)
		b.WriteString(blankLine)
	}
	// 指令已占用单元格首行，内容行总是需要完整填充。
	b.WriteString(leftPad)
	b.WriteString(codeBlockPad)
	b.WriteString(n.Content)
	if n.Pos.Next == KindCodeBlock {
		b.WriteByte('\n')
	} else {
		b.WriteString(blankLine)
	}
	return b.String()
}
