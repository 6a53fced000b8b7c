package rst

import (
	"fmt"
	"strings"

	"json2rst/pkg/contract"
)

// RenderContent 将单元格的富内容节点序列渲染为一个 rST 片段。
// 单次正向遍历：携带前驱种类，并预读后继种类。
// 任一节点非法即返回错误（包含源文件与节点种类），不产生部分输出。
func RenderContent(src contract.FileID, nodes []contract.RawNode, images contract.ImageResolver) (string, error) {
	if len(nodes) == 0 {
		return "", nil
	}
	var b strings.Builder
	prev := KindNone
	cur, err := kindAt(src, nodes, 0)
	if err != nil {
		return "", err
	}
	for i := range nodes {
		next := KindNone
		if i+1 < len(nodes) {
			if next, err = kindAt(src, nodes, i+1); err != nil {
				return "", err
			}
		}
		content, err := contentAt(src, nodes, i, cur)
		if err != nil {
			return "", err
		}
		n := Node{Kind: cur, Content: content, Pos: Position{First: i == 0, Prev: prev, Next: next}}
		out, err := n.Render(src, images)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
		prev, cur = cur, next
	}
	return b.String(), nil
}

func kindAt(src contract.FileID, nodes []contract.RawNode, i int) (Kind, error) {
	key := nodes[i].Key
	k, ok := ParseKind(key)
	if !ok {
		return KindNone, fmt.Errorf("%s: node %d: invalid node type %q (expected one of %s): %w: %w",
			src, i, key, strings.Join(Keys(), ", "), contract.ErrUnknownKind, contract.ErrInputShape)
	}
	return k, nil
}

func contentAt(src contract.FileID, nodes []contract.RawNode, i int, k Kind) (string, error) {
	s, ok := nodes[i].Content.(string)
	if !ok {
		return "", fmt.Errorf("%s: node %d (%s): content must be a string, got %T: %w",
			src, i, k, nodes[i].Content, contract.ErrTypeContract)
	}
	return s, nil
}
