package rst

// Kind 为富内容节点种类（封闭集合）。
// 新增/删除种类时，Node.Render 中的 switch 与 kindKeys 需同步修改。
type Kind int

const (
	// KindNone 表示"不存在"（首节点无前驱、末节点无后继）。
	KindNone Kind = iota
	KindHeading
	KindParagraph
	KindUnorderedItem
	KindOrderedItem
	KindInlineCode
	KindCodeBlock
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindUnorderedItem:
		return "unordered-item"
	case KindOrderedItem:
		return "ordered-item"
	case KindInlineCode:
		return "inline-code"
	case KindCodeBlock:
		return "code-block"
	case KindImage:
		return "image"
	default:
		return "none"
	}
}

// kindKeys: 线上键名 → 种类。短键沿用早期数据文件的写法。
var kindKeys = map[string]Kind{
	"heading": KindHeading,
	"h1":      KindHeading,
	"h2":      KindHeading,
	"h3":      KindHeading,

	"p":         KindParagraph,
	"paragraph": KindParagraph,

	"ul":             KindUnorderedItem,
	"ul-item":        KindUnorderedItem,
	"unordered-item": KindUnorderedItem,

	"ol":           KindOrderedItem,
	"ol-item":      KindOrderedItem,
	"ordered-item": KindOrderedItem,

	"code":        KindInlineCode,
	"inline-code": KindInlineCode,

	"code-block":      KindCodeBlock,
	"code-block-item": KindCodeBlock,
	"code-block-line": KindCodeBlock,

	"image": KindImage,
	"img":   KindImage,
}

// ParseKind 将线上键名解析为 Kind；未知键返回 (KindNone, false)。
func ParseKind(key string) (Kind, bool) {
	k, ok := kindKeys[key]
	return k, ok
}

// Keys 返回全部可识别的键名（用于诊断信息），顺序稳定。
func Keys() []string {
	return []string{
		"heading", "h1", "h2", "h3",
		"p", "paragraph",
		"ul", "ul-item", "unordered-item",
		"ol", "ol-item", "ordered-item",
		"code", "inline-code",
		"code-block", "code-block-item", "code-block-line",
		"image", "img",
	}
}
