package rst

// rST 固定片段。
// 表格根节点位于第 0 列；单元格内容列为第 8 列（"      * " 之后）。
const (
	leftPad      = "        "
	codeBlockPad = "    "
	blankLine    = "\n\n"

	tableInit      = ".. list-table::"
	attrStubCols   = "    :stub-columns: 1"
	attrHeaderRows = "    :header-rows: "
	stubItem       = "    - * "
	cellItem       = "      * "

	ulItem        = "- "
	olItem        = "#.  "
	strong        = "**"
	literal       = "``"
	codeBlockInit = ".. code-block::"
	imageInit     = ".. image:: "

	titleMarker = "*"
)
