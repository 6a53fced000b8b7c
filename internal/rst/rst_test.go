package rst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"json2rst/pkg/contract"
)

type stubImages struct {
	calls []string
	err   error
}

func (s *stubImages) Resolve(src contract.FileID, content string) (string, error) {
	s.calls = append(s.calls, string(src)+"|"+content)
	if s.err != nil {
		return "", s.err
	}
	return "data:image/png;base64,AAAA", nil
}

func nodes(kv ...string) []contract.RawNode {
	out := make([]contract.RawNode, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, contract.RawNode{Key: kv[i], Content: kv[i+1]})
	}
	return out
}

// 无换行：恒等
func TestReindentIdentity(t *testing.T) {
	for _, s := range []string{"", "Alice", "  spaced  ", "中文内容"} {
		if got := Reindent(s); got != s {
			t.Fatalf("Reindent(%q) = %q", s, got)
		}
	}
}

// k 个换行 → 输出仍为 k 个换行，且首行之后每行前置 8 空格
func TestReindentMultiline(t *testing.T) {
	in := "first\nsecond\n\nfourth"
	got := Reindent(in)
	want := "first\n        second\n        \n        fourth"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Reindent 结果不符 (-want +got):\n%s", diff)
	}
	if strings.Count(got, "\n") != strings.Count(in, "\n") {
		t.Fatalf("换行数量不一致")
	}
	orig := strings.Split(in, "\n")
	for i, line := range strings.Split(got, "\n")[1:] {
		if line != leftPad+orig[i+1] {
			t.Fatalf("第 %d 行前缀错误: %q", i+1, line)
		}
	}
}

func TestRenderContentHeadingParagraph(t *testing.T) {
	got, err := RenderContent("a.json", nodes("heading", "Intro", "p", "hello"), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "**Intro**\n\n        hello\n\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRenderContentAllKinds(t *testing.T) {
	img := &stubImages{}
	in := nodes(
		"h1", "Title",
		"p", "line one\nline two",
		"ul", "bullet",
		"ol", "numbered",
		"code", "x := 1",
		"code-block", "fmt.Println(x)",
		"image", "./pic.png",
	)
	got, err := RenderContent("dir/a.json", in, img)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "**Title**\n\n" +
		"        line one\n        line two\n\n" +
		"        - bullet\n\n" +
		"        #.  numbered\n\n" +
		"        ``x := 1``\n\n" +
		"        .. code-block::\n\n            fmt.Println(x)\n\n" +
		"        .. image:: data:image/png;base64,AAAA\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("渲染结果不符 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dir/a.json|./pic.png"}, img.calls); diff != "" {
		t.Fatalf("图片解析调用不符:\n%s", diff)
	}
}

func TestRenderContentCodeBlockMerge(t *testing.T) {
	got, err := RenderContent("a.json", nodes("code-block", "line1", "code-block", "line2"), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := ".. code-block::\n\n            line1\n            line2\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("代码块未合并 (-want +got):\n%s", diff)
	}
	if n := strings.Count(got, codeBlockInit); n != 1 {
		t.Fatalf("期望 1 个指令，实得 %d", n)
	}
}

// 任意长度 n 的连续代码块：恰好 1 个指令、n 行内容、1 个结尾空行
func TestRenderContentCodeBlockRuns(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			in := nodes("p", "before")
			for i := 0; i < n; i++ {
				in = append(in, contract.RawNode{Key: "code-block", Content: fmt.Sprintf("stmt%d", i)})
			}
			in = append(in, contract.RawNode{Key: "p", Content: "after"})
			got, err := RenderContent("a.json", in, nil)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			var want strings.Builder
			want.WriteString("before\n\n")
			want.WriteString("        .. code-block::\n\n")
			for i := 0; i < n; i++ {
				want.WriteString(fmt.Sprintf("            stmt%d\n", i))
			}
			want.WriteString("\n")
			want.WriteString("        after\n\n")
			if diff := cmp.Diff(want.String(), got); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
			if c := strings.Count(got, codeBlockInit); c != 1 {
				t.Fatalf("指令数 %d", c)
			}
			lines := 0
			for _, l := range strings.Split(got, "\n") {
				if strings.HasPrefix(l, leftPad+codeBlockPad+"stmt") {
					lines++
				}
			}
			if lines != n {
				t.Fatalf("内容行 %d, 期望 %d", lines, n)
			}
		})
	}
}

// 两段被其他节点隔开的代码块各自拥有指令
func TestRenderContentSeparateCodeBlocks(t *testing.T) {
	got, err := RenderContent("a.json", nodes("code-block", "a", "p", "mid", "code-block", "b"), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := ".. code-block::\n\n            a\n\n" +
		"        mid\n\n" +
		"        .. code-block::\n\n            b\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// 不含代码块时，空行分隔符数量等于节点数
func TestRenderContentSeparatorCount(t *testing.T) {
	in := nodes("heading", "H", "p", "a", "ul", "b", "ol", "c", "code", "d", "image", "e.png", "p", "f")
	got, err := RenderContent("a.json", in, &stubImages{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if c := strings.Count(got, blankLine); c != len(in) {
		t.Fatalf("分隔符 %d, 节点 %d", c, len(in))
	}
}

func TestRenderContentEmpty(t *testing.T) {
	got, err := RenderContent("a.json", []contract.RawNode{}, nil)
	if err != nil || got != "" {
		t.Fatalf("空序列应输出空串: %q %v", got, err)
	}
}

func TestRenderContentErrors(t *testing.T) {
	cases := []struct {
		name  string
		in    []contract.RawNode
		imgs  contract.ImageResolver
		want  []error
		inMsg []string
	}{
		{"unknown kind", nodes("p", "ok", "table", "x"), nil,
			[]error{contract.ErrUnknownKind, contract.ErrInputShape}, []string{"src/bad.json", `"table"`}},
		{"unknown first", nodes("blink", "x"), nil,
			[]error{contract.ErrInputShape}, []string{`"blink"`}},
		{"non-string content", []contract.RawNode{{Key: "p", Content: 42.0}}, nil,
			[]error{contract.ErrTypeContract}, []string{"src/bad.json"}},
		{"image without resolver", nodes("image", "x.png"), nil,
			[]error{contract.ErrResource}, []string{"x.png"}},
		{"resolver failure", nodes("p", "a", "image", "missing.png"), &stubImages{err: fmt.Errorf("missing.png: %w", contract.ErrResource)},
			[]error{contract.ErrResource}, []string{"missing.png"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderContent("src/bad.json", tt.in, tt.imgs)
			if err == nil {
				t.Fatalf("期望错误")
			}
			if out != "" {
				t.Fatalf("失败时不应有部分输出: %q", out)
			}
			for _, w := range tt.want {
				if !errors.Is(err, w) {
					t.Fatalf("want %v in %v", w, err)
				}
			}
			for _, m := range tt.inMsg {
				if !strings.Contains(err.Error(), m) {
					t.Fatalf("错误信息缺少 %q: %v", m, err)
				}
			}
		})
	}
}

func TestParseKindAliases(t *testing.T) {
	for _, k := range Keys() {
		if _, ok := ParseKind(k); !ok {
			t.Fatalf("Keys 中的 %q 无法解析", k)
		}
	}
	if len(Keys()) != len(kindKeys) {
		t.Fatalf("Keys 与 kindKeys 不一致")
	}
	if k, _ := ParseKind("code-block-item"); k != KindCodeBlock {
		t.Fatalf("code-block-item 应为 code-block")
	}
	if _, ok := ParseKind("H1"); ok {
		t.Fatalf("键名区分大小写")
	}
	if KindOrderedItem.String() != "ordered-item" || KindNone.String() != "none" {
		t.Fatalf("String 错误")
	}
}

func TestRenderRowScalar(t *testing.T) {
	row, err := RenderRow("a.json", contract.Field{Key: "Name", Value: contract.Value{Scalar: "Alice"}}, nil)
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if want := "    - * Name\n      * Alice\n\n"; row != want {
		t.Fatalf("got %q", row)
	}
	row, _ = RenderRow("a.json", contract.Field{Key: "Notes", Value: contract.Value{Scalar: "a\nb"}}, nil)
	if want := "    - * Notes\n      * a\n        b\n\n"; row != want {
		t.Fatalf("多行标量 got %q", row)
	}
}

func TestRendererRender(t *testing.T) {
	rec := contract.Record{
		FileID: "data/EIQ-1.json",
		Fields: []contract.Field{
			{Key: "Name", Value: contract.Value{Scalar: "Alice"}},
			{Key: "Body", Value: contract.Value{Nodes: nodes("heading", "Intro", "p", "hello")}},
		},
	}
	page, err := NewRenderer(nil, nil).Render(context.Background(), rec)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "EIQ-1\n*******\n\n" +
		".. list-table::\n    :stub-columns: 1\n\n" +
		"    - * Name\n      * Alice\n\n" +
		"    - * Body\n      * **Intro**\n\n        hello\n\n\n\n"
	if diff := cmp.Diff(want, page.Text); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if page.Name != "EIQ-1" {
		t.Fatalf("name %q", page.Name)
	}
}

func TestRendererOptions(t *testing.T) {
	rec := contract.Record{
		FileID: "x/rec.json",
		Fields: []contract.Field{{Key: "ID", Value: contract.Value{Scalar: "SA/2021"}}},
	}
	page, err := NewRenderer(nil, &PageOptions{HeaderRows: 1, TitleFrom: "ID"}).Render(context.Background(), rec)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if page.Name != "SA_2021" {
		t.Fatalf("title_from 未生效: %q", page.Name)
	}
	if !strings.Contains(page.Text, "    :stub-columns: 1\n    :header-rows: 1\n\n") {
		t.Fatalf("header-rows 缺失: %q", page.Text)
	}
	// 字段缺失时回退到文件名
	page, _ = NewRenderer(nil, &PageOptions{TitleFrom: "Missing"}).Render(context.Background(), rec)
	if page.Name != "rec" {
		t.Fatalf("回退失败: %q", page.Name)
	}
}

func TestRenderPageWideTitle(t *testing.T) {
	out := RenderPage("测试", 0, "")
	lines := strings.Split(out, "\n")
	if lines[1] != strings.Repeat("*", 6) {
		t.Fatalf("东亚标题标记线长度错误: %q", lines[1])
	}
}

func TestRendererCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRenderer(nil, nil).Render(ctx, contract.Record{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled, got %v", err)
	}
}
