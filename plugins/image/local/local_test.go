package local

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"json2rst/pkg/contract"
)

func writePNG(t *testing.T, path string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func srcIn(dir string) contract.FileID {
	return contract.NormalizeFileID(filepath.Join(dir, "records", "rec.json"))
}

// 相对路径基于源文件目录解析，并内联为 data URI
func TestResolveEmbedRelative(t *testing.T) {
	dir := t.TempDir()
	data := writePNG(t, filepath.Join(dir, "records", "img", "a.png"))
	l, err := New(ModeEmbed, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := l.Resolve(srcIn(dir), "./img/a.png")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	if got != want {
		t.Fatalf("data URI 不符: %q", got)
	}
	// ../ 同样相对源文件目录
	writePNG(t, filepath.Join(dir, "shared.png"))
	if _, err := l.Resolve(srcIn(dir), "../shared.png"); err != nil {
		t.Fatalf("../ 解析失败: %v", err)
	}
}

// 非相对前缀按原样解析（此处为绝对路径）
func TestResolveAbsolute(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "abs.png")
	writePNG(t, p)
	l, _ := New(ModeLink, nil)
	got, err := l.Resolve("elsewhere/rec.json", p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.ToSlash(p) {
		t.Fatalf("link 模式应输出路径: %q", got)
	}
}

func TestResolveErrors(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "records", "big.png"))
	if err := os.WriteFile(filepath.Join(dir, "records", "anim.gif"), []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, _ := New(ModeEmbed, nil)

	_, err := l.Resolve(srcIn(dir), "./nope.png")
	if !errors.Is(err, contract.ErrResource) {
		t.Fatalf("缺失文件应为 ErrResource: %v", err)
	}
	wantPath := filepath.Join(dir, "records", "nope.png")
	if !strings.Contains(err.Error(), wantPath) || !strings.Contains(err.Error(), ".jpg, .png") {
		t.Fatalf("错误信息应包含解析路径与支持列表: %v", err)
	}

	if _, err := l.Resolve(srcIn(dir), "./anim.gif"); !errors.Is(err, contract.ErrResource) {
		t.Fatalf("默认不支持 gif: %v", err)
	}

	small, _ := New(ModeEmbed, &Options{MaxBytes: 8})
	_, err = small.Resolve(srcIn(dir), "./big.png")
	if !errors.Is(err, contract.ErrResource) || !strings.Contains(err.Error(), "exceeds limit 8 B") {
		t.Fatalf("超限应报错: %v", err)
	}
}

func TestResolveVerify(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "records", "ok.png"))
	writePNG(t, filepath.Join(dir, "records", "liar.jpg"))
	if err := os.WriteFile(filepath.Join(dir, "records", "junk.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, _ := New(ModeLink, &Options{Verify: true})
	if _, err := l.Resolve(srcIn(dir), "./ok.png"); err != nil {
		t.Fatalf("合法 png 应通过: %v", err)
	}
	if _, err := l.Resolve(srcIn(dir), "./junk.png"); !errors.Is(err, contract.ErrResource) {
		t.Fatalf("非图片内容应失败: %v", err)
	}
	_, err := l.Resolve(srcIn(dir), "./liar.jpg")
	if !errors.Is(err, contract.ErrResource) || !strings.Contains(err.Error(), "content is png") {
		t.Fatalf("扩展名与内容不符应失败: %v", err)
	}
}

func TestNewOptions(t *testing.T) {
	if _, err := New("inline", nil); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知模式应失败: %v", err)
	}
	if _, err := New(ModeEmbed, &Options{Formats: []string{".svg"}}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知格式应失败: %v", err)
	}
	if _, err := New(ModeEmbed, &Options{MaxBytes: -1}); err == nil {
		t.Fatalf("负数 max_bytes 应失败")
	}
	l, err := New("", &Options{Formats: []string{"GIF", ".webp"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.mode != ModeEmbed || l.list != ".gif, .webp" {
		t.Fatalf("选项归一化错误: %+v", l)
	}
}

func TestDataURI(t *testing.T) {
	if got := DataURI(".JPG", []byte("hi")); got != "data:image/jpg;base64,aGk=" {
		t.Fatalf("got %q", got)
	}
}
