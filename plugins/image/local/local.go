package local

import (
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"json2rst/pkg/contract"
)

// Mode 决定解析结果的形态。
type Mode string

const (
	// ModeEmbed: 读取文件并内联为 data URI（默认）。
	ModeEmbed Mode = "embed"
	// ModeLink: 仅校验，输出解析后的路径（正斜杠形式）。
	ModeLink Mode = "link"
)

// Options 为本地图片解析器的可选配置。
type Options struct {
	// Formats: 允许的扩展名（含点，大小写不敏感）。为空时采用默认 [".jpg", ".png"]。
	Formats []string `json:"formats"`
	// MaxBytes: 单个图片的最大字节数；0 表示不限制。
	MaxBytes int64 `json:"max_bytes"`
	// Verify: 是否解码图片头，确认内容与扩展名一致。
	Verify bool `json:"verify"`
}

// knownFormats: 扩展名 → image 包注册的格式名。
var knownFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// Local 基于本地文件系统解析 image 节点。
type Local struct {
	mode     Mode
	formats  map[string]struct{}
	list     string
	maxBytes int64
	verify   bool
}

// New 创建解析器；mode 为空时使用 ModeEmbed。
func New(mode Mode, opts *Options) (*Local, error) {
	if mode == "" {
		mode = ModeEmbed
	}
	if mode != ModeEmbed && mode != ModeLink {
		return nil, fmt.Errorf("image: unknown mode %q: %w", mode, contract.ErrInvalidInput)
	}
	exts := []string{".jpg", ".png"}
	l := &Local{mode: mode}
	if opts != nil {
		if len(opts.Formats) > 0 {
			exts = opts.Formats
		}
		if opts.MaxBytes < 0 {
			return nil, fmt.Errorf("image: max_bytes must be >= 0: %w", contract.ErrInvalidInput)
		}
		l.maxBytes = opts.MaxBytes
		l.verify = opts.Verify
	}
	l.formats = make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if _, ok := knownFormats[e]; !ok {
			return nil, fmt.Errorf("image: unsupported format %q: %w", e, contract.ErrInvalidInput)
		}
		l.formats[e] = struct{}{}
	}
	names := make([]string, 0, len(l.formats))
	for e := range l.formats {
		names = append(names, e)
	}
	sort.Strings(names)
	l.list = strings.Join(names, ", ")
	return l, nil
}

var _ contract.ImageResolver = (*Local)(nil)

// Resolve 解析 content 指向的图片。
// "./"、"../" 开头的路径相对于 src 所在目录；其余按原样（绝对路径或相对工作目录）。
func (l *Local) Resolve(src contract.FileID, content string) (string, error) {
	p := ResolvePath(src, content)
	ext := strings.ToLower(filepath.Ext(p))
	if _, ok := l.formats[ext]; !ok {
		return "", fmt.Errorf("image %s: unsupported extension (supported: %s): %w", p, l.list, contract.ErrResource)
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("image %s: not found or not a regular file (supported: %s): %w", p, l.list, contract.ErrResource)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return "", fmt.Errorf("image %s: %s exceeds limit %s: %w", p,
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(l.maxBytes)), contract.ErrResource)
	}
	if l.verify {
		if err := verifyFormat(p, ext); err != nil {
			return "", err
		}
	}
	if l.mode == ModeLink {
		return filepath.ToSlash(p), nil
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("image %s: %w: %w", p, contract.ErrResource, err)
	}
	return DataURI(ext, b), nil
}

// ResolvePath 计算 image 内容对应的文件路径。
func ResolvePath(src contract.FileID, content string) string {
	if strings.HasPrefix(content, "./") || strings.HasPrefix(content, "../") {
		return filepath.Join(filepath.FromSlash(contract.Dir(src)), filepath.FromSlash(content))
	}
	return content
}

// DataURI 生成 "data:image/<ext>;base64,<payload>"，ext 不含点。
func DataURI(ext string, b []byte) string {
	var sb strings.Builder
	enc := base64.StdEncoding.EncodedLen(len(b))
	sb.Grow(len("data:image/;base64,") + len(ext) + enc)
	sb.WriteString("data:image/")
	sb.WriteString(strings.TrimPrefix(strings.ToLower(ext), "."))
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(b))
	return sb.String()
}

func verifyFormat(p, ext string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("image %s: %w: %w", p, contract.ErrResource, err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("image %s: cannot decode header: %v: %w", p, err, contract.ErrResource)
	}
	if want := knownFormats[ext]; format != want {
		return fmt.Errorf("image %s: content is %s, extension says %s: %w", p, format, want, contract.ErrResource)
	}
	return nil
}
