package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"json2rst/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// AllowExts: 允许处理的扩展名（大小写不敏感，含点）。为空时默认 [".json"]。
	// 目录中不匹配的文件被跳过；显式给出的单文件不匹配则报错。
	AllowExts []string `json:"allow_exts"`
	// Recursive: 是否递归子目录。默认只读取目录的直接子文件。
	Recursive bool `json:"recursive"`
	// ExcludeDirNames: 递归时跳过这些目录名（基名完全匹配，大小写不敏感）。
	ExcludeDirNames []string `json:"exclude_dir_names"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
type FileSystem struct {
	bufSize   int
	allow     map[string]struct{}
	recursive bool
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	r := &FileSystem{bufSize: defaultBuf, excludeDir: map[string]struct{}{}}
	exts := []string{".json"}
	if opts != nil {
		if opts.BufSize > 0 {
			r.bufSize = opts.BufSize
		}
		if len(opts.AllowExts) > 0 {
			exts = opts.AllowExts
		}
		r.recursive = opts.Recursive
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			r.excludeDir[strings.ToLower(name)] = struct{}{}
		}
	}
	r.allow = make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if e == "" {
			continue
		}
		r.allow[strings.ToLower(e)] = struct{}{}
	}
	return r
}

var _ contract.Reader = (*FileSystem)(nil)

// Iterate 遍历 roots，按稳定顺序对每个匹配的常规文件调用 yield。
// 支持 roots 仅包含 "-" 作为 STDIN。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(roots) == 0 {
		return fmt.Errorf("no input given: %w", contract.ErrInvalidInput)
	}
	if len(roots) == 1 && roots[0] == "-" {
		return yield(contract.FileID("stdin"), newBufferedCloser(os.Stdin, r.bufSize))
	}
	// 禁止与其他根混用 "-"
	for _, s := range roots {
		if s == "-" {
			return errors.New("stdin '-' cannot be mixed with other roots")
		}
	}

	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) allowed(name string) bool {
	_, ok := r.allow[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file: %w", root, contract.ErrInvalidInput)
	}
	if !r.allowed(root) {
		return fmt.Errorf("%s is not a JSON file: %w", root, contract.ErrInvalidInput)
	}
	return r.open(root, yield)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先文件（允许指向常规文件的符号链接），再子目录（仅 Recursive，且不跟随目录符号链接）
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if e.IsDir() || !r.allowed(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		t, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			continue
		}
		if err := r.open(p, yield); err != nil {
			return err
		}
	}
	if !r.recursive {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) open(p string, yield func(contract.FileID, io.ReadCloser) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	brc := newBufferedCloser(f, r.bufSize)
	if err := yield(contract.NormalizeFileID(p), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
