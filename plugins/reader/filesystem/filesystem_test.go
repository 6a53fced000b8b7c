package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"json2rst/pkg/contract"
)

func collect(t *testing.T, r *FileSystem, roots ...string) ([]string, error) {
	t.Helper()
	var ids []string
	err := r.Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		ids = append(ids, filepath.Base(string(id)))
		return nil
	})
	return ids, err
}

func write(t *testing.T, p, s string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(s), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestIterateSingleFile 读取单文件
func TestIterateSingleFile(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "a.json")
	write(t, fp, `{"a":"b"}`)
	r := New(nil)
	var got []byte
	err := r.Iterate(context.Background(), []string{fp}, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		got = append(got, b...)
		if id != contract.NormalizeFileID(fp) {
			t.Fatalf("file id mismatch %s", id)
		}
		return nil
	})
	if err != nil || string(got) != `{"a":"b"}` {
		t.Fatalf("iterate: %v %q", err, string(got))
	}
}

// 显式给出的非 JSON 文件是致命错误，且错误中包含路径
func TestIterateNonJSONFile(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "notes.txt")
	write(t, fp, "x")
	_, err := collect(t, New(nil), fp)
	if !errors.Is(err, contract.ErrInvalidInput) || !strings.Contains(err.Error(), fp) {
		t.Fatalf("expect invalid input naming path, got %v", err)
	}
}

func TestIterateMissing(t *testing.T) {
	_, err := collect(t, New(nil), filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expect not exist, got %v", err)
	}
}

// 目录：仅 .json，字典序，默认不递归
func TestIterateDir(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "b.json"), "{}")
	write(t, filepath.Join(dir, "a.JSON"), "{}")
	write(t, filepath.Join(dir, "readme.md"), "")
	write(t, filepath.Join(dir, "sub", "c.json"), "{}")
	ids, err := collect(t, New(nil), dir)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if diff := cmp.Diff([]string{"a.JSON", "b.json"}, ids); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// TestExcludeDir 递归时跳过目录
func TestIterateRecursiveExclude(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "keep.json"), "{}")
	write(t, filepath.Join(dir, "sub", "deep.json"), "{}")
	write(t, filepath.Join(dir, "skip", "bad.json"), "{}")
	ids, err := collect(t, New(&Options{Recursive: true, ExcludeDirNames: []string{"SKIP"}}), dir)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if diff := cmp.Diff([]string{"keep.json", "deep.json"}, ids); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestIterateAllowExts(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.json"), "{}")
	write(t, filepath.Join(dir, "b.jsn"), "{}")
	ids, err := collect(t, New(&Options{AllowExts: []string{".JSN"}}), dir)
	if err != nil || len(ids) != 1 || ids[0] != "b.jsn" {
		t.Fatalf("allow_exts 未生效: %v %v", ids, err)
	}
}

// TestIterateDashMix 混用 '-' 返回错误
func TestIterateDashMix(t *testing.T) {
	if _, err := collect(t, New(nil), "-", "a.json"); err == nil {
		t.Fatalf("expect error")
	}
	if _, err := collect(t, New(nil)); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("空 roots 应失败: %v", err)
	}
}

// yield 错误透传
func TestIterateYieldError(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.json"), "{}")
	boom := errors.New("boom")
	err := New(nil).Iterate(context.Background(), []string{dir}, func(contract.FileID, io.ReadCloser) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expect boom, got %v", err)
	}
}

func TestIterateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil).Iterate(ctx, []string{t.TempDir()}, func(contract.FileID, io.ReadCloser) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled, got %v", err)
	}
}
