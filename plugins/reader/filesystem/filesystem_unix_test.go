//go:build !windows

package filesystem

import (
	"path/filepath"
	"syscall"
	"testing"
)

// TestWalkDirNonRegular 非常规文件被忽略 (Unix only - uses mkfifo)
func TestWalkDirNonRegular(t *testing.T) {
	root := t.TempDir()
	if err := syscall.Mkfifo(filepath.Join(root, "fifo.json"), 0o644); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	ids, err := collect(t, New(nil), root)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("non-regular should skip, visited %#v", ids)
	}
}

// TestIterateSymlink 指向常规文件的符号链接被读取，指向目录的被忽略
func TestIterateSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.json")
	write(t, target, "{}")
	inner := t.TempDir()
	if err := symlink(target, filepath.Join(inner, "l.json")); err != nil {
		t.Fatal(err)
	}
	if err := symlink(dir, filepath.Join(inner, "d.json")); err != nil {
		t.Fatal(err)
	}
	ids, err := collect(t, New(nil), inner)
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(ids) != 1 || ids[0] != "l.json" {
		t.Fatalf("symlink handling wrong: %#v", ids)
	}
}

func symlink(oldname, newname string) error { return syscall.Symlink(oldname, newname) }
