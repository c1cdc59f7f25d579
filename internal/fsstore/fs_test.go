package fsstore_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fileharbor/fileharbor/internal/fsstore"
)

func TestLocalFileSystemWriteAtomicRoundTrip(t *testing.T) {
	fs, err := fsstore.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	if err := fs.Mkdir("bucket"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	size, md5sum, err := fs.WriteAtomic("bucket/key.txt", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if size != 3 {
		t.Fatalf("size = %d, want 3", size)
	}
	if md5sum == "" {
		t.Fatal("md5sum should not be empty")
	}

	rc, n, err := fs.OpenRead("bucket/key.txt", nil)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()
	if n != 3 {
		t.Fatalf("OpenRead size = %d, want 3", n)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "abc" {
		t.Fatalf("body = %q, want abc", data)
	}
}

func TestLocalFileSystemRejectsPathEscape(t *testing.T) {
	fs, err := fsstore.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	if _, err := fs.Stat("../outside"); err != fsstore.ErrInvalidPath {
		t.Fatalf("Stat(../outside) = %v, want ErrInvalidPath", err)
	}
}

func TestLocalFileSystemRemoveIsIdempotent(t *testing.T) {
	fs, err := fsstore.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	if err := fs.Remove("never-existed"); err != nil {
		t.Fatalf("Remove of missing file should be nil, got %v", err)
	}
}

func TestLocalFileSystemRangeRead(t *testing.T) {
	fs, err := fsstore.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	if _, _, err := fs.WriteAtomic("k", strings.NewReader("0123456789")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	rc, n, err := fs.OpenRead("k", &fsstore.ByteRange{Start: 5, End: -1})
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()
	if n != 5 {
		t.Fatalf("windowed size = %d, want 5", n)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "56789" {
		t.Fatalf("body = %q, want 56789", data)
	}
}

func TestLocalFileSystemUnsatisfiableRange(t *testing.T) {
	fs, err := fsstore.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	if _, _, err := fs.WriteAtomic("k", strings.NewReader("short")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	_, _, err = fs.OpenRead("k", &fsstore.ByteRange{Start: 50, End: 60})
	if !errors.Is(err, fsstore.ErrRangeNotSatisfiable) {
		t.Fatalf("OpenRead out-of-bounds range = %v, want ErrRangeNotSatisfiable", err)
	}
}
