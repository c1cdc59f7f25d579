// Package fsstore implements the bucket/key object store on top of a local
// filesystem: body + metadata sidecar persistence, atomic writes, range
// reads, streaming copy, and prefix/delimiter listing.
package fsstore

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// tmpStagingDir is the hidden directory, created inside each bucket
// directory, used to stage writes before they are renamed into place. The
// object store's key walk skips it, so an in-flight PutObject never shows
// up as a key.
const tmpStagingDir = ".fileharbor-tmp"

// ByteRange is an inclusive byte interval [Start, End] requested via the
// HTTP Range header. End == -1 means "to EOF".
type ByteRange struct {
	Start, End int64
}

// FileSystem is the narrow capability set the object store needs: create
// directory, read directory, stat, open for read (optionally windowed),
// write atomically, remove. Tests inject an in-memory implementation
// (see fsstore/memfs) instead of touching disk.
type FileSystem interface {
	Mkdir(path string) error
	RemoveDir(path string) error
	ReadDir(path string) ([]os.DirEntry, error)
	Stat(path string) (os.FileInfo, error)
	OpenRead(path string, rng *ByteRange) (io.ReadCloser, int64, error)
	WriteAtomic(path string, src io.Reader) (size int64, md5sum string, err error)
	Remove(path string) error
}

// ErrInvalidPath is returned when a bucket or key would resolve outside the
// storage root (directory traversal attempt).
var ErrInvalidPath = errors.New("fsstore: path escapes storage root")

// ErrRangeNotSatisfiable is returned by OpenRead when the requested range's
// start lies beyond the object's actual size. Distinct from "not found": the
// object exists, only the window into it is invalid, so callers should fall
// back to serving the full body rather than treating this as a miss.
var ErrRangeNotSatisfiable = errors.New("fsstore: range not satisfiable")

// LocalFileSystem implements FileSystem over the local OS filesystem,
// rooted at a directory.
type LocalFileSystem struct {
	root string
}

// NewLocalFileSystem returns a FileSystem rooted at dir. The directory is
// created if it does not already exist.
func NewLocalFileSystem(dir string) (*LocalFileSystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &LocalFileSystem{root: abs}, nil
}

// Root returns the absolute storage root directory.
func (fs *LocalFileSystem) Root() string { return fs.root }

// resolve joins path onto the root and verifies the result did not escape
// it via "..".
func (fs *LocalFileSystem) resolve(path string) (string, error) {
	full := filepath.Join(fs.root, filepath.FromSlash(path))
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if absFull != fs.root && !strings.HasPrefix(absFull, fs.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return absFull, nil
}

func (fs *LocalFileSystem) Mkdir(path string) error {
	full, err := fs.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0755)
}

func (fs *LocalFileSystem) RemoveDir(path string) error {
	full, err := fs.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

func (fs *LocalFileSystem) ReadDir(path string) ([]os.DirEntry, error) {
	full, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(full)
}

func (fs *LocalFileSystem) Stat(path string) (os.FileInfo, error) {
	full, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Stat(full)
}

func (fs *LocalFileSystem) OpenRead(path string, rng *ByteRange) (io.ReadCloser, int64, error) {
	full, err := fs.resolve(path)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	size := info.Size()
	if rng == nil {
		return f, size, nil
	}
	end := rng.End
	if end < 0 || end >= size {
		end = size - 1
	}
	if rng.Start < 0 || rng.Start > end {
		f.Close()
		return nil, 0, ErrRangeNotSatisfiable
	}
	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, err
	}
	windowed := end - rng.Start + 1
	return &limitedReadCloser{r: io.LimitReader(f, windowed), c: f}, windowed, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error               { return l.c.Close() }

// WriteAtomic streams src into a temp file in a staging directory inside
// path's bucket directory, computing its MD5 as it writes, then renames it into
// place. A reader of path never observes a partially-written file: it
// either opens before the rename (old content or ENOENT) or after (new
// content), because rename is atomic on the same filesystem.
func (fs *LocalFileSystem) WriteAtomic(path string, src io.Reader) (int64, string, error) {
	full, err := fs.resolve(path)
	if err != nil {
		return 0, "", err
	}
	bucketDir := fs.bucketDirOf(full)
	staging := filepath.Join(bucketDir, tmpStagingDir)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return 0, "", err
	}
	tmp, err := os.CreateTemp(staging, ".put-*")
	if err != nil {
		return 0, "", err
	}
	tmpPath := tmp.Name()

	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		os.Remove(tmpPath)
		return 0, "", err
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return 0, "", err
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

// bucketDirOf walks up from full to the first directory directly under
// root, i.e. the bucket directory, so staging files never land under a
// nested key prefix. A path directly under root has no bucket directory
// and is staged under root itself.
func (fs *LocalFileSystem) bucketDirOf(full string) string {
	rel, err := filepath.Rel(fs.root, full)
	if err != nil {
		return fs.root
	}
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if len(parts) < 2 {
		return fs.root
	}
	return filepath.Join(fs.root, parts[0])
}

func (fs *LocalFileSystem) Remove(path string) error {
	full, err := fs.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
