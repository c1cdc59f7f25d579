// Package memfs is an in-memory fsstore.FileSystem used by tests in place
// of the real local filesystem.
package memfs

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fileharbor/fileharbor/internal/fsstore"
)

type node struct {
	isDir   bool
	data    []byte
	modTime time.Time
}

// FS is a goroutine-safe in-memory tree keyed by slash-separated paths.
type FS struct {
	mu    sync.Mutex
	nodes map[string]*node
}

// New returns an empty in-memory filesystem.
func New() *FS {
	return &FS{nodes: map[string]*node{"": {isDir: true, modTime: time.Now()}}}
}

func clean(p string) string {
	p = strings.Trim(path.Clean("/"+toSlash(p)), "/")
	if p == "." {
		return ""
	}
	return p
}

func toSlash(p string) string { return strings.ReplaceAll(p, "\\", "/") }

func (fs *FS) Mkdir(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	key := clean(p)
	parts := strings.Split(key, "/")
	cur := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if cur == "" {
			cur = part
		} else {
			cur = cur + "/" + part
		}
		if n, ok := fs.nodes[cur]; ok {
			if !n.isDir {
				return &os.PathError{Op: "mkdir", Path: p, Err: os.ErrExist}
			}
			continue
		}
		fs.nodes[cur] = &node{isDir: true, modTime: time.Now()}
	}
	return nil
}

func (fs *FS) RemoveDir(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	key := clean(p)
	n, ok := fs.nodes[key]
	if !ok || !n.isDir {
		return os.ErrNotExist
	}
	prefix := key + "/"
	for k := range fs.nodes {
		if k != key && strings.HasPrefix(k, prefix) {
			return &os.PathError{Op: "remove", Path: p, Err: os.ErrInvalid}
		}
	}
	delete(fs.nodes, key)
	return nil
}

func (fs *FS) ReadDir(p string) ([]os.DirEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	key := clean(p)
	if key != "" {
		if n, ok := fs.nodes[key]; !ok || !n.isDir {
			return nil, os.ErrNotExist
		}
	}
	prefix := key
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]os.DirEntry{}
	for k := range fs.nodes {
		if k == key || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		name := strings.SplitN(rest, "/", 2)[0]
		if _, ok := seen[name]; ok {
			continue
		}
		full := prefix + name
		fn, isDir := fs.nodes[full]
		seen[name] = dirEntry{name: name, isDir: isDir && fn.isDir}
	}
	out := make([]os.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

type dirEntry struct {
	name  string
	isDir bool
}

func (d dirEntry) Name() string               { return d.name }
func (d dirEntry) IsDir() bool                { return d.isDir }
func (d dirEntry) Type() os.FileMode          { return 0 }
func (d dirEntry) Info() (os.FileInfo, error) { return nil, nil }

func (fs *FS) Stat(p string) (os.FileInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	key := clean(p)
	n, ok := fs.nodes[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return fileInfo{name: path.Base("/" + key), n: n}, nil
}

type fileInfo struct {
	name string
	n    *node
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return int64(len(fi.n.data)) }
func (fi fileInfo) Mode() os.FileMode  { return 0644 }
func (fi fileInfo) ModTime() time.Time { return fi.n.modTime }
func (fi fileInfo) IsDir() bool        { return fi.n.isDir }
func (fi fileInfo) Sys() interface{}   { return nil }

func (fs *FS) OpenRead(p string, rng *fsstore.ByteRange) (io.ReadCloser, int64, error) {
	fs.mu.Lock()
	n, ok := fs.nodes[clean(p)]
	fs.mu.Unlock()
	if !ok || n.isDir {
		return nil, 0, os.ErrNotExist
	}
	data := n.data
	size := int64(len(data))
	if rng == nil {
		return io.NopCloser(bytes.NewReader(data)), size, nil
	}
	end := rng.End
	if end < 0 || end >= size {
		end = size - 1
	}
	if rng.Start < 0 || rng.Start > end {
		return nil, 0, fsstore.ErrRangeNotSatisfiable
	}
	window := data[rng.Start : end+1]
	return io.NopCloser(bytes.NewReader(window)), int64(len(window)), nil
}

func (fs *FS) WriteAtomic(p string, src io.Reader) (int64, string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return 0, "", err
	}
	sum := md5.Sum(data)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	key := clean(p)
	dir := path.Dir(key)
	if dir != "." {
		parts := strings.Split(dir, "/")
		cur := ""
		for _, part := range parts {
			if cur == "" {
				cur = part
			} else {
				cur = cur + "/" + part
			}
			if _, ok := fs.nodes[cur]; !ok {
				fs.nodes[cur] = &node{isDir: true, modTime: time.Now()}
			}
		}
	}
	fs.nodes[key] = &node{data: data, modTime: time.Now()}
	return int64(len(data)), hex.EncodeToString(sum[:]), nil
}

func (fs *FS) Remove(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.nodes, clean(p))
	return nil
}

var _ fsstore.FileSystem = (*FS)(nil)
