package fsstore

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// lockStripes is the number of mutexes in the lock-striping array. A put or
// copy holds its key's stripe for the whole FileSystem.WriteAtomic call
// (streaming, hashing, directory creation and rename), and the sidecar
// write holds the sidecar path's stripe. Striping bounds memory while still
// serializing writers of the same key.
const lockStripes = 256

var (
	// ErrNotFound covers both missing buckets and missing objects; callers
	// distinguish via the operation that returned it.
	ErrNotFound = errors.New("fsstore: not found")
	// ErrBucketExists names the bucket-already-exists condition. PutBucket
	// does not return it; callers check BucketExists before PutBucket.
	ErrBucketExists = errors.New("fsstore: bucket already exists")
	// ErrBucketNotEmpty is returned by DeleteBucket when the bucket
	// directory still has entries.
	ErrBucketNotEmpty = errors.New("fsstore: bucket not empty")
	// ErrInvalidName names the invalid-bucket-name condition. PutBucket
	// does not return it; callers check ValidBucketName before PutBucket.
	ErrInvalidName = errors.New("fsstore: invalid bucket name")
)

// bucketNamePattern's unescaped "." in the middle segment matches any byte,
// which is more permissive than S3's documented rule (letters, digits,
// hyphens, single-dot segment separators). That permissiveness is
// intentional, not tightened.
var bucketNamePattern = regexp.MustCompile(`^[a-z0-9]+(.?[-a-z0-9]+)*$`)

// ValidBucketName reports whether name satisfies the length window and
// pattern required of a bucket.
func ValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	return bucketNamePattern.MatchString(name)
}

// Bucket is a read-only view of a bucket's identity and creation time.
type Bucket struct {
	Name         string
	CreationDate time.Time
}

// MetaEntry is one x-amz-meta-* header. A stored list keeps its order in
// the sidecar, but the order taken from an upload request is not defined:
// the request translator reads the headers from Go's http.Header map.
type MetaEntry struct{ Name, Value string }

// Object is the metadata persisted for a stored body; Object.MD5 doubles as
// the ETag value (without surrounding quotes — callers quote it for the
// wire).
type Object struct {
	Key                string
	Size               int64
	MD5                string
	ModifiedDate       time.Time
	ContentType        string
	ContentEncoding    string
	ContentDisposition string
	CustomMetaData     []MetaEntry
}

// PutInput carries everything PutObject/CopyObject need beyond the body
// bytes themselves.
type PutInput struct {
	ContentType        string
	ContentEncoding    string
	ContentDisposition string
	CustomMetaData     []MetaEntry
}

// ListOptions controls ListObjects paging.
type ListOptions struct {
	Prefix, Marker, Delimiter string
	MaxKeys                   int
}

// ListResult is the outcome of ListObjects: objects and synthesized common
// prefixes, interleaved in no particular combined order (callers render
// them separately), plus a truncation flag.
type ListResult struct {
	Objects        []Object
	CommonPrefixes []string
	IsTruncated    bool
}

type metaSidecar struct {
	Size               int64       `json:"size"`
	MD5                string      `json:"md5"`
	ModifiedDate       time.Time   `json:"modifiedDate"`
	ContentType        string      `json:"contentType,omitempty"`
	ContentEncoding    string      `json:"contentEncoding,omitempty"`
	ContentDisposition string      `json:"contentDisposition,omitempty"`
	CustomMetaData     []MetaEntry `json:"customMetaData,omitempty"`
}

// Store implements the bucket/key object store on top of a FileSystem.
type Store struct {
	fs      FileSystem
	stripes [lockStripes]sync.Mutex
}

// NewStore wraps fs as an object store.
func NewStore(fs FileSystem) *Store {
	return &Store{fs: fs}
}

func (s *Store) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.stripes[h.Sum32()%lockStripes]
}

func sidecarPath(objectPath string) string { return objectPath + ".metadata.json" }

// GetBucket stats the bucket directory; its mtime is used as CreationDate,
// since the filesystem does not separately record a creation time.
func (s *Store) GetBucket(name string) (Bucket, error) {
	info, err := s.fs.Stat(name)
	if err != nil || !info.IsDir() {
		return Bucket{}, ErrNotFound
	}
	return Bucket{Name: name, CreationDate: info.ModTime()}, nil
}

// GetBuckets lists immediate subdirectories of the storage root.
func (s *Store) GetBuckets() ([]Bucket, error) {
	entries, err := s.fs.ReadDir("")
	if err != nil {
		return nil, err
	}
	buckets := make([]Bucket, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		var mod time.Time
		if err != nil || info == nil {
			if st, statErr := s.fs.Stat(e.Name()); statErr == nil {
				mod = st.ModTime()
			}
		} else {
			mod = info.ModTime()
		}
		buckets = append(buckets, Bucket{Name: e.Name(), CreationDate: mod})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// PutBucket creates the bucket directory. Callers are expected to have
// already validated the name and checked for prior existence per the
// request-translator's precondition ordering.
func (s *Store) PutBucket(name string) error {
	return s.fs.Mkdir(name)
}

// DeleteBucket removes an empty bucket directory; returns ErrBucketNotEmpty
// if it still holds entries.
func (s *Store) DeleteBucket(name string) error {
	entries, err := s.fs.ReadDir(name)
	if err != nil {
		return ErrNotFound
	}
	if len(entries) > 0 {
		return ErrBucketNotEmpty
	}
	return s.fs.RemoveDir(name)
}

// BucketExists is a convenience existence probe used by request handlers
// that need a boolean rather than a Bucket value.
func (s *Store) BucketExists(name string) bool {
	_, err := s.GetBucket(name)
	return err == nil
}

func objectPath(bucket, key string) string { return path.Join(bucket, key) }

// PutObject streams src through a hasher and byte counter into the object's
// body via FileSystem.WriteAtomic, then — only once the body is fully and
// atomically in place — writes the metadata sidecar. A reader can therefore
// never observe a body with no matching sidecar, or a sidecar describing a
// body that hasn't landed yet.
func (s *Store) PutObject(bucket, key string, src io.Reader, input PutInput) (Object, error) {
	opath := objectPath(bucket, key)

	mu := s.stripe(opath)
	mu.Lock()
	size, md5sum, err := s.fs.WriteAtomic(opath, src)
	mu.Unlock()
	if err != nil {
		return Object{}, err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj := Object{
		Key:                key,
		Size:               size,
		MD5:                md5sum,
		ModifiedDate:       time.Now().UTC().Truncate(time.Second),
		ContentType:        contentType,
		ContentEncoding:    input.ContentEncoding,
		ContentDisposition: input.ContentDisposition,
		CustomMetaData:     input.CustomMetaData,
	}
	if err := s.saveMetadata(opath, obj); err != nil {
		return Object{}, err
	}
	return obj, nil
}

func (s *Store) saveMetadata(opath string, obj Object) error {
	sc := metaSidecar{
		Size:               obj.Size,
		MD5:                obj.MD5,
		ModifiedDate:       obj.ModifiedDate,
		ContentType:        obj.ContentType,
		ContentEncoding:    obj.ContentEncoding,
		ContentDisposition: obj.ContentDisposition,
		CustomMetaData:     obj.CustomMetaData,
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	mu := s.stripe(sidecarPath(opath))
	mu.Lock()
	defer mu.Unlock()
	_, _, err = s.fs.WriteAtomic(sidecarPath(opath), strings.NewReader(string(data)))
	return err
}

func (s *Store) loadMetadata(opath string, key string, info os.FileInfo) Object {
	rc, _, err := s.fs.OpenRead(sidecarPath(opath), nil)
	if err != nil {
		return Object{
			Key:          key,
			Size:         info.Size(),
			ModifiedDate: info.ModTime().Truncate(time.Second),
			ContentType:  "application/octet-stream",
		}
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Object{Key: key, Size: info.Size(), ModifiedDate: info.ModTime().Truncate(time.Second)}
	}
	var sc metaSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return Object{Key: key, Size: info.Size(), ModifiedDate: info.ModTime().Truncate(time.Second)}
	}
	return Object{
		Key:                key,
		Size:               sc.Size,
		MD5:                sc.MD5,
		ModifiedDate:       sc.ModifiedDate.Truncate(time.Second),
		ContentType:        sc.ContentType,
		ContentEncoding:    sc.ContentEncoding,
		ContentDisposition: sc.ContentDisposition,
		CustomMetaData:     sc.CustomMetaData,
	}
}

// GetObject opens the body (optionally windowed by rng) and returns its
// metadata. The returned stream is consumable exactly once; the caller
// closes it.
func (s *Store) GetObject(bucket, key string, rng *ByteRange) (Object, io.ReadCloser, error) {
	opath := objectPath(bucket, key)
	info, err := s.fs.Stat(opath)
	if err != nil || info.IsDir() {
		return Object{}, nil, ErrNotFound
	}
	obj := s.loadMetadata(opath, key, info)

	rc, _, err := s.fs.OpenRead(opath, rng)
	if err != nil {
		return Object{}, nil, err
	}
	return obj, rc, nil
}

// StatObject returns metadata without opening the body, for HEAD and
// existence checks.
func (s *Store) StatObject(bucket, key string) (Object, error) {
	opath := objectPath(bucket, key)
	info, err := s.fs.Stat(opath)
	if err != nil || info.IsDir() {
		return Object{}, ErrNotFound
	}
	return s.loadMetadata(opath, key, info), nil
}

// ObjectExists is a boolean convenience wrapper over StatObject.
func (s *Store) ObjectExists(bucket, key string) bool {
	_, err := s.StatObject(bucket, key)
	return err == nil
}

// DeleteObject removes the body and its sidecar. Missing files are not an
// error: delete is idempotent.
func (s *Store) DeleteObject(bucket, key string) error {
	opath := objectPath(bucket, key)
	if err := s.fs.Remove(opath); err != nil {
		return err
	}
	return s.fs.Remove(sidecarPath(opath))
}

// CopyObjectInput describes a copy-object request.
type CopyObjectInput struct {
	SrcBucket, SrcKey   string
	DestBucket, DestKey string
	ReplaceMetadata     bool
	NewHeaders          PutInput
}

// CopyObject streams the source body into a new PutObject at the
// destination. If ReplaceMetadata is set, metadata comes from NewHeaders;
// otherwise it is carried over from the source's sidecar. Either way MD5
// and ModifiedDate are recomputed from the copied bytes, never reused from
// the source.
func (s *Store) CopyObject(in CopyObjectInput) (Object, error) {
	srcObj, rc, err := s.GetObject(in.SrcBucket, in.SrcKey, nil)
	if err != nil {
		return Object{}, err
	}
	defer rc.Close()

	input := in.NewHeaders
	if !in.ReplaceMetadata {
		input = PutInput{
			ContentType:        srcObj.ContentType,
			ContentEncoding:    srcObj.ContentEncoding,
			ContentDisposition: srcObj.ContentDisposition,
			CustomMetaData:     srcObj.CustomMetaData,
		}
	}
	return s.PutObject(in.DestBucket, in.DestKey, rc, input)
}

// ListObjects walks the bucket's keys in lexicographic order applying
// marker/prefix/delimiter/maxKeys: entries <= marker are
// skipped, entries not matching prefix are skipped, and when delimiter is
// set a key's first delimiter occurrence at or after prefix's length
// collapses it into a deduplicated common prefix instead of a full entry.
func (s *Store) ListObjects(bucket string, opts ListOptions) (ListResult, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	keys, err := s.walkKeys(bucket)
	if err != nil {
		return ListResult{}, err
	}
	sort.Strings(keys)

	var result ListResult
	seenPrefixes := make(map[string]bool)
	collected := 0

	for _, key := range keys {
		if opts.Marker != "" && key <= opts.Marker {
			continue
		}
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			continue
		}

		if opts.Delimiter != "" {
			searchFrom := len(opts.Prefix)
			if searchFrom > len(key) {
				searchFrom = len(key)
			}
			if idx := strings.Index(key[searchFrom:], opts.Delimiter); idx >= 0 {
				cp := key[:searchFrom+idx+len(opts.Delimiter)]
				if !seenPrefixes[cp] {
					if collected >= maxKeys {
						result.IsTruncated = true
						break
					}
					seenPrefixes[cp] = true
					result.CommonPrefixes = append(result.CommonPrefixes, cp)
					collected++
				}
				continue
			}
		}

		if collected >= maxKeys {
			result.IsTruncated = true
			break
		}

		opath := objectPath(bucket, key)
		info, statErr := s.fs.Stat(opath)
		if statErr != nil {
			continue // removed between walk and stat
		}
		result.Objects = append(result.Objects, s.loadMetadata(opath, key, info))
		collected++
	}

	sort.Strings(result.CommonPrefixes)
	return result, nil
}

// walkKeys returns every object key (body files, not sidecars or staging
// entries) under bucket, unsorted.
func (s *Store) walkKeys(bucket string) ([]string, error) {
	if !s.BucketExists(bucket) {
		return nil, ErrNotFound
	}
	var keys []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := s.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Name() == tmpStagingDir {
				continue
			}
			full := dir
			if full == "" {
				full = e.Name()
			} else {
				full = full + "/" + e.Name()
			}
			if e.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(e.Name(), ".metadata.json") {
				continue
			}
			key := strings.TrimPrefix(full, bucket+"/")
			keys = append(keys, key)
		}
		return nil
	}
	if err := walk(bucket); err != nil {
		return nil, err
	}
	return keys, nil
}
