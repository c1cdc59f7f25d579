package s3xml

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/fileharbor/fileharbor/internal/fsstore"
)

func render(v interface{}) []byte {
	body, err := xml.Marshal(v)
	if err != nil {
		// Every type here is a fixed, hand-written struct; a marshal
		// failure means a programming error, not bad input.
		panic(err)
	}
	return append([]byte(xml.Header), body...)
}

// BuildBuckets renders ListAllMyBucketsResult.
func BuildBuckets(buckets []fsstore.Bucket) []byte {
	out := make([]xmlBucket, len(buckets))
	for i, b := range buckets {
		out[i] = xmlBucket{Name: b.Name, CreationDate: b.CreationDate.UTC().Format(time.RFC3339)}
	}
	return render(listAllMyBucketsResult{
		Xmlns:   xmlns,
		Buckets: bucketsWrap{Bucket: out},
	})
}

// BuildBucketQuery renders ListBucketResult for a GET /<bucket> listing.
func BuildBucketQuery(opts fsstore.ListOptions, result fsstore.ListResult) []byte {
	contents := make([]xmlObject, len(result.Objects))
	for i, o := range result.Objects {
		contents[i] = xmlObject{
			Key:          o.Key,
			LastModified: o.ModifiedDate.UTC().Format(time.RFC3339),
			ETag:         `"` + o.MD5 + `"`,
			Size:         o.Size,
			StorageClass: "STANDARD",
		}
	}
	prefixes := make([]xmlCommonPfx, len(result.CommonPrefixes))
	for i, p := range result.CommonPrefixes {
		prefixes[i] = xmlCommonPfx{Prefix: p}
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	return render(listBucketResult{
		Xmlns:          xmlns,
		Name:           "",
		Prefix:         opts.Prefix,
		Marker:         opts.Marker,
		Delimiter:      opts.Delimiter,
		MaxKeys:        maxKeys,
		IsTruncated:    result.IsTruncated,
		Contents:       contents,
		CommonPrefixes: prefixes,
	})
}

// BuildKeyNotFound renders the NoSuchKey error envelope naming the missing key.
func BuildKeyNotFound(key string) []byte {
	return BuildError("NoSuchKey", fmt.Sprintf("The specified key does not exist: %s", key))
}

// BuildBucketNotFound renders the NoSuchBucket error envelope naming the
// missing bucket.
func BuildBucketNotFound(name string) []byte {
	return BuildError("NoSuchBucket", fmt.Sprintf("The specified bucket does not exist: %s", name))
}

// BuildBucketNotEmpty renders the BucketNotEmpty error envelope naming the
// bucket that still has objects in it.
func BuildBucketNotEmpty(name string) []byte {
	return BuildError("BucketNotEmpty", fmt.Sprintf("The bucket you tried to delete is not empty: %s", name))
}

// BuildError renders a generic <Error> envelope.
func BuildError(code, message string) []byte {
	return render(xmlError{Code: code, Message: message})
}

// BuildAcl renders a fixed, canned AccessControlPolicy — the server does
// not implement ACL evaluation.
func BuildAcl() []byte {
	return render(accessControlPolicy{
		Xmlns: xmlns,
		Owner: owner{ID: "fileharbor", DisplayName: "fileharbor"},
		AccessControlList: aclList{Grant: []grant{{
			Grantee: grantee{
				XMLNSXsi:    "http://www.w3.org/2001/XMLSchema-instance",
				Type:        "CanonicalUser",
				ID:          "fileharbor",
				DisplayName: "fileharbor",
			},
			Permission: "FULL_CONTROL",
		}}},
	})
}

// CopyObjectInfo is the subset of a copy result the XML envelope needs.
type CopyObjectInfo struct {
	MD5          string
	ModifiedDate time.Time
}

// BuildCopyObject renders CopyObjectResult.
func BuildCopyObject(in CopyObjectInfo) []byte {
	return render(copyObjectResult{
		LastModified: in.ModifiedDate.UTC().Format(time.RFC3339),
		ETag:         `"` + in.MD5 + `"`,
	})
}

// BuildObjectsDeleted renders DeleteResult listing every key that was
// successfully removed.
func BuildObjectsDeleted(keys []string) []byte {
	deleted := make([]deletedObject, len(keys))
	for i, k := range keys {
		deleted[i] = deletedObject{Key: k}
	}
	return render(deleteResult{Xmlns: xmlns, Deleted: deleted})
}

// ParseDeleteRequest parses a batch-delete POST body into an ordered list
// of keys. Malformed XML is reported to the caller as an error, surfaced
// to the client as InternalError; a parse failure is not distinguished
// from any other internal failure.
func ParseDeleteRequest(body []byte) ([]string, error) {
	var req DeleteRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	keys := make([]string, len(req.Objects))
	for i, o := range req.Objects {
		keys[i] = o.Key
	}
	return keys, nil
}
