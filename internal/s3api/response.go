package s3api

import (
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fileharbor/fileharbor/internal/fsstore"
)

// writeXMLBytes writes a pre-rendered XML envelope with the content type
// and status every XML response shares.
func writeXMLBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write(body)
}

var rangePattern = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// parseRange parses an HTTP Range header of the form "bytes=start-end".
// A missing end means "to EOF" and is reported as ByteRange.End == -1. A
// header that doesn't match the single-range form is treated as absent;
// multi-range and suffix-range requests are not modeled.
func parseRange(header string) (*fsstore.ByteRange, bool) {
	if header == "" {
		return nil, false
	}
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return nil, false
	}
	startStr, endStr := m[1], m[2]
	if startStr == "" {
		return nil, false // suffix ranges ("bytes=-N") are not modeled by this server
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return nil, false
	}
	end := int64(-1)
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, false
		}
	}
	return &fsstore.ByteRange{Start: start, End: end}, true
}

// clampedEnd resolves a possibly-open-ended range's end against the
// object's total size for Content-Range arithmetic.
func clampedEnd(rng *fsstore.ByteRange, size int64) int64 {
	if rng.End < 0 || rng.End >= size {
		return size - 1
	}
	return rng.End
}

// ifNoneMatchSatisfied reports whether the If-None-Match header matches the
// object's current ETag (quoted) or "*".
func ifNoneMatchSatisfied(header, etag string) bool {
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}

// ifModifiedSinceSatisfied uses an intentionally RFC-deviant >= comparison:
// a 304 is returned even when the timestamps are exactly equal.
func ifModifiedSinceSatisfied(header string, modified time.Time) bool {
	if header == "" {
		return false
	}
	t, err := http.ParseTime(header)
	if err != nil {
		return false
	}
	return !t.Before(modified.Truncate(time.Second))
}

// writeObjectHeaders sets every header required for a body-bearing GET/HEAD
// response, excluding Content-Length/Content-Range which depend on whether
// a range applies.
func writeObjectHeaders(w http.ResponseWriter, obj fsstore.Object) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ETag", `"`+obj.MD5+`"`)
	w.Header().Set("Last-Modified", obj.ModifiedDate.UTC().Format(http.TimeFormat))
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if obj.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", obj.ContentEncoding)
	}
	if obj.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", obj.ContentDisposition)
	}
	for _, m := range obj.CustomMetaData {
		w.Header().Set("x-amz-meta-"+m.Name, m.Value)
	}
}

// serveObject writes the full body-bearing response for GET/HEAD: headers,
// status (200 or 206), Content-Length/Content-Range, and — unless head is
// true — the body itself.
func serveObject(w http.ResponseWriter, obj fsstore.Object, body io.ReadCloser, rng *fsstore.ByteRange, head bool) {
	writeObjectHeaders(w, obj)
	w.Header().Set("Accept-Ranges", "bytes")

	status := http.StatusOK
	if rng != nil {
		end := clampedEnd(rng, obj.Size)
		status = http.StatusPartialContent
		w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(rng.Start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(obj.Size, 10))
		w.Header().Set("Content-Length", strconv.FormatInt(end-rng.Start+1, 10))
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}

	w.WriteHeader(status)
	if !head && body != nil {
		io.Copy(w, body)
	}
}
