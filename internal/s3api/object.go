package s3api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fileharbor/fileharbor/internal/fsstore"
	"github.com/fileharbor/fileharbor/internal/s3xml"
)

// customMetaFromHeader extracts x-amz-meta-* headers, trimming the prefix
// to the bare metadata name. It ranges over the http.Header map, so the
// order of the returned entries is not defined and does not follow the
// order of the headers in the request.
func customMetaFromHeader(header http.Header) []fsstore.MetaEntry {
	var out []fsstore.MetaEntry
	for name, values := range header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-amz-meta-") && len(values) > 0 {
			out = append(out, fsstore.MetaEntry{
				Name:  strings.TrimPrefix(lower, "x-amz-meta-"),
				Value: values[0],
			})
		}
	}
	return out
}

func putInputFromRequest(r *http.Request) fsstore.PutInput {
	return fsstore.PutInput{
		ContentType:        r.Header.Get("Content-Type"),
		ContentEncoding:    r.Header.Get("Content-Encoding"),
		ContentDisposition: r.Header.Get("Content-Disposition"),
		CustomMetaData:     customMetaFromHeader(r.Header),
	}
}

// HandleGetObject implements GET /<bucket>/<key>, including the ?acl canned
// response, routing-rule/index-document miss fallback, and the
// If-None-Match / If-Modified-Since precondition order.
func (h *Handler) HandleGetObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if r.URL.Query().Has("acl") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		writeXMLBytes(w, http.StatusOK, s3xml.BuildAcl())
		return
	}

	rng, hasRange := parseRange(r.Header.Get("Range"))

	obj, body, err := h.store.GetObject(bucket, key, rng)
	if errors.Is(err, fsstore.ErrRangeNotSatisfiable) {
		hasRange = false
		rng = nil
		obj, body, err = h.store.GetObject(bucket, key, nil)
	}
	if err != nil {
		h.handleGetMiss(w, r, bucket, key)
		return
	}
	defer body.Close()

	etag := `"` + obj.MD5 + `"`
	if ifNoneMatchSatisfied(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if ifModifiedSinceSatisfied(r.Header.Get("If-Modified-Since"), obj.ModifiedDate) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var effectiveRange *fsstore.ByteRange
	if hasRange {
		effectiveRange = rng
	}
	serveObject(w, obj, body, effectiveRange, r.Method == http.MethodHead)
}

// handleGetMiss implements the ordered fallback on a GET miss: routing
// rule redirect, then index-document retry, then static-site fallback.
func (h *Handler) handleGetMiss(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if h.cfg.RoutingRule != nil {
		status := h.cfg.RoutingRule.HTTPRedirectCode
		if status == 0 {
			status = http.StatusMovedPermanently
		}
		w.Header().Set("Location", redirectLocation(h.cfg.RoutingRule, r.Host, key))
		w.WriteHeader(status)
		return
	}

	if h.cfg.IndexDocument != "" {
		indexKey := key + "/" + h.cfg.IndexDocument
		obj, body, err := h.store.GetObject(bucket, indexKey, nil)
		if err == nil {
			defer body.Close()
			serveObject(w, obj, body, nil, r.Method == http.MethodHead)
			return
		}
		h.serveStaticFallback(w, r, bucket)
		return
	}

	h.serveStaticFallback(w, r, bucket)
}

// HandleHeadObject implements HEAD /<bucket>/<key>.
func (h *Handler) HandleHeadObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	obj, err := h.store.StatObject(bucket, key)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeObjectHeaders(w, obj)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)
}

// HandlePutObject implements PUT /<bucket>/<key> for a plain upload (copy
// requests are routed to HandleCopyObject before reaching here).
func (h *Handler) HandlePutObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if !h.store.BucketExists(bucket) {
		h.writeNoSuchBucket(w, bucket)
		return
	}
	obj, err := h.store.PutObject(bucket, key, r.Body, putInputFromRequest(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ETag", `"`+obj.MD5+`"`)
	w.WriteHeader(http.StatusOK)
}

// HandlePostObject implements the form-style upload POST /<bucket>/<key>.
func (h *Handler) HandlePostObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	h.HandlePutObject(w, r, bucket, key)
}

// HandleDeleteObject implements DELETE /<bucket>/<key>.
func (h *Handler) HandleDeleteObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if !h.store.ObjectExists(bucket, key) {
		h.writeNoSuchKey(w, key)
		return
	}
	if err := h.store.DeleteObject(bucket, key); err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

// HandleCopyObject implements PUT /<bucket>/<key> when x-amz-copy-source is
// present.
func (h *Handler) HandleCopyObject(w http.ResponseWriter, r *http.Request, dstBucket, dstKey, copySource string) {
	copySource = strings.TrimPrefix(copySource, "/")
	parts := strings.SplitN(copySource, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		h.writeError(w, http.StatusBadRequest, "InvalidArgument", "Invalid x-amz-copy-source")
		return
	}
	srcBucket, srcKey := parts[0], parts[1]

	if !h.store.BucketExists(srcBucket) {
		h.writeNoSuchBucket(w, srcBucket)
		return
	}
	if !h.store.ObjectExists(srcBucket, srcKey) {
		h.writeNoSuchKey(w, srcKey)
		return
	}

	replace := strings.EqualFold(r.Header.Get("x-amz-metadata-directive"), "REPLACE")
	var newHeaders fsstore.PutInput
	if replace {
		newHeaders = putInputFromRequest(r)
	}

	obj, err := h.store.CopyObject(fsstore.CopyObjectInput{
		SrcBucket:       srcBucket,
		SrcKey:          srcKey,
		DestBucket:      dstBucket,
		DestKey:         dstKey,
		ReplaceMetadata: replace,
		NewHeaders:      newHeaders,
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeXMLBytes(w, http.StatusOK, s3xml.BuildCopyObject(s3xml.CopyObjectInfo{
		MD5:          obj.MD5,
		ModifiedDate: obj.ModifiedDate,
	}))
}
