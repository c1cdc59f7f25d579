package s3api

import (
	"net/http"
	"strconv"

	"github.com/fileharbor/fileharbor/internal/fsstore"
	"github.com/fileharbor/fileharbor/internal/s3xml"
)

// HandleListBuckets implements GET / — always 200 with ListAllMyBucketsResult.
func (h *Handler) HandleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.store.GetBuckets()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeXMLBytes(w, http.StatusOK, s3xml.BuildBuckets(buckets))
}

// HandleCreateBucket implements PUT /<bucket>.
func (h *Handler) HandleCreateBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if !fsstore.ValidBucketName(bucket) {
		h.writeError(w, http.StatusBadRequest, "InvalidBucketName", "The specified bucket is not valid.")
		return
	}
	if h.store.BucketExists(bucket) {
		h.writeError(w, http.StatusConflict, "BucketAlreadyExists", "The requested bucket name is not available.")
		return
	}
	if err := h.store.PutBucket(bucket); err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

// HandleDeleteBucket implements DELETE /<bucket>.
func (h *Handler) HandleDeleteBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if err := h.store.DeleteBucket(bucket); err != nil {
		switch err {
		case fsstore.ErrBucketNotEmpty:
			h.writeBucketNotEmpty(w, bucket)
		case fsstore.ErrNotFound:
			h.writeNoSuchBucket(w, bucket)
		default:
			h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		}
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

// HandleHeadBucket implements the supplemented HEAD /<bucket> existence probe.
func (h *Handler) HandleHeadBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if !h.store.BucketExists(bucket) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
}

// HandleListObjects implements GET /<bucket> in its listing mode (static
// site index-document mode is handled upstream by ServeBucketRoot).
func (h *Handler) HandleListObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	q := r.URL.Query()
	opts := fsstore.ListOptions{
		Prefix:    q.Get("prefix"),
		Marker:    q.Get("marker"),
		Delimiter: q.Get("delimiter"),
		MaxKeys:   1000,
	}
	if mk := q.Get("max-keys"); mk != "" {
		if parsed, err := strconv.Atoi(mk); err == nil && parsed >= 0 {
			opts.MaxKeys = parsed
		}
	}

	result, err := h.store.ListObjects(bucket, opts)
	if err != nil {
		if err == fsstore.ErrNotFound {
			h.writeNoSuchBucket(w, bucket)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeXMLBytes(w, http.StatusOK, s3xml.BuildBucketQuery(opts, result))
}
