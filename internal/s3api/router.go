package s3api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every S3 route onto a *mux.Router, dispatching
// bucket- and object-level operations based on method and query flags.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/", h.HandleListBuckets).Methods(http.MethodGet)

	r.HandleFunc("/{bucket}", func(w http.ResponseWriter, r *http.Request) {
		bucket := mux.Vars(r)["bucket"]
		switch {
		case r.Method == http.MethodPut:
			h.HandleCreateBucket(w, r, bucket)
		case r.Method == http.MethodDelete:
			h.HandleDeleteBucket(w, r, bucket)
		case r.Method == http.MethodHead:
			h.HandleHeadBucket(w, r, bucket)
		case r.Method == http.MethodPost && r.URL.Query().Has("delete"):
			h.HandleDeleteObjects(w, r, bucket)
		case r.Method == http.MethodGet:
			h.ServeBucketRoot(w, r, bucket)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "The specified method is not allowed against this resource.")
		}
	}).Methods(http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodPost)

	r.HandleFunc("/{bucket}/{key:.*}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		bucket, key := vars["bucket"], vars["key"]
		switch r.Method {
		case http.MethodGet:
			h.HandleGetObject(w, r, bucket, key)
		case http.MethodHead:
			h.HandleHeadObject(w, r, bucket, key)
		case http.MethodPut:
			if copySource := r.Header.Get("x-amz-copy-source"); copySource != "" {
				h.HandleCopyObject(w, r, bucket, key, copySource)
			} else {
				h.HandlePutObject(w, r, bucket, key)
			}
		case http.MethodPost:
			h.HandlePostObject(w, r, bucket, key)
		case http.MethodDelete:
			h.HandleDeleteObject(w, r, bucket, key)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "The specified method is not allowed against this resource.")
		}
	}).Methods(http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete)

	return r
}
