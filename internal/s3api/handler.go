// Package s3api is the request translator: one method per S3 operation,
// each validating inputs, consulting the object store, and emitting the
// headers/status/XML body the S3 REST wire protocol requires.
package s3api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fileharbor/fileharbor/internal/config"
	"github.com/fileharbor/fileharbor/internal/fsstore"
	"github.com/fileharbor/fileharbor/internal/s3xml"
)

// Handler wires the object store and server configuration to a set of
// http.HandlerFunc methods registered by NewRouter.
type Handler struct {
	store  *fsstore.Store
	cfg    *config.Config
	logger *logrus.Logger
}

// NewHandler builds a Handler over store using cfg's static-site and
// routing-rule options. logger is used for side-channel diagnostics only —
// it never affects the response.
func NewHandler(store *fsstore.Store, cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{store: store, cfg: cfg, logger: logger}
}

// writeError emits a typed S3 error envelope built from code and message.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeXMLBytes(w, status, s3xml.BuildError(code, message))
}

// writeErrorBody emits a pre-rendered error envelope, for the error kinds
// that carry a resource name (NoSuchKey, NoSuchBucket, BucketNotEmpty).
func (h *Handler) writeErrorBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeXMLBytes(w, status, body)
}

func (h *Handler) writeNoSuchBucket(w http.ResponseWriter, name string) {
	h.writeErrorBody(w, http.StatusNotFound, s3xml.BuildBucketNotFound(name))
}

func (h *Handler) writeNoSuchKey(w http.ResponseWriter, key string) {
	h.writeErrorBody(w, http.StatusNotFound, s3xml.BuildKeyNotFound(key))
}

func (h *Handler) writeBucketNotEmpty(w http.ResponseWriter, name string) {
	h.writeErrorBody(w, http.StatusConflict, s3xml.BuildBucketNotEmpty(name))
}
