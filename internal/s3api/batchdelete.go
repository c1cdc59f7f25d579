package s3api

import (
	"io"
	"net/http"

	"github.com/fileharbor/fileharbor/internal/s3xml"
)

// maxBatchDeleteBody bounds the request body accumulated for ?delete.
const maxBatchDeleteBody = 1 << 20

// HandleDeleteObjects implements POST /<bucket>?delete: a two-phase batch
// delete. Phase 1 checks every key exists; any miss aborts with NoSuchKey
// and performs no deletes. Phase 2 deletes each key in order; the first
// failure aborts with InternalError, leaving already-removed keys removed.
// Exactly one response is written — the first error found is authoritative.
func (h *Handler) HandleDeleteObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchDeleteBody))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", "failed to read request body")
		return
	}

	keys, err := s3xml.ParseDeleteRequest(body)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "InternalError", "malformed delete request")
		return
	}

	for _, key := range keys {
		if !h.store.ObjectExists(bucket, key) {
			h.writeNoSuchKey(w, key)
			return
		}
	}

	for _, key := range keys {
		if err := h.store.DeleteObject(bucket, key); err != nil {
			h.writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
			return
		}
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeXMLBytes(w, http.StatusOK, s3xml.BuildObjectsDeleted(keys))
}
