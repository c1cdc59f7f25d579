package s3api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fileharbor/fileharbor/internal/config"
)

const notFoundHTML = `<html>
<head><title>404 Not Found</title></head>
<body>
<h1>404 — Resource Not Found</h1>
<p>The resource you requested could not be found.</p>
</body>
</html>`

// ServeBucketRoot implements GET /<bucket>: index-document fallback when
// configured, otherwise a plain listing.
func (h *Handler) ServeBucketRoot(w http.ResponseWriter, r *http.Request, bucket string) {
	if !h.store.BucketExists(bucket) {
		h.writeNoSuchBucket(w, bucket)
		return
	}
	if h.cfg.IndexDocument != "" {
		obj, body, err := h.store.GetObject(bucket, h.cfg.IndexDocument, nil)
		if err == nil {
			defer body.Close()
			serveObject(w, obj, body, nil, r.Method == http.MethodHead)
			return
		}
		h.serveStaticFallback(w, r, bucket)
		return
	}
	h.HandleListObjects(w, r, bucket)
}

// serveStaticFallback implements the static-site fallback: serve the
// configured error document with a 404, or else the fixed HTML 404 page.
func (h *Handler) serveStaticFallback(w http.ResponseWriter, r *http.Request, bucket string) {
	if h.cfg.ErrorDocument != "" {
		obj, body, err := h.store.GetObject(bucket, h.cfg.ErrorDocument, nil)
		if err == nil {
			defer body.Close()
			writeObjectHeaders(w, obj)
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				io.Copy(w, body)
			}
			return
		}
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		fmt.Fprint(w, notFoundHTML)
	}
}

// redirectLocation builds the Location header for a configured routing
// rule on a GET-miss redirect.
func redirectLocation(rule *config.RoutingRule, requestHost, key string) string {
	host := rule.HostName
	if host == "" {
		host = requestHost
	}
	newKey := rule.ReplaceKeyPrefixWith + key
	return rule.Protocol + "://" + host + "/" + strings.TrimPrefix(newKey, "/")
}
