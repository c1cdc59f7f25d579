package s3api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/fileharbor/fileharbor/internal/config"
	"github.com/fileharbor/fileharbor/internal/fsstore"
	"github.com/fileharbor/fileharbor/internal/fsstore/memfs"
	"github.com/fileharbor/fileharbor/internal/s3api"
)

func newTestServer(opts ...config.Option) (*fsstore.Store, http.Handler) {
	fs := memfs.New()
	store := fsstore.NewStore(fs)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	allOpts := append([]config.Option{config.WithFileSystem(fs)}, opts...)
	cfg := config.New(allOpts...)
	handler := s3api.NewHandler(store, cfg, logger)
	return store, s3api.CORSMiddleware(s3api.NewRouter(handler))
}

func TestCreateListHeadDeleteBucket(t *testing.T) {
	_, router := newTestServer()

	req := httptest.NewRequest(http.MethodPut, "/photos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /photos = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodHead, "/photos", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("HEAD /photos = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "photos") {
		t.Fatalf("GET / = %d %q, want 200 listing photos", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/photos", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /photos = %d, want 204", rec.Code)
	}
}

func TestCreateBucketInvalidName(t *testing.T) {
	_, router := newTestServer()
	req := httptest.NewRequest(http.MethodPut, "/AB", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT /AB = %d, want 400", rec.Code)
	}
}

func TestCreateBucketAlreadyExists(t *testing.T) {
	_, router := newTestServer()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPut, "/dup-bucket", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if i == 1 && rec.Code != http.StatusConflict {
			t.Fatalf("second PUT /dup-bucket = %d, want 409", rec.Code)
		}
	}
}

func TestPutGetObjectRoundTrip(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")

	req := httptest.NewRequest(http.MethodPut, "/b/hello.txt", strings.NewReader("hello"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("x-amz-meta-owner", "amy")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT object = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header on PUT")
	}

	req = httptest.NewRequest(http.MethodGet, "/b/hello.txt", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET object = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("body = %q, want hello", rec.Body.String())
	}
	if rec.Header().Get("x-amz-meta-owner") != "amy" {
		t.Fatalf("missing custom metadata header, got headers: %v", rec.Header())
	}
}

func TestGetObjectRangeRequest(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "data.txt", "0123456789")

	req := httptest.NewRequest(http.MethodGet, "/b/data.txt", nil)
	req.Header.Set("Range", "bytes=2-4")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("ranged GET = %d, want 206", rec.Code)
	}
	if rec.Body.String() != "234" {
		t.Fatalf("ranged body = %q, want 234", rec.Body.String())
	}
	if rec.Header().Get("Content-Range") != "bytes 2-4/10" {
		t.Fatalf("Content-Range = %q, want bytes 2-4/10", rec.Header().Get("Content-Range"))
	}
}

func TestGetObjectUnsatisfiableRangeFallsBackToFullBody(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "data.txt", "0123456789")

	req := httptest.NewRequest(http.MethodGet, "/b/data.txt", nil)
	req.Header.Set("Range", "bytes=50-60")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unsatisfiable-range GET = %d, want 200 (full object, not a miss): %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "0123456789" {
		t.Fatalf("body = %q, want full object 0123456789", rec.Body.String())
	}
	if rec.Header().Get("Content-Range") != "" {
		t.Fatalf("Content-Range should be absent on a full-body fallback, got %q", rec.Header().Get("Content-Range"))
	}
}

func TestGetObjectIfNoneMatchReturns304(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "k", "v")

	req := httptest.NewRequest(http.MethodGet, "/b/k", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	etag := rec.Header().Get("ETag")

	req = httptest.NewRequest(http.MethodGet, "/b/k", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional GET = %d, want 304", rec.Code)
	}
}

func TestGetMissingObjectReturns404(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")

	req := httptest.NewRequest(http.MethodGet, "/b/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET missing = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestCopyObject(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "src", "payload")

	req := httptest.NewRequest(http.MethodPut, "/b/dst", nil)
	req.Header.Set("x-amz-copy-source", "/b/src")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("copy PUT = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "CopyObjectResult") {
		t.Fatalf("expected CopyObjectResult envelope, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/b/dst", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "payload" {
		t.Fatalf("copied body = %q, want payload", rec.Body.String())
	}
}

func TestDeleteObjectsBatch(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "a", "1")
	putObject(t, router, "b", "c", "2")

	body := `<Delete><Object><Key>a</Key></Object><Object><Key>c</Key></Object></Delete>`
	req := httptest.NewRequest(http.MethodPost, "/b?delete", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("batch delete = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if strings.Count(rec.Body.String(), "<Key>") != 2 {
		t.Fatalf("expected 2 deleted keys in response: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/b/a", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("object a should be gone after batch delete, got %d", rec.Code)
	}
}

func TestDeleteObjectsBatchAbortsOnFirstMissingKey(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "a", "1")

	body := `<Delete><Object><Key>a</Key></Object><Object><Key>missing</Key></Object></Delete>`
	req := httptest.NewRequest(http.MethodPost, "/b?delete", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("batch delete with missing key = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/b/a", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatal("object a should still exist: phase 1 must abort before any delete")
	}
}

func TestStaticSiteIndexDocumentFallback(t *testing.T) {
	_, router := newTestServer(config.WithIndexDocument("index.html"))
	putBucket(t, router, "site")
	putObject(t, router, "site", "index.html", "<h1>home</h1>")

	req := httptest.NewRequest(http.MethodGet, "/site", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>home</h1>" {
		t.Fatalf("index-document fallback = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStaticSiteErrorDocumentOn404(t *testing.T) {
	_, router := newTestServer(config.WithErrorDocument("404.html"))
	putBucket(t, router, "site")
	putObject(t, router, "site", "404.html", "<h1>oops</h1>")

	req := httptest.NewRequest(http.MethodGet, "/site/nowhere", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound || rec.Body.String() != "<h1>oops</h1>" {
		t.Fatalf("error-document fallback = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAclEndpointReturnsCannedPolicy(t *testing.T) {
	_, router := newTestServer()
	putBucket(t, router, "b")
	putObject(t, router, "b", "k", "v")

	req := httptest.NewRequest(http.MethodGet, "/b/k?acl", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "AccessControlPolicy") {
		t.Fatalf("?acl response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("OPTIONS / = %d, want 200", rec.Code)
	}
}

func putBucket(t *testing.T, router http.Handler, name string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/"+name, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /%s = %d, want 200", name, rec.Code)
	}
}

func putObject(t *testing.T, router http.Handler, bucket, key, body string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/"+bucket+"/"+key, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /%s/%s = %d, want 200", bucket, key, rec.Code)
	}
}
