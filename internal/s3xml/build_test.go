package s3xml_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fileharbor/fileharbor/internal/fsstore"
	"github.com/fileharbor/fileharbor/internal/s3xml"
)

func TestBuildBuckets(t *testing.T) {
	out := s3xml.BuildBuckets([]fsstore.Bucket{
		{Name: "alpha", CreationDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	})
	s := string(out)
	if !strings.Contains(s, "<ListAllMyBucketsResult") {
		t.Fatalf("missing root element: %s", s)
	}
	if !strings.Contains(s, "<Name>alpha</Name>") {
		t.Fatalf("missing bucket name: %s", s)
	}
}

func TestBuildBucketQueryIncludesETagAndCommonPrefixes(t *testing.T) {
	out := s3xml.BuildBucketQuery(
		fsstore.ListOptions{Prefix: "a/", Delimiter: "/"},
		fsstore.ListResult{
			Objects:        []fsstore.Object{{Key: "a/1", MD5: "deadbeef", Size: 3}},
			CommonPrefixes: []string{"a/sub/"},
		},
	)
	s := string(out)
	if !strings.Contains(s, `<ETag>&#34;deadbeef&#34;</ETag>`) && !strings.Contains(s, `<ETag>"deadbeef"</ETag>`) {
		t.Fatalf("expected quoted ETag, got: %s", s)
	}
	if !strings.Contains(s, "<Prefix>a/sub/</Prefix>") {
		t.Fatalf("missing common prefix: %s", s)
	}
}

func TestBuildError(t *testing.T) {
	out := s3xml.BuildError("NoSuchBucket", "nope")
	s := string(out)
	if !strings.Contains(s, "<Code>NoSuchBucket</Code>") || !strings.Contains(s, "<Message>nope</Message>") {
		t.Fatalf("unexpected error body: %s", s)
	}
}

func TestBuildKeyNotFoundNamesKey(t *testing.T) {
	out := s3xml.BuildKeyNotFound("path/to/object.txt")
	s := string(out)
	if !strings.Contains(s, "<Code>NoSuchKey</Code>") || !strings.Contains(s, "path/to/object.txt") {
		t.Fatalf("expected NoSuchKey envelope naming the key, got: %s", s)
	}
}

func TestBuildBucketNotFoundNamesBucket(t *testing.T) {
	out := s3xml.BuildBucketNotFound("photos")
	s := string(out)
	if !strings.Contains(s, "<Code>NoSuchBucket</Code>") || !strings.Contains(s, "photos") {
		t.Fatalf("expected NoSuchBucket envelope naming the bucket, got: %s", s)
	}
}

func TestBuildBucketNotEmptyNamesBucket(t *testing.T) {
	out := s3xml.BuildBucketNotEmpty("photos")
	s := string(out)
	if !strings.Contains(s, "<Code>BucketNotEmpty</Code>") || !strings.Contains(s, "photos") {
		t.Fatalf("expected BucketNotEmpty envelope naming the bucket, got: %s", s)
	}
}

func TestBuildAclIsCannedFullControl(t *testing.T) {
	out := s3xml.BuildAcl()
	s := string(out)
	if !strings.Contains(s, "FULL_CONTROL") {
		t.Fatalf("expected FULL_CONTROL grant: %s", s)
	}
}

func TestBuildObjectsDeleted(t *testing.T) {
	out := s3xml.BuildObjectsDeleted([]string{"a", "b"})
	s := string(out)
	if strings.Count(s, "<Key>") != 2 {
		t.Fatalf("expected 2 deleted keys: %s", s)
	}
}

func TestParseDeleteRequest(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Delete>
  <Object><Key>a.txt</Key></Object>
  <Object><Key>b.txt</Key></Object>
</Delete>`)
	keys, err := s3xml.ParseDeleteRequest(body)
	if err != nil {
		t.Fatalf("ParseDeleteRequest: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a.txt" || keys[1] != "b.txt" {
		t.Fatalf("keys = %v, want [a.txt b.txt]", keys)
	}
}

func TestParseDeleteRequestMalformed(t *testing.T) {
	if _, err := s3xml.ParseDeleteRequest([]byte("not xml")); err == nil {
		t.Fatal("expected error parsing malformed XML")
	}
}
