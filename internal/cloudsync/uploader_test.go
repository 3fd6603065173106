package cloudsync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	buckets map[string]bool
	heads   []string
}

func newFakeS3(t *testing.T) (*fakeS3, Target) {
	f := &fakeS3{objects: map[string][]byte{}, buckets: map[string]bool{"journal": true}}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	return f, Target{
		Endpoint:  server.URL,
		Bucket:    "journal",
		AccessKey: "AKID",
		SecretKey: "SECRET",
	}
}

func (f *fakeS3) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Bucket-level requests arrive as "/{bucket}/".
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/")
	parts := strings.SplitN(path, "/", 2)
	bucket := parts[0]
	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		f.heads = append(f.heads, bucket)
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(parts) == 2:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestUploadWritesIntoFolder(t *testing.T) {
	fake, target := newFakeS3(t)
	up, err := NewMinioUploader().Upload(context.Background(), target, "work-log-2024-03-01.pdf", []byte("%PDF-1.3"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if up.Key != "LogBook/work-log-2024-03-01.pdf" || up.Location != "s3://journal/LogBook/work-log-2024-03-01.pdf" {
		t.Fatalf("unexpected upload: %+v", up)
	}
	if up.ETag != "etag-1" {
		t.Fatalf("ETag = %q", up.ETag)
	}
	// Plain-HTTP uploads may arrive aws-chunked, so only look for the payload.
	if got := string(fake.objects["/journal/LogBook/work-log-2024-03-01.pdf"]); !strings.Contains(got, "%PDF-1.3") {
		t.Fatalf("stored object = %q", got)
	}
}

func TestVerify(t *testing.T) {
	fake, target := newFakeS3(t)
	u := NewMinioUploader()
	if err := u.Verify(context.Background(), target); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	target.Bucket = "missing"
	if err := u.Verify(context.Background(), target); !errors.Is(err, ErrBucketMissing) {
		t.Fatalf("Verify() error = %v, want ErrBucketMissing", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !slices.Contains(fake.heads, "journal") || !slices.Contains(fake.heads, "missing") {
		t.Fatalf("bucket checks = %v, want journal and missing", fake.heads)
	}
}

func TestUploadRejectsIncompleteTarget(t *testing.T) {
	_, err := NewMinioUploader().Upload(context.Background(), Target{Endpoint: "s3.example.com"}, "a.pdf", nil)
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("Upload() error = %v, want ErrInvalidTarget", err)
	}
}
