package r2client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/smithy-go"
)

// fakeS3 serves path-style PUT/GET/HEAD for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	headers map[string]http.Header
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: map[string][]byte{}, headers: map[string]http.Header{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		f.headers[key] = r.Header.Clone()
		w.Header().Set("ETag", `"etag-`+key+`"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeS3) *Client {
	t.Helper()
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Endpoint:    srv.URL,
		AccessKeyID: "test",
		SecretKey:   "secret",
		BucketName:  fake.bucket,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{Endpoint: "https://x"}); err == nil {
		t.Error("expected error for incomplete config")
	}
}

func TestUploadDownload(t *testing.T) {
	fake := newFakeS3("archive")
	c := newTestClient(t, fake)
	ctx := context.Background()

	etag, err := c.Upload(ctx, "analyses/2026/01/02/a.json.zst", []byte("payload"), Object{
		ContentType:     "application/json",
		ContentEncoding: "zstd",
		Metadata:        map[string]string{"provider": "openai"},
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if etag != "etag-analyses/2026/01/02/a.json.zst" {
		t.Errorf("etag = %q", etag)
	}

	h := fake.headers["analyses/2026/01/02/a.json.zst"]
	if got := h.Get("Content-Encoding"); !strings.Contains(got, "zstd") {
		t.Errorf("Content-Encoding = %q", got)
	}
	if got := h.Get("X-Amz-Meta-Provider"); got != "openai" {
		t.Errorf("metadata header = %q", got)
	}

	data, err := c.Download(ctx, "analyses/2026/01/02/a.json.zst")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Download() = %q", data)
	}
}

func TestDownload_NotFound(t *testing.T) {
	c := newTestClient(t, newFakeS3("archive"))

	_, err := c.Download(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, newFakeS3("archive"))
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if c.Bucket() != "archive" {
		t.Errorf("Bucket() = %q", c.Bucket())
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api error", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"other api error", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
