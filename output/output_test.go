package output

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/errors"
)

func unit(path, src string) emit.Unit {
	return emit.Unit{Path: path, Source: []byte(src)}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Write(ctx, unit("b/b_jbind.go", "package b")))
	require.NoError(t, m.Write(ctx, unit("a/a_jbind.go", "package a")))

	paths, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/a_jbind.go", "b/b_jbind.go"}, paths)

	data, err := m.Read(ctx, "a/a_jbind.go")
	require.NoError(t, err)
	assert.Equal(t, "package a", string(data))

	require.NoError(t, m.Remove(ctx, "a/a_jbind.go"))
	_, err = m.Read(ctx, "a/a_jbind.go")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDiskWriteAndRemove(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := NewDisk(root)

	require.NoError(t, d.Write(ctx, unit("java/util/list_jbind.go", "package util\n")))
	data, err := os.ReadFile(filepath.Join(root, "java", "util", "list_jbind.go"))
	require.NoError(t, err)
	assert.Equal(t, "package util\n", string(data))

	paths, err := d.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"java/util/list_jbind.go"}, paths, "no temp files left behind")

	require.NoError(t, d.Remove(ctx, "java/util/list_jbind.go"))
	_, err = os.Stat(filepath.Join(root, "java"))
	assert.True(t, os.IsNotExist(err), "empty directories are removed")
	_, err = os.Stat(root)
	assert.NoError(t, err, "the root stays")

	assert.NoError(t, d.Remove(ctx, "never/written.go"))
}

func TestDiskKeepsUnchangedFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := NewDisk(root)
	p := filepath.Join(root, "a.go")

	require.NoError(t, d.Write(ctx, unit("a.go", "package a\n")))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(p, old, old))

	require.NoError(t, d.Write(ctx, unit("a.go", "package a\n")))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))

	require.NoError(t, d.Write(ctx, unit("a.go", "package a // changed\n")))
	info, err = os.Stat(p)
	require.NoError(t, err)
	assert.False(t, info.ModTime().Equal(old))
}

func TestDiskRejectsEscapes(t *testing.T) {
	d := NewDisk(t.TempDir())
	err := d.Write(context.Background(), unit("../evil.go", "package evil"))
	require.Error(t, err)
	assert.True(t, errors.IsEmissionIOError(err))
}

func TestDiskWriteFailure(t *testing.T) {
	root := t.TempDir()
	// a file where a directory is needed
	require.NoError(t, os.WriteFile(filepath.Join(root, "java"), nil, 0o644))

	err := NewDisk(root).Write(context.Background(), unit("java/util/list_jbind.go", "package util"))
	require.Error(t, err)
	assert.True(t, errors.IsEmissionIOError(err))
}

func TestDiskReadMissing(t *testing.T) {
	_, err := NewDisk(t.TempDir()).Read(context.Background(), "absent.go")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDiskListMissingRoot(t *testing.T) {
	paths, err := NewDisk(filepath.Join(t.TempDir(), "absent")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

// fakeS3 serves the handful of S3 calls the sink makes. Requests
// without an object key address the bucket.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	if bucket := strings.TrimSuffix(key, "/"); !strings.Contains(bucket, "/") {
		f.serveBucket(w, r, bucket)
		return
	}
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		if r.Header.Get("X-Amz-Decoded-Content-Length") != "" {
			data = decodeChunked(data)
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/x-go")
		w.Write(data)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) serveBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	switch r.Method {
	case http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// decodeChunked strips aws-chunked framing: "<hex size>;chunk-signature=...\r\n<data>\r\n".
func decodeChunked(body []byte) []byte {
	var out []byte
	for len(body) > 0 {
		line, rest, ok := strings.Cut(string(body), "\r\n")
		if !ok {
			break
		}
		size, err := strconv.ParseInt(strings.SplitN(line, ";", 2)[0], 16, 64)
		if err != nil || size == 0 || int(size) > len(rest) {
			break
		}
		out = append(out, rest[:size]...)
		body = []byte(strings.TrimPrefix(rest[size:], "\r\n"))
	}
	return out
}

func TestS3(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "bindings",
		Prefix:    "/gen/",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://bindings/gen/", s.String())

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, unit("java/lang/object_jbind.go", "package lang\n")))
	assert.True(t, fake.buckets["bindings"], "the missing bucket is created")
	assert.Contains(t, fake.objects, "bindings/gen/java/lang/object_jbind.go")

	data, err := s.Read(ctx, "java/lang/object_jbind.go")
	require.NoError(t, err)
	assert.Equal(t, "package lang\n", string(data))

	require.NoError(t, s.Remove(ctx, "java/lang/object_jbind.go"))
	assert.Empty(t, fake.objects)
}

func TestNewS3Validation(t *testing.T) {
	_, err := NewS3(S3Config{Bucket: "b"})
	assert.True(t, errors.IsConfigurationError(err))
	_, err = NewS3(S3Config{Endpoint: "localhost:9000"})
	assert.True(t, errors.IsConfigurationError(err))
}
