package fss3

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	db "github.com/sayden/fqsort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakePageSize = 2

// fakeS3 answers the path style object calls the block store makes: PutObject, GetObject,
// DeleteObject and ListObjectsV2 in pages of fakePageSize keys.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	lists   int
}

type listBucketResult struct {
	XMLName               xml.Name    `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name                  string      `xml:"Name"`
	Prefix                string      `xml:"Prefix"`
	KeyCount              int         `xml:"KeyCount"`
	MaxKeys               int         `xml:"MaxKeys"`
	IsTruncated           bool        `xml:"IsTruncated"`
	NextContinuationToken string      `xml:"NextContinuationToken,omitempty"`
	Contents              []s3Content `xml:"Contents"`
}

type s3Content struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		f.list(w, r, bucket)
	case r.Method == http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, found := f.objects[key]
		if !found {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, found := f.objects[key]
	return data, found
}

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeS3) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeS3) list(w http.ResponseWriter, r *http.Request, bucket string) {
	f.lists++
	prefix := r.URL.Query().Get("prefix")

	keys := make([]string, 0)
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := r.URL.Query().Get("continuation-token"); token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := min(start+fakePageSize, len(keys))

	res := listBucketResult{Name: bucket, Prefix: prefix, MaxKeys: fakePageSize}
	for _, k := range keys[start:end] {
		res.Contents = append(res.Contents, s3Content{Key: k, Size: len(f.objects[k])})
	}
	res.KeyCount = len(res.Contents)
	if end < len(keys) {
		res.IsTruncated = true
		res.NextContinuationToken = strconv.Itoa(end)
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(res)
}

func newFakeS3(t *testing.T, prefix string) (db.Filesystem, *fakeS3) {
	t.Helper()

	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := db.NewDefaultConfig()
	cfg.Filesystem = db.FilesystemTypeMap[db.FILESYSTEM_TYPE_S3]
	cfg.S3Config.Bucket = "blocks"
	cfg.S3Config.Endpoint = srv.URL
	cfg.S3Config.Prefix = prefix
	cfg.S3Config.AccessKey = "key"
	cfg.S3Config.SecretKey = "secret"

	fs, err := InitS3(cfg)
	require.NoError(t, err)
	return fs, fake
}

func putBlock(t *testing.T, fs db.Filesystem, name, content string) {
	t.Helper()

	w, err := fs.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestS3Filesystem(t *testing.T) {
	fs, fake := newFakeS3(t, "jobs")

	w, err := fs.Create("job-block_0.dat")
	require.NoError(t, err)
	_, err = w.Write([]byte("a\nc\n"))
	require.NoError(t, err)
	assert.Zero(t, fake.size(), "nothing is uploaded before Close")
	require.NoError(t, w.Close())
	data, found := fake.object("jobs/job-block_0.dat")
	require.True(t, found)
	assert.Equal(t, "a\nc\n", string(data))

	r, err := fs.Open("job-block_0.dat")
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "a\nc\n", string(data))

	_, err = fs.Open("missing")
	assert.ErrorIs(t, err, db.ErrBlockNotFound)

	require.NoError(t, fs.Remove("job-block_0.dat"))
	assert.Zero(t, fake.size())
	_, err = fs.Open("job-block_0.dat")
	assert.ErrorIs(t, err, db.ErrBlockNotFound)
}

func TestS3FilesystemList(t *testing.T) {
	fs, fake := newFakeS3(t, "jobs/")

	for _, name := range []string{"job-block_2.dat", "job-block_0.dat", "job-block_1.dat", "other-block_0.dat"} {
		putBlock(t, fs, name, name)
	}
	// a sibling folder sharing the prefix text must not leak into the listing
	fake.put("jobs-old/job-block_9.dat", []byte("old"))

	names, err := fs.List("job-")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-block_0.dat", "job-block_1.dat", "job-block_2.dat"}, names)
	assert.Equal(t, 2, fake.listCalls(), "three keys over pages of two")

	names, err = fs.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-block_0.dat", "job-block_1.dat", "job-block_2.dat", "other-block_0.dat"}, names)
}

func TestS3FilesystemWithoutPrefix(t *testing.T) {
	fs, fake := newFakeS3(t, "")

	putBlock(t, fs, "job-block_0.dat", "x\n")
	_, found := fake.object("job-block_0.dat")
	assert.True(t, found)

	names, err := fs.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-block_0.dat"}, names)
}

func TestCredentialsProvider(t *testing.T) {
	assert.Nil(t, credentialsProvider(db.S3Config{Endpoint: "http://localhost:9000"}))
	assert.Nil(t, credentialsProvider(db.S3Config{AccessKey: "key"}))

	provider := credentialsProvider(db.S3Config{AccessKey: "key", SecretKey: "secret"})
	require.NotNil(t, provider)
	creds, err := provider.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
