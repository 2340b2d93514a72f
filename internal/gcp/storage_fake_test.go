package gcp

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeGCS serves the subset of the Cloud Storage JSON and XML APIs that
// ObjectStore uses, keyed by "bucket/object".
type fakeGCS struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	acl     map[string]string
}

func newFakeGCS(t *testing.T) (*fakeGCS, *httptest.Server) {
	t.Helper()
	f := &fakeGCS{objects: map[string][]byte{}, types: map[string]string{}, acl: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGCS) put(bucket, name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+name] = data
}

func (f *fakeGCS) get(bucket, name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+name]
	return data, ok
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/upload/storage/v1/b/"):
		bucket := strings.TrimSuffix(strings.TrimPrefix(path, "/upload/storage/v1/b/"), "/o")
		f.upload(w, r, bucket)
	case strings.HasPrefix(path, "/storage/v1/b/") || strings.HasPrefix(path, "/download/storage/v1/b/"):
		rest := path[strings.Index(path, "/b/")+len("/b/"):]
		bucket, object, ok := strings.Cut(rest, "/o/")
		if !ok {
			notFound(w)
			return
		}
		if i := strings.LastIndex(object, "/acl/"); i >= 0 && r.Method == http.MethodPut {
			f.setACL(w, r, bucket, object[:i], object[i+len("/acl/"):])
			return
		}
		switch r.Method {
		case http.MethodDelete:
			f.delete(w, bucket, object)
		case http.MethodGet:
			if r.URL.Query().Get("alt") == "media" {
				f.read(w, bucket, object)
				return
			}
			f.attrs(w, bucket, object)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.Method == http.MethodGet:
		bucket, object, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
		f.read(w, bucket, object)
	default:
		notFound(w)
	}
}

func (f *fakeGCS) upload(w http.ResponseWriter, r *http.Request, bucket string) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		http.Error(w, "expected multipart upload", http.StatusBadRequest)
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var meta struct {
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mediaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(mediaPart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.objects[bucket+"/"+meta.Name] = data
	f.types[bucket+"/"+meta.Name] = meta.ContentType
	f.mu.Unlock()

	writeJSON(w, map[string]string{
		"bucket":      bucket,
		"name":        meta.Name,
		"contentType": meta.ContentType,
		"size":        strconv.Itoa(len(data)),
		"generation":  "1",
	})
}

func (f *fakeGCS) read(w http.ResponseWriter, bucket, object string) {
	data, ok := f.get(bucket, object)
	if !ok {
		notFound(w)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Goog-Generation", "1")
	_, _ = w.Write(data)
}

func (f *fakeGCS) attrs(w http.ResponseWriter, bucket, object string) {
	data, ok := f.get(bucket, object)
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, map[string]string{
		"bucket":      bucket,
		"name":        object,
		"contentType": f.contentType(bucket, object),
		"size":        strconv.Itoa(len(data)),
		"generation":  "1",
	})
}

func (f *fakeGCS) delete(w http.ResponseWriter, bucket, object string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := bucket + "/" + object
	if _, ok := f.objects[key]; !ok {
		notFound(w)
		return
	}
	delete(f.objects, key)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeGCS) setACL(w http.ResponseWriter, r *http.Request, bucket, object, entity string) {
	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := bucket + "/" + object
	if _, ok := f.objects[key]; !ok {
		notFound(w)
		return
	}
	f.acl[key+"#"+entity] = body.Role
	writeJSON(w, map[string]string{"bucket": bucket, "object": object, "entity": entity, "role": body.Role})
}

func (f *fakeGCS) role(bucket, object, entity string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acl[bucket+"/"+object+"#"+entity]
}

func (f *fakeGCS) contentType(bucket, object string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[bucket+"/"+object]
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, `{"error":{"code":404,"message":"No such object"}}`)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
