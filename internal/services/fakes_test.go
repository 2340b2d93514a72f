package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/showcaseworker/internal/gcp"
)

const destBucket = "showcase-dest"

var errBoom = errors.New("boom")

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	public  map[string]bool
	calls   []string

	downloadErr error
	uploadErr   error
	publicErr   error
	deleteErr   error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, public: map[string]bool{}}
}

func objectKey(bucket, name string) string { return bucket + "/" + name }

func (f *fakeObjects) put(bucket, name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectKey(bucket, name)] = data
}

func (f *fakeObjects) get(bucket, name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectKey(bucket, name)]
	return data, ok
}

func (f *fakeObjects) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeObjects) Download(ctx context.Context, bucket, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "download")
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.objects[objectKey(bucket, name)]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, name)
	}
	return data, nil
}

func (f *fakeObjects) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload")
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.objects[objectKey(destBucket, name)] = data
	return gcp.PublicURL(destBucket, name), nil
}

func (f *fakeObjects) MakePublic(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "make-public")
	if f.publicErr != nil {
		return f.publicErr
	}
	f.public[name] = true
	return nil
}

func (f *fakeObjects) Delete(ctx context.Context, bucket, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, objectKey(bucket, name))
	return nil
}

// fakeDocs applies field-path updates to in-memory documents and records
// every write in order.
type fakeDocs struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	writes [][]firestore.Update
	// failWhen, when set, can reject a write before it is applied.
	failWhen func(updates []firestore.Update) error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]map[string]any{}}
}

func (f *fakeDocs) UpdateFields(ctx context.Context, characterID string, updates []firestore.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWhen != nil {
		if err := f.failWhen(updates); err != nil {
			return err
		}
	}
	f.writes = append(f.writes, updates)
	doc, ok := f.docs[characterID]
	if !ok {
		doc = map[string]any{}
		f.docs[characterID] = doc
	}
	for _, u := range updates {
		doc[u.Path] = u.Value
	}
	return nil
}

func (f *fakeDocs) field(characterID, path string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[characterID][path]
}

// statuses lists every status value written, in order.
func (f *fakeDocs) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.writes {
		for _, u := range w {
			if s, ok := u.Value.(string); ok && isStatusPath(u.Path) {
				out = append(out, s)
			}
		}
	}
	return out
}

func (f *fakeDocs) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// failStatus rejects any write that sets the given status.
func failStatus(status string, err error) func([]firestore.Update) error {
	return func(updates []firestore.Update) error {
		for _, u := range updates {
			if isStatusPath(u.Path) && u.Value == status {
				return err
			}
		}
		return nil
	}
}

func isStatusPath(path string) bool {
	return path == "visuals.showcaseProcessingStatus"
}

type fakeTransform struct {
	name  string
	fn    func([]byte) []byte
	err   error
	mu    sync.Mutex
	input [][]byte
}

func (t *fakeTransform) Name() string { return t.name }

func (t *fakeTransform) Apply(ctx context.Context, data []byte) ([]byte, error) {
	t.mu.Lock()
	t.input = append(t.input, data)
	t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return t.fn(data), nil
}

func (t *fakeTransform) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.input)
}

func appendTag(tag string) func([]byte) []byte {
	return func(in []byte) []byte {
		out := append([]byte{}, in...)
		return append(out, []byte(tag)...)
	}
}
