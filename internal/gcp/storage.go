package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const publicStorageHost = "https://storage.googleapis.com"

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ClientOptions returns the options shared by the Firestore and Storage
// clients. With empty credentialsJSON the clients fall back to Application
// Default Credentials.
func ClientOptions(credentialsJSON string) []option.ClientOption {
	if strings.TrimSpace(credentialsJSON) == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsJSON([]byte(credentialsJSON))}
}

// NewStorageClient creates a Cloud Storage client.
func NewStorageClient(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return client, nil
}

// ObjectStore reads raw uploads from any bucket and writes showcase images to
// a single destination bucket.
type ObjectStore struct {
	client *storage.Client
	bucket string
}

func NewObjectStore(client *storage.Client, destinationBucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: destinationBucket}
}

// Download returns the full contents of gs://bucket/name.
func (s *ObjectStore) Download(ctx context.Context, bucket, name string) ([]byte, error) {
	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, name, err)
	}
	return data, nil
}

// Upload writes data to the destination bucket, replacing any existing object,
// and returns the object's public URL.
func (s *ObjectStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS write for %s: %w", name, err)
	}
	return PublicURL(s.bucket, name), nil
}

// MakePublic grants allUsers read access to an object in the destination bucket.
func (s *ObjectStore) MakePublic(ctx context.Context, name string) error {
	acl := s.client.Bucket(s.bucket).Object(name).ACL()
	if err := acl.Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return fmt.Errorf("failed to make gs://%s/%s public: %w", s.bucket, name, err)
	}
	return nil
}

// Delete removes gs://bucket/name. A missing object counts as deleted.
func (s *ObjectStore) Delete(ctx context.Context, bucket, name string) error {
	err := s.client.Bucket(bucket).Object(name).Delete(ctx)
	if isNotExist(err) {
		slog.Warn("Object already gone; nothing to delete.", "gcsBucket", bucket, "gcsObject", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", bucket, name, err)
	}
	return nil
}

// PublicURL is the anonymous-read URL of gs://bucket/name.
func PublicURL(bucket, name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", publicStorageHost, bucket, strings.Join(segments, "/"))
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
