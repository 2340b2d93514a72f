package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

const (
	remoteImageField    = "image_file"
	maxErrorBodyExcerpt = 512
)

// maxRemoteResponse is the largest response body accepted from a provider.
var maxRemoteResponse int64 = 64 << 20

// RemoteTransform posts the image to an HTTP API as multipart form data and
// returns the response body. It speaks the ClipDrop request shape: the image
// goes in the "image_file" part and the key in the x-api-key header.
type RemoteTransform struct {
	Provider string
	Endpoint string
	APIKey   string
	Client   *http.Client

	// Fields, when set, computes extra form fields from the input image.
	Fields func(img []byte) (map[string]string, error)
}

func (t *RemoteTransform) Name() string { return t.Provider }

func (t *RemoteTransform) Apply(ctx context.Context, img []byte) ([]byte, error) {
	body, contentType, err := t.buildForm(img)
	if err != nil {
		return nil, Wrap(t.Provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, body)
	if err != nil {
		return nil, Wrap(t.Provider, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-key", t.APIKey)

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, Wrap(t.Provider, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyExcerpt))
		return nil, Wrap(t.Provider, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(excerpt)))
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse+1))
	if err != nil {
		return nil, Wrap(t.Provider, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(out)) > maxRemoteResponse {
		return nil, Wrap(t.Provider, fmt.Errorf("response body exceeds %d bytes", maxRemoteResponse))
	}
	if len(out) == 0 {
		return nil, Wrap(t.Provider, fmt.Errorf("empty response body"))
	}

	png, err := ensurePNG(out)
	if err != nil {
		return nil, Wrap(t.Provider, err)
	}
	return png, nil
}

func (t *RemoteTransform) buildForm(img []byte) (*bytes.Buffer, string, error) {
	var fields map[string]string
	if t.Fields != nil {
		f, err := t.Fields(img)
		if err != nil {
			return nil, "", err
		}
		fields = f
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(remoteImageField, "image.png")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// NewRemoteBackgroundRemover returns a RemoteTransform for a background
// removal endpoint.
func NewRemoteBackgroundRemover(endpoint, apiKey string, client *http.Client) *RemoteTransform {
	return &RemoteTransform{
		Provider: "remote-background-remover",
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   client,
	}
}

// NewRemoteUpscaler returns a RemoteTransform for an upscaling endpoint that
// expects target_width and target_height fields.
func NewRemoteUpscaler(endpoint, apiKey string, factor, maxEdge int, client *http.Client) *RemoteTransform {
	return &RemoteTransform{
		Provider: "remote-upscaler",
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   client,
		Fields: func(img []byte) (map[string]string, error) {
			cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
			if err != nil {
				return nil, fmt.Errorf("failed to read image dimensions: %w", err)
			}
			w, h := targetSize(cfg.Width, cfg.Height, factor, maxEdge)
			return map[string]string{
				"target_width":  strconv.Itoa(w),
				"target_height": strconv.Itoa(h),
			}, nil
		},
	}
}
