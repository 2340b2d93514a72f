package models

import "errors"

var (
	// ErrMalformedEvent is returned when a delivery cannot be decoded into an ObjectEvent.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrDownload is returned when the source object cannot be fetched.
	ErrDownload = errors.New("download failed")

	// ErrTransform is returned when an image transform fails.
	ErrTransform = errors.New("transform failed")

	// ErrUpload is returned when the showcase image cannot be stored or published.
	ErrUpload = errors.New("upload failed")

	// ErrPersistence is returned when a document write fails.
	ErrPersistence = errors.New("persistence failed")
)
