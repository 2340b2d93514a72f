package models

import "encoding/json"

// These structs describe the wire shapes delivered by the event source.

// PushEnvelope is the body of a Pub/Sub push request.
type PushEnvelope struct {
	Message *PushMessage `json:"message"`
}

// PushMessage carries either a base64 data blob (standard notifications) or an
// attribute map (Eventarc-routed notifications). Data stays raw so a present
// "data" key, even null, can be told apart from an absent one.
type PushMessage struct {
	Data        json.RawMessage   `json:"data,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// StorageObjectData is the subset of a GCS object resource we read, both from
// the decoded Pub/Sub data blob and from CloudEvent payloads.
type StorageObjectData struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        string `json:"size,omitempty"`
}

// ObjectEvent is the normalized form of any delivery shape.
type ObjectEvent struct {
	Bucket string
	Name   string
}
