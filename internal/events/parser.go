// Package events turns event-source deliveries into ObjectEvents and decides
// which uploads belong to the showcase pipeline.
package events

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Lllllllleong/showcaseworker/internal/models"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Attribute keys set on notifications routed through Eventarc.
const (
	attrObjectID = "objectId"
	attrBucketID = "bucketId"
)

// ParsePush decodes a Pub/Sub push request body.
func ParsePush(body []byte) (models.ObjectEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return models.ObjectEvent{}, malformed("empty request body")
	}

	var env models.PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.ObjectEvent{}, malformed("could not parse envelope: %v", err)
	}
	if env.Message == nil {
		return models.ObjectEvent{}, malformed("envelope has no message")
	}
	return ParseMessage(env.Message)
}

// ParseMessage extracts the object reference from a push message. A "data" key
// wins over attributes whenever it is present, so a null or non-string data
// field is malformed rather than a fallback to attributes.
func ParseMessage(msg *models.PushMessage) (models.ObjectEvent, error) {
	if msg == nil {
		return models.ObjectEvent{}, malformed("nil message")
	}

	if len(msg.Data) > 0 {
		var encoded string
		if err := json.Unmarshal(msg.Data, &encoded); err != nil || bytes.Equal(bytes.TrimSpace(msg.Data), []byte("null")) {
			return models.ObjectEvent{}, malformed("message data is not a base64 string")
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return models.ObjectEvent{}, malformed("message data is not base64: %v", err)
		}
		return decodeObjectData(raw)
	}

	if msg.Attributes != nil {
		name, bucket := msg.Attributes[attrObjectID], msg.Attributes[attrBucketID]
		if name == "" || bucket == "" {
			return models.ObjectEvent{}, malformed("attributes missing %s or %s", attrObjectID, attrBucketID)
		}
		return models.ObjectEvent{Bucket: bucket, Name: name}, nil
	}

	return models.ObjectEvent{}, malformed("unrecognized message format")
}

// FromCloudEvent reads a GCS object-finalized CloudEvent.
func FromCloudEvent(e cloudevents.Event) (models.ObjectEvent, error) {
	return decodeObjectData(e.Data())
}

func decodeObjectData(raw []byte) (models.ObjectEvent, error) {
	var obj models.StorageObjectData
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.ObjectEvent{}, malformed("object payload is not JSON: %v", err)
	}
	if obj.Name == "" || obj.Bucket == "" {
		return models.ObjectEvent{}, malformed("object payload missing name or bucket")
	}
	return models.ObjectEvent{Bucket: obj.Bucket, Name: obj.Name}, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrMalformedEvent, fmt.Sprintf(format, args...))
}
