package events

import (
	"strings"

	"github.com/Lllllllleong/showcaseworker/internal/models"
)

// RawUploadsPrefix is the folder this worker owns inside the bucket.
const RawUploadsPrefix = "raw-uploads/"

// ResolveJobKey maps raw-uploads/{userID}/{characterID}/{file} to a JobKey.
// The boolean is false when the object is not ours to process; that is a skip,
// not an error.
func ResolveJobKey(name string) (models.JobKey, bool) {
	if !strings.HasPrefix(name, RawUploadsPrefix) {
		return models.JobKey{}, false
	}

	parts := strings.Split(name, "/")
	if len(parts) < 4 {
		return models.JobKey{}, false
	}

	// An empty segment cannot address a document.
	if parts[1] == "" || parts[2] == "" {
		return models.JobKey{}, false
	}

	return models.JobKey{UserID: parts[1], CharacterID: parts[2]}, true
}
