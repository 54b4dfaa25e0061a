package trail

import (
	"strings"

	"github.com/google/uuid"
)

const trackingPrefix = "trk_"

// NewTrackingID returns a globally unique, time-ordered correlation id that is
// short enough to read out to support.
func NewTrackingID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return trackingPrefix + strings.ReplaceAll(id.String(), "-", "")
}

// IsTrackingID reports whether s looks like a tracking id.
func IsTrackingID(s string) bool {
	if !strings.HasPrefix(s, trackingPrefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(s, trackingPrefix))
	return err == nil
}
