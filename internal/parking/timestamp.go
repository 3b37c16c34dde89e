package parking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// LocalLayout is the zone-less layout the parking API uses for timestamps and query params.
const LocalLayout = "2006-01-02T15:04:05"

var zone atomic.Pointer[time.Location]

// SetLocation sets the zone that zone-less API timestamps are read in. Nil
// restores time.Local.
func SetLocation(loc *time.Location) {
	zone.Store(loc)
}

// Location reports the zone used for zone-less timestamps.
func Location() *time.Location {
	if loc := zone.Load(); loc != nil {
		return loc
	}
	return time.Local
}

// Timestamp decodes the API's timestamps, which arrive either as RFC3339 or as
// zone-less local times. A null or empty value decodes to the zero time.
type Timestamp struct {
	time.Time
}

func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	for _, layout := range []string{LocalLayout, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if parsed, err := time.ParseInLocation(layout, value, Location()); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: unsupported format %q", value)
}
