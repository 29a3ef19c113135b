package core

import (
	"strconv"
	"time"
)

// Timestamp marks when an audit artifact was produced. It wraps
// time.Time so that domain records serialize to JSON as RFC 3339
// strings without each caller choosing its own format. The archive
// stores the unwrapped time.Time.
type Timestamp time.Time

// Now stamps the current wall-clock moment.
func Now() Timestamp { return Timestamp(time.Now()) }

// At wraps an existing time.Time, e.g. one read back from the archive.
func At(t time.Time) Timestamp { return Timestamp(t) }

// Time unwraps to the standard library type.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// IsZero reports a timestamp that was never stamped.
func (t Timestamp) IsZero() bool { return t.Time().IsZero() }

// Before orders two timestamps.
func (t Timestamp) Before(o Timestamp) bool { return t.Time().Before(o.Time()) }

// String renders RFC 3339 at second precision.
func (t Timestamp) String() string { return t.Time().Format(time.RFC3339) }

// MarshalJSON emits a quoted RFC 3339 string, nanoseconds preserved.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Time().Format(time.RFC3339Nano))), nil
}

// UnmarshalJSON accepts what MarshalJSON emits.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}
