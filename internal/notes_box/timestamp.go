package notes_box

import (
	"encoding/json"
	"reflect"
	"time"
)

// TimestampLayout is ISO 8601 in UTC with exactly three fraction digits,
// the format of JS Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a note time that remembers the text it was decoded from.
// Encoding writes that text back untouched, so timestamps written by other
// clients of the same store survive a read-modify-write.
type Timestamp struct {
	time.Time
	raw string
}

func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC().Truncate(time.Millisecond)
	return Timestamp{
		Time: t,
		raw:  t.Format(TimestampLayout),
	}
}

// String returns the stored text form.
func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	return t.Time.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON keeps any string as is. Text that is not a RFC 3339 time
// leaves the zero time but is still written back unchanged.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &json.UnmarshalTypeError{
			Value: "non-string timestamp",
			Type:  reflect.TypeOf(Timestamp{}),
		}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		parsed = time.Time{}
	}
	t.Time = parsed.UTC()
	t.raw = raw
	return nil
}
