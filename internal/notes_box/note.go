package notes_box

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Note struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	CreatedAt Timestamp  `json:"createdAt"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

var (
	errNilNoteValue  = errors.New("nil note value")
	errNotNoteObject = errors.New("value is not a note object")
)

// decodeNote normalizes a value read from the store into a Note. Stores hand
// values back either as the raw encoded string or already decoded, every read
// path goes through here.
func decodeNote(raw any) (*Note, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, errNilNoteValue
	case *Note:
		if v == nil {
			return nil, errNilNoteValue
		}
		n := *v
		return &n, nil
	case Note:
		return &v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case map[string]any:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("re-encode note map: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported note value type %T", raw)
	}

	note := &Note{}
	if err := json.Unmarshal(data, note); err != nil {
		// valid JSON of the wrong shape
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s", errNotNoteObject, err)
		}
		return nil, fmt.Errorf("unmarshal note: %w", err)
	}
	return note, nil
}

func encodeNote(note *Note) (string, error) {
	noteJson, err := json.Marshal(note)
	if err != nil {
		return "", err
	}
	return string(noteJson), nil
}
