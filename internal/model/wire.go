package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID is a backend identifier. The API emits ids either as a bare string or
// as Extended JSON {"$oid": "..."}; both decode to the plain hex string so
// ids compare cleanly as set and map keys.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(NormalizeID(s))
		return nil
	}

	var wrapped struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.OID != "" {
		*id = ID(wrapped.OID)
		return nil
	}

	// Unknown shape decodes to empty rather than failing the whole payload.
	*id = ""
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// NormalizeID collapses every identifier shape the backend emits to a plain
// hex string. Map keys arrive stringified, so a key may itself be a JSON
// object ({"$oid": "..."}) or an ObjectId("...") literal.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "{") {
		var wrapped struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal([]byte(s), &wrapped); err == nil && wrapped.OID != "" {
			return wrapped.OID
		}
	}
	if strings.HasPrefix(s, "ObjectId(") && strings.HasSuffix(s, ")") {
		inner := strings.Trim(s[len("ObjectId(") : len(s)-1], `"'`)
		if _, err := primitive.ObjectIDFromHex(inner); err == nil {
			return inner
		}
	}
	return s
}

// IsObjectID reports whether an id is a well-formed Mongo ObjectID hex string.
func IsObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// Time wraps time.Time with decoding for every timestamp shape the backend
// emits: RFC 3339 strings, epoch milliseconds, {"$date": <string|number>} and
// the legacy {"$date": {"$numberLong": "..."}}. Unparseable input decodes to
// the zero time instead of aborting the rendering pass.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Time = parseTimeString(s)
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		t.Time = time.UnixMilli(millis).UTC()
		return nil
	}

	var wrapped struct {
		Date json.RawMessage `json:"$date"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Date) > 0 {
		if err := json.Unmarshal(wrapped.Date, &s); err == nil {
			t.Time = parseTimeString(s)
			return nil
		}
		if err := json.Unmarshal(wrapped.Date, &millis); err == nil {
			t.Time = time.UnixMilli(millis).UTC()
			return nil
		}
		var legacy struct {
			NumberLong string `json:"$numberLong"`
		}
		if err := json.Unmarshal(wrapped.Date, &legacy); err == nil {
			if ms, err := strconv.ParseInt(legacy.NumberLong, 10, 64); err == nil {
				t.Time = time.UnixMilli(ms).UTC()
			}
		}
	}
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func parseTimeString(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", editableLayout} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

const editableLayout = "2006-01-02T15:04"

// Editable renders a timestamp as the yyyy-MM-ddTHH:mm string an editable
// datetime field expects, in the given location. Zero times render empty.
func (t Time) Editable(loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(editableLayout)
}

// ParseEditable parses a yyyy-MM-ddTHH:mm editable field value in the given
// location. The round trip through Editable never drifts across days because
// both directions use the same location.
func ParseEditable(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(editableLayout, s, loc)
}
