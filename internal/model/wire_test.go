package model

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare string", `"64a1b2c3d4e5f6a7b8c9d0e1"`, "64a1b2c3d4e5f6a7b8c9d0e1"},
		{"wrapped oid", `{"$oid":"64a1b2c3d4e5f6a7b8c9d0e1"}`, "64a1b2c3d4e5f6a7b8c9d0e1"},
		{"unknown shape", `{"weird":1}`, ""},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if id.String() != tt.want {
				t.Errorf("got %q, want %q", id, tt.want)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"64a1b2c3d4e5f6a7b8c9d0e1", "64a1b2c3d4e5f6a7b8c9d0e1"},
		{`{"$oid":"64a1b2c3d4e5f6a7b8c9d0e1"}`, "64a1b2c3d4e5f6a7b8c9d0e1"},
		{`ObjectId("64a1b2c3d4e5f6a7b8c9d0e1")`, "64a1b2c3d4e5f6a7b8c9d0e1"},
		{"plain-id", "plain-id"},
		{"  spaced  ", "spaced"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsObjectID(t *testing.T) {
	if !IsObjectID("64a1b2c3d4e5f6a7b8c9d0e1") {
		t.Error("valid hex rejected")
	}
	if IsObjectID("not-an-oid") {
		t.Error("invalid hex accepted")
	}
}

func TestTimeUnmarshal(t *testing.T) {
	ref := time.Date(2025, 4, 19, 4, 33, 0, 0, time.UTC)
	millis := ref.UnixMilli()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"iso string", `"2025-04-19T04:33:00Z"`, ref},
		{"iso with millis", `"2025-04-19T04:33:00.000Z"`, ref},
		{"epoch millis", `1745987580000`, time.UnixMilli(1745987580000).UTC()},
		{"wrapped string", `{"$date":"2025-04-19T04:33:00Z"}`, ref},
		{"wrapped millis", `{"$date":1745987580000}`, time.UnixMilli(1745987580000).UTC()},
		{"legacy numberLong", `{"$date":{"$numberLong":"` + formatMillis(millis) + `"}}`, ref},
		{"null", `null`, time.Time{}},
		{"garbage", `"not a date"`, time.Time{}},
		{"unknown object", `{"nope":true}`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Time
			if err := json.Unmarshal([]byte(tt.in), &ts); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !ts.Time.Equal(tt.want) {
				t.Errorf("got %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

func TestEditableRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// Just before midnight local: the classic off-by-one-day hazard.
	ts := Time{time.Date(2025, 4, 19, 3, 59, 0, 0, time.UTC)}
	editable := ts.Editable(loc) // 2025-04-18T23:59 in Toronto

	parsed, err := ParseEditable(editable, loc)
	if err != nil {
		t.Fatalf("parse editable: %v", err)
	}
	if !parsed.Equal(ts.Time) {
		t.Errorf("round trip drifted: %v -> %q -> %v", ts.Time, editable, parsed)
	}
	if editable != "2025-04-18T23:59" {
		t.Errorf("editable rendering: got %q", editable)
	}
}

func TestTimeMarshal(t *testing.T) {
	zero, _ := json.Marshal(Time{})
	if string(zero) != "null" {
		t.Errorf("zero time should marshal null, got %s", zero)
	}
	ts := Time{time.Date(2025, 4, 19, 4, 33, 0, 0, time.UTC)}
	b, _ := json.Marshal(ts)
	if string(b) != `"2025-04-19T04:33:00Z"` {
		t.Errorf("got %s", b)
	}
}
