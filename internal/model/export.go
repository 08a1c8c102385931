package model

import "encoding/json"

// DataType is one exportable metric.
type DataType struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DataTypes is the export metric catalog, in display order.
var DataTypes = []DataType{
	{ID: "new_pages", Label: "New Pages"},
	{ID: "qadeem_pages", Label: "Qadeem Pages"},
	{ID: "tikrar_pages", Label: "Tikrar Pages"},
	{ID: "qadeem_stars", Label: "Qadeem Stars (days completed qadeem)"},
	{ID: "hasanat", Label: "Hasanat"},
	{ID: "cheques_abrar", Label: "Cheques (# of sullams to 55)"},
}

// DataTypeLabel returns the display label for a metric id, falling back to
// the id itself for metrics the catalog does not know.
func DataTypeLabel(id string) string {
	for _, dt := range DataTypes {
		if dt.ID == id {
			return dt.Label
		}
	}
	return id
}

// KnownDataType reports whether a metric id is in the catalog.
func KnownDataType(id string) bool {
	for _, dt := range DataTypes {
		if dt.ID == id {
			return true
		}
	}
	return false
}

// SchoolPeriod is one weekly window during which activity counts as school
// time rather than home time.
type SchoolPeriod struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ExportRequest is the body for the export data endpoint.
type ExportRequest struct {
	UserIDs       []string       `json:"user_ids"`
	DataTypes     []string       `json:"data_types"`
	StartDate     string         `json:"start_date"`
	EndDate       string         `json:"end_date"`
	SchoolPeriods []SchoolPeriod `json:"school_periods"`
	UserTimezone  string         `json:"user_timezone"`
}

// ExportRow is one student's result. Data keys are metric ids, optionally
// suffixed _school/_home when the request carried school periods.
type ExportRow struct {
	UserID ID                 `json:"user_id"`
	Name   string             `json:"name"`
	Data   map[string]float64 `json:"data"`
}

// UnmarshalJSON tolerates a missing or malformed data object by leaving the
// row with an empty metric map.
func (r *ExportRow) UnmarshalJSON(b []byte) error {
	type alias struct {
		UserID ID              `json:"user_id"`
		Name   string          `json:"name"`
		Data   json.RawMessage `json:"data"`
	}
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	r.UserID = a.UserID
	r.Name = a.Name
	r.Data = map[string]float64{}
	if len(a.Data) > 0 {
		_ = json.Unmarshal(a.Data, &r.Data)
	}
	return nil
}

// ExportResponse is the export data endpoint's payload.
type ExportResponse struct {
	Results []ExportRow `json:"results"`
}

// PercentageRow is one row of the percentage leaderboard endpoint. Percent
// is null for students with no measurable window.
type PercentageRow struct {
	UserID        ID       `json:"user_id"`
	Name          string   `json:"name"`
	Percent       *float64 `json:"percent"`
	SchoolTeacher string   `json:"schoolteacher"`
}

// PercentageResponse is the percentage leaderboard endpoint's payload.
type PercentageResponse struct {
	Results []PercentageRow `json:"results"`
}
