package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"sulamboard/internal/backend"
	"sulamboard/internal/model"
)

// ExportService drives the data export and percentage leaderboard screens.
type ExportService struct {
	client *backend.Client
}

// NewExportService creates a new export service.
func NewExportService(client *backend.Client) *ExportService {
	return &ExportService{client: client}
}

// DefaultDateRange computes the export form's initial window in the user's
// timezone. Toronto weeks run Monday through now; everywhere else the week
// is the most recent Sunday through end of Thursday, extended to now once
// Thursday has passed.
func DefaultDateRange(now time.Time, tz string) (start, end time.Time) {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	local := now.In(loc)

	if tz == "America/Toronto" {
		back := int(local.Weekday()) - 1
		if back < 0 {
			back = 6
		}
		monday := local.AddDate(0, 0, -back)
		start = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
		return start, local
	}

	sunday := local.AddDate(0, 0, -int(local.Weekday()))
	start = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, loc)
	thursday := start.AddDate(0, 0, 5).Add(-time.Second)
	if local.After(thursday) {
		return start, local
	}
	return start, thursday
}

// ValidateExport checks an export request before it goes to the backend.
func ValidateExport(req *model.ExportRequest) error {
	if len(req.UserIDs) == 0 {
		return fmt.Errorf("%w: select at least one student", ErrValidation)
	}
	if len(req.DataTypes) == 0 {
		return fmt.Errorf("%w: select at least one data type", ErrValidation)
	}
	for _, dt := range req.DataTypes {
		if !model.KnownDataType(dt) {
			return fmt.Errorf("%w: unknown data type %q", ErrValidation, dt)
		}
	}
	if req.StartDate == "" || req.EndDate == "" {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	return nil
}

// LoadData validates the request and fetches the per-student metric rows.
func (s *ExportService) LoadData(ctx context.Context, token string, req *model.ExportRequest) (*model.ExportResponse, error) {
	if err := ValidateExport(req); err != nil {
		return nil, err
	}
	return s.client.ExportData(ctx, token, req)
}

// ExportTable is the flattened spreadsheet shape: one header row, one row
// per student with values in header order.
type ExportTable struct {
	Filename string
	Headers  []string
	Rows     []ExportTableRow
}

// ExportTableRow is one student line of the table.
type ExportTableRow struct {
	Name   string
	Values []float64
}

// BuildTable lays the loaded rows out in column order. A metric whose
// results carry _school/_home keys renders as a School and Home column
// pair, except qadeem_stars which is always a single column.
func BuildTable(resp *model.ExportResponse, dataTypes []string, start, end time.Time) *ExportTable {
	type column struct {
		header string
		key    string
	}
	columns := []column{}
	for _, dt := range dataTypes {
		label := model.DataTypeLabel(dt)
		if dt != "qadeem_stars" && hasSplitData(resp.Results, dt) {
			columns = append(columns,
				column{header: label + " (School)", key: dt + "_school"},
				column{header: label + " (Home)", key: dt + "_home"})
			continue
		}
		columns = append(columns, column{header: label, key: dt})
	}

	table := &ExportTable{
		Filename: fmt.Sprintf("Student_Data_%s_to_%s.xlsx",
			start.Format("1-2-2006"), end.Format("1-2-2006")),
		Headers: []string{"Student Name"},
	}
	for _, col := range columns {
		table.Headers = append(table.Headers, col.header)
	}
	for _, row := range resp.Results {
		line := ExportTableRow{Name: row.Name, Values: make([]float64, 0, len(columns))}
		for _, col := range columns {
			line.Values = append(line.Values, row.Data[col.key])
		}
		table.Rows = append(table.Rows, line)
	}
	return table
}

func hasSplitData(rows []model.ExportRow, dt string) bool {
	for _, row := range rows {
		if _, ok := row.Data[dt+"_school"]; ok {
			return true
		}
		if _, ok := row.Data[dt+"_home"]; ok {
			return true
		}
	}
	return false
}

// TeacherGroup is one percentage-leaderboard section: a school teacher's
// students with the group's average completion percent.
type TeacherGroup struct {
	Teacher        string                `json:"teacher"`
	AveragePercent float64               `json:"average_percent"`
	Students       []model.PercentageRow `json:"students"`
}

// Percentage fetches completion percentages and groups them by school
// teacher. Students without a teacher fall into a trailing Unassigned
// group; other groups sort by average percent descending.
func (s *ExportService) Percentage(ctx context.Context, token string, userIDs []string, startISO, endISO string) ([]TeacherGroup, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("%w: select at least one student", ErrValidation)
	}
	resp, err := s.client.PercentageLeaderboard(ctx, token, userIDs, startISO, endISO)
	if err != nil {
		return nil, err
	}
	return GroupByTeacher(resp.Results), nil
}

// GroupByTeacher builds the grouped percentage view from raw rows.
func GroupByTeacher(rows []model.PercentageRow) []TeacherGroup {
	byTeacher := map[string][]model.PercentageRow{}
	order := []string{}
	unassigned := []model.PercentageRow{}

	for _, row := range rows {
		teacher := strings.TrimSpace(row.SchoolTeacher)
		if teacher == "" {
			unassigned = append(unassigned, row)
			continue
		}
		if _, ok := byTeacher[teacher]; !ok {
			order = append(order, teacher)
		}
		byTeacher[teacher] = append(byTeacher[teacher], row)
	}

	groups := make([]TeacherGroup, 0, len(order)+1)
	for _, teacher := range order {
		groups = append(groups, makeGroup(teacher, byTeacher[teacher]))
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].AveragePercent > groups[j].AveragePercent
	})
	if len(unassigned) > 0 {
		groups = append(groups, makeGroup("Unassigned", unassigned))
	}
	return groups
}

func makeGroup(teacher string, students []model.PercentageRow) TeacherGroup {
	sort.SliceStable(students, func(i, j int) bool {
		return percentOrMinusOne(students[i].Percent) > percentOrMinusOne(students[j].Percent)
	})
	var sum float64
	count := 0
	for _, row := range students {
		if row.Percent != nil && !math.IsNaN(*row.Percent) {
			sum += *row.Percent
			count++
		}
	}
	avg := 0.0
	if count > 0 {
		avg = math.Round(sum/float64(count)*10) / 10
	}
	return TeacherGroup{Teacher: teacher, AveragePercent: avg, Students: students}
}

func percentOrMinusOne(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return -1
	}
	return *p
}
