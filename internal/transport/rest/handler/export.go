package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"sulamboard/internal/export"
	"sulamboard/internal/model"
	"sulamboard/internal/service"
	"sulamboard/internal/transport/rest/middleware"
)

// ExportHandler serves the data export and percentage leaderboard screens.
type ExportHandler struct {
	exportSvc *service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportSvc *service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Defaults handles GET /v1/export/defaults: the form's initial date window
// for the tz query param's zone.
func (h *ExportHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	tz := r.URL.Query().Get("tz")
	start, end := service.DefaultDateRange(time.Now(), tz)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"start_date": model.Time{Time: start}.Editable(start.Location()),
		"end_date":   model.Time{Time: end}.Editable(end.Location()),
		"data_types": model.DataTypes,
	})
}

// LoadData handles POST /v1/export/data: the on-screen preview table.
func (h *ExportHandler) LoadData(w http.ResponseWriter, r *http.Request) {
	req, resp, err := h.loadData(r)
	if err != nil {
		handleError(w, err)
		return
	}

	start, end := parseRange(req)
	table := service.BuildTable(resp, req.DataTypes, start, end)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"headers": table.Headers,
		"rows":    table.Rows,
		"results": resp.Results,
	})
}

// Download handles POST /v1/export/xlsx: the same table as a spreadsheet
// attachment.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	req, resp, err := h.loadData(r)
	if err != nil {
		handleError(w, err)
		return
	}

	start, end := parseRange(req)
	table := service.BuildTable(resp, req.DataTypes, start, end)
	book, err := export.Workbook(table)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+table.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(book)
}

// Percentage handles POST /v1/export/percentage: completion percentages
// grouped by school teacher.
func (h *ExportHandler) Percentage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDs   []string `json:"user_ids"`
		StartDate string   `json:"start_date"`
		EndDate   string   `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := middleware.GetSession(r.Context())
	groups, err := h.exportSvc.Percentage(r.Context(), sess.Data.BackendToken, req.UserIDs, req.StartDate, req.EndDate)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (h *ExportHandler) loadData(r *http.Request) (*model.ExportRequest, *model.ExportResponse, error) {
	var req model.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, service.ErrValidation
	}

	sess := middleware.GetSession(r.Context())
	resp, err := h.exportSvc.LoadData(r.Context(), sess.Data.BackendToken, &req)
	if err != nil {
		return nil, nil, err
	}
	return &req, resp, nil
}

// parseRange recovers the request's date window for the filename; garbage
// falls back to today.
func parseRange(req *model.ExportRequest) (time.Time, time.Time) {
	start, err := parseISO(req.StartDate)
	if err != nil {
		start = time.Now()
	}
	end, err := parseISO(req.EndDate)
	if err != nil {
		end = time.Now()
	}
	return start, end
}

func parseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return model.ParseEditable(s, time.UTC)
}
