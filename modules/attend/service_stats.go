package attend

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Darlykn/ClockIn/common/model"
)

// All statistics endpoints are GETs over slowly moving aggregates, so they go
// through the cached path.

// Summary returns aggregate attendance metrics for the filtered range.
func (s *attendService) Summary(ctx context.Context, filter StatsFilter) (*model.AttendanceSummary, error) {
	var summary model.AttendanceSummary
	if err := s.client.GetJSON(ctx, "/api/stats/summary", &summary, filter.params()); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Calendar returns per-day statuses for a single month. Zero year/month mean
// the current month.
func (s *attendService) Calendar(ctx context.Context, employeeID *uuid.UUID, year, month int) ([]model.DailyStatus, error) {
	params := map[string]string{}
	if employeeID != nil {
		params["employee_id"] = employeeID.String()
	}
	if year > 0 {
		params["year"] = strconv.Itoa(year)
	}
	if month > 0 {
		params["month"] = strconv.Itoa(month)
	}

	var days []model.DailyStatus
	if err := s.client.GetJSON(ctx, "/api/stats/calendar", &days, params); err != nil {
		return nil, err
	}
	return days, nil
}

// CalendarRange returns per-day statuses across an arbitrary date range.
func (s *attendService) CalendarRange(ctx context.Context, filter StatsFilter) ([]model.DailyStatus, error) {
	var days []model.DailyStatus
	if err := s.client.GetJSON(ctx, "/api/stats/calendar-range", &days, filter.params()); err != nil {
		return nil, err
	}
	return days, nil
}

// Trend returns the monthly attendance percentage over the last N months
// (server default 12).
func (s *attendService) Trend(ctx context.Context, employeeID *uuid.UUID, months int) ([]model.TrendPoint, error) {
	params := map[string]string{}
	if employeeID != nil {
		params["employee_id"] = employeeID.String()
	}
	if months > 0 {
		params["months"] = strconv.Itoa(months)
	}

	var points []model.TrendPoint
	if err := s.client.GetJSON(ctx, "/api/stats/trend", &points, params); err != nil {
		return nil, err
	}
	return points, nil
}

// Heatmap returns passage intensity per weekday/hour bucket.
func (s *attendService) Heatmap(ctx context.Context, filter StatsFilter) ([]model.HeatmapCell, error) {
	var cells []model.HeatmapCell
	if err := s.client.GetJSON(ctx, "/api/stats/heatmap", &cells, filter.params()); err != nil {
		return nil, err
	}
	return cells, nil
}

// TopLate returns the lateness leaderboard (admin/manager only).
func (s *attendService) TopLate(ctx context.Context, dateFrom, dateTo time.Time, limit int) ([]model.TopLateEmployee, error) {
	params := map[string]string{}
	addDateRange(params, dateFrom, dateTo)
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	var top []model.TopLateEmployee
	if err := s.client.GetJSON(ctx, "/api/stats/top-late", &top, params); err != nil {
		return nil, err
	}
	return top, nil
}

// Checkpoints returns traffic distribution across checkpoints.
func (s *attendService) Checkpoints(ctx context.Context, filter StatsFilter) ([]model.CheckpointLoad, error) {
	var load []model.CheckpointLoad
	if err := s.client.GetJSON(ctx, "/api/stats/checkpoints", &load, filter.params()); err != nil {
		return nil, err
	}
	return load, nil
}

// EmployeeLogs returns raw entry/exit events for one employee. Non-managers
// can only read their own.
func (s *attendService) EmployeeLogs(ctx context.Context, employeeID uuid.UUID, dateFrom, dateTo time.Time) ([]model.AttendanceLogEntry, error) {
	params := map[string]string{"employee_id": employeeID.String()}
	addDateRange(params, dateFrom, dateTo)

	var entries []model.AttendanceLogEntry
	if err := s.client.GetJSON(ctx, "/api/stats/employee-logs", &entries, params); err != nil {
		return nil, err
	}
	return entries, nil
}
