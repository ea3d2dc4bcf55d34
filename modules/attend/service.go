package attend

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Darlykn/ClockIn/common/model"
)

// AttendService is the higher-level interface over the ClockIn API: account
// management, attendance statistics and Excel imports. Every call goes
// through the request pipeline, so token refresh is invisible here.
type AttendService interface {
	// Users
	CreateUser(ctx context.Context, body model.UserCreate) (*model.User, error)
	ListUsers(ctx context.Context, search string, page, perPage int) (*model.UserPage, error)
	ListEmployees(ctx context.Context) ([]model.EmployeeRef, error)
	Me(ctx context.Context) (*model.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, body model.UserUpdate) (*model.User, error)
	GenerateInvite(ctx context.Context, userID uuid.UUID) (*model.InviteToken, error)

	// Statistics
	Summary(ctx context.Context, filter StatsFilter) (*model.AttendanceSummary, error)
	Calendar(ctx context.Context, employeeID *uuid.UUID, year, month int) ([]model.DailyStatus, error)
	CalendarRange(ctx context.Context, filter StatsFilter) ([]model.DailyStatus, error)
	Trend(ctx context.Context, employeeID *uuid.UUID, months int) ([]model.TrendPoint, error)
	Heatmap(ctx context.Context, filter StatsFilter) ([]model.HeatmapCell, error)
	TopLate(ctx context.Context, dateFrom, dateTo time.Time, limit int) ([]model.TopLateEmployee, error)
	Checkpoints(ctx context.Context, filter StatsFilter) ([]model.CheckpointLoad, error)
	EmployeeLogs(ctx context.Context, employeeID uuid.UUID, dateFrom, dateTo time.Time) ([]model.AttendanceLogEntry, error)

	// File imports
	UploadAttendance(ctx context.Context, filename string, file io.Reader) (*model.ImportResult, error)
	ImportHistory(ctx context.Context, page, perPage int) (*model.ImportHistoryPage, error)
}

// StatsFilter narrows a statistics query. The zero value means "server
// defaults": own data (or all employees for managers) over the default range.
type StatsFilter struct {
	EmployeeID *uuid.UUID
	DateFrom   time.Time
	DateTo     time.Time
}

func (f StatsFilter) params() map[string]string {
	params := map[string]string{}
	if f.EmployeeID != nil {
		params["employee_id"] = f.EmployeeID.String()
	}
	addDateRange(params, f.DateFrom, f.DateTo)
	return params
}

const isoDate = "2006-01-02"

func addDateRange(params map[string]string, from, to time.Time) {
	if !from.IsZero() {
		params["date_from"] = from.Format(isoDate)
	}
	if !to.IsZero() {
		params["date_to"] = to.Format(isoDate)
	}
}

func addPagination(params map[string]string, page, perPage int) {
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if perPage > 0 {
		params["per_page"] = strconv.Itoa(perPage)
	}
}

// attendService is the concrete implementation that uses AttendClient.
type attendService struct {
	client AttendClient
}

// NewAttendService constructs an AttendService.
func NewAttendService(client AttendClient) AttendService {
	return &attendService{
		client: client,
	}
}
