package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONUnmarshal is a small helper so callers don't import encoding/json
// alongside the model package everywhere.
func JSONUnmarshal(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

// ----------------------------------------------------------------------
// Auth flow shapes (POST /api/auth/...)
// ----------------------------------------------------------------------

// TokenResponse is the payload of a successful token issue or refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginResult is the outcome of the password step (and of first-login).
// Either the server issued tokens directly, or it handed back a temp token
// and asked for a 2FA setup/verify round.
type LoginResult struct {
	AccessToken       string `json:"access_token,omitempty"`
	TokenType         string `json:"token_type,omitempty"`
	Requires2FASetup  bool   `json:"requires_2fa_setup,omitempty"`
	Requires2FAVerify bool   `json:"requires_2fa_verify,omitempty"`
	TempToken         string `json:"temp_token,omitempty"`
}

// TOTPSetup carries a freshly generated TOTP secret and its QR code data URI.
type TOTPSetup struct {
	QRCodeURI string `json:"qr_code_uri"`
	Secret    string `json:"secret"`
}

// InviteValidation is the result of checking a first-login invite token.
type InviteValidation struct {
	Valid    bool   `json:"valid"`
	HasEmail bool   `json:"has_email"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// InviteToken wraps a generated first-login invite token.
type InviteToken struct {
	InviteToken string `json:"invite_token"`
}

// ----------------------------------------------------------------------
// Users (GET/POST/PATCH /api/users/...)
// ----------------------------------------------------------------------

// User is a ClockIn account as returned by the users API.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	FullName string    `json:"full_name,omitempty"`
	IsActive bool      `json:"is_active"`
	Has2FA   bool      `json:"has_2fa"`
	Email    string    `json:"email,omitempty"`
}

// UserPage is one page of a user listing.
type UserPage struct {
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Pages   int    `json:"pages"`
	Items   []User `json:"items"`
}

// EmployeeRef is the lightweight id/name pair used for dropdowns.
type EmployeeRef struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
}

// UserCreate is the body for creating an account.
type UserCreate struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Reset2FA *bool   `json:"reset_2fa,omitempty"`
}

// ----------------------------------------------------------------------
// Statistics (GET /api/stats/...)
// ----------------------------------------------------------------------

// AttendanceSummary aggregates attendance metrics over a date range.
// Average times come back as "HH:MM:SS" strings, or empty when there is no
// data in the range.
type AttendanceSummary struct {
	AttendancePct    float64 `json:"attendance_pct"`
	AvgArrivalTime   string  `json:"avg_arrival_time,omitempty"`
	AvgDepartureTime string  `json:"avg_departure_time,omitempty"`
	LateCount        int     `json:"late_count"`
	OvertimeCount    int     `json:"overtime_count"`
	AvgDurationHours float64 `json:"avg_duration_hours,omitempty"`
}

// DailyStatus is one calendar day: "normal", "late", "absent" or "weekend".
type DailyStatus struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// HeatmapCell is the entry intensity for one weekday/hour bucket.
type HeatmapCell struct {
	DayOfWeek int `json:"day_of_week"`
	Hour      int `json:"hour"`
	Intensity int `json:"intensity"`
}

// TopLateEmployee is one row of the lateness leaderboard.
type TopLateEmployee struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	FullName   string    `json:"full_name,omitempty"`
	LateCount  int       `json:"late_count"`
}

// CheckpointLoad is the event count for a single checkpoint.
type CheckpointLoad struct {
	Checkpoint string `json:"checkpoint"`
	Count      int    `json:"count"`
}

// TrendPoint is the attendance percentage for one month ("YYYY-MM").
type TrendPoint struct {
	Month         string  `json:"month"`
	AttendancePct float64 `json:"attendance_pct"`
}

// AttendanceLogEntry is a raw entry/exit event for one employee.
type AttendanceLogEntry struct {
	EventTime  time.Time `json:"event_time"`
	EventType  string    `json:"event_type"`
	Checkpoint string    `json:"checkpoint"`
}

// ----------------------------------------------------------------------
// File imports (POST/GET /api/files/...)
// ----------------------------------------------------------------------

// ImportResult summarizes a processed attendance Excel upload.
type ImportResult struct {
	Filename      string   `json:"filename"`
	Total         int      `json:"total"`
	InsertedCount int      `json:"inserted_count"`
	Skipped       int      `json:"skipped"`
	ErrorCount    int      `json:"error_count"`
	Errors        []string `json:"errors"`
	SkippedEvents []string `json:"skipped_events"`
	Status        string   `json:"status"`
}

// ImportHistoryEntry is one past upload. UploadedAt stays a string because
// the server emits naive ISO timestamps without an offset.
type ImportHistoryEntry struct {
	ID             int    `json:"id"`
	Filename       string `json:"filename"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
	UploadedByName string `json:"uploaded_by_name,omitempty"`
	UploadedAt     string `json:"uploaded_at"`
	Status         string `json:"status"`
	Logs           string `json:"logs,omitempty"`
}

// ImportHistoryPage is one page of import history.
type ImportHistoryPage struct {
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	Pages   int                  `json:"pages"`
	Items   []ImportHistoryEntry `json:"items"`
}
