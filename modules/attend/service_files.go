package attend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Darlykn/ClockIn/common/model"
)

// UploadAttendance uploads an attendance Excel export (.xlsx/.xls) and
// returns the parse/import summary (admin only).
func (s *attendService) UploadAttendance(ctx context.Context, filename string, file io.Reader) (*model.ImportResult, error) {
	data, err := s.client.PostMultipart(ctx, "/api/files/upload", "file", filename, file)
	if err != nil {
		return nil, err
	}

	var result model.ImportResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode import result: %w", err)
	}
	return &result, nil
}

// ImportHistory lists past uploads, newest first (admin only).
func (s *attendService) ImportHistory(ctx context.Context, page, perPage int) (*model.ImportHistoryPage, error) {
	params := map[string]string{}
	addPagination(params, page, perPage)

	var history model.ImportHistoryPage
	if err := s.client.GetJSONFresh(ctx, "/api/files/history", &history, params); err != nil {
		return nil, err
	}
	return &history, nil
}
