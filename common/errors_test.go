package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Darlykn/ClockIn/common"
)

func TestIsAuthFailure(t *testing.T) {
	unauthorized := &common.HTTPError{StatusCode: http.StatusUnauthorized}
	if !common.IsAuthFailure(unauthorized) {
		t.Error("401 should classify as auth failure")
	}
	if !common.IsAuthFailure(fmt.Errorf("wrapped: %w", unauthorized)) {
		t.Error("wrapped 401 should classify as auth failure")
	}

	forbidden := &common.HTTPError{StatusCode: http.StatusForbidden}
	if common.IsAuthFailure(forbidden) {
		t.Error("403 is authorization, not an expired token")
	}
	if common.IsAuthFailure(errors.New("connection refused")) {
		t.Error("network errors are not auth failures")
	}
}

func TestTaxonomyIsDisjoint(t *testing.T) {
	// a refresh that died on a 401 from the refresh endpoint is terminal:
	// it must classify as a failed refresh only, never as a plain auth
	// failure a caller might try to recover from
	refreshErr := &common.RefreshError{Err: &common.HTTPError{StatusCode: http.StatusUnauthorized}}

	if !common.IsRefreshFailed(refreshErr) {
		t.Error("expected refresh-failed classification")
	}
	if common.IsAuthFailure(refreshErr) {
		t.Error("a failed refresh must not also classify as an auth failure")
	}
	if common.IsAuthFailure(fmt.Errorf("wrapped: %w", refreshErr)) {
		t.Error("wrapping must not change the classification")
	}
}

func TestIsRefreshFailed(t *testing.T) {
	cause := &common.HTTPError{StatusCode: http.StatusUnauthorized}
	refreshErr := &common.RefreshError{Err: cause}

	if !common.IsRefreshFailed(refreshErr) {
		t.Error("RefreshError should classify as refresh failed")
	}
	if !common.IsRefreshFailed(fmt.Errorf("wrapped: %w", refreshErr)) {
		t.Error("wrapped RefreshError should classify as refresh failed")
	}
	if common.IsRefreshFailed(cause) {
		t.Error("a bare 401 is not a failed refresh")
	}

	// the cause stays reachable for callers that care
	var httpErr *common.HTTPError
	if !errors.As(refreshErr, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Error("expected to unwrap the underlying HTTPError")
	}
}
