package services

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorHelpersCarryStatus(t *testing.T) {
	cases := []struct {
		name    string
		err     *AppError
		code    int
		message string
	}{
		{"not authenticated", errNotAuthenticated(), http.StatusUnauthorized, "you must be logged in"},
		{"forbidden", errForbidden("you do not have access to this org"), http.StatusForbidden, "you do not have access to this org"},
		{"not found", errNotFound("file not found"), http.StatusNotFound, "file not found"},
		{"internal", errInternal("failed to list files", nil), http.StatusInternalServerError, "failed to list files"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.HTTPCode != tc.code {
				t.Fatalf("expected HTTP %d, got %d", tc.code, tc.err.HTTPCode)
			}
			if tc.err.Error() != tc.message {
				t.Fatalf("unexpected message: %q", tc.err.Error())
			}
			if tc.err.Unwrap() != nil {
				t.Fatalf("expected no cause")
			}
		})
	}
}

func TestErrInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	var err error = errInternal("failed to trash file", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through errors.Is")
	}
	if err.Error() != "failed to trash file: connection reset" {
		t.Fatalf("unexpected error text: %q", err.Error())
	}

	appErr, ok := expectAppError(err, http.StatusInternalServerError)
	if !ok {
		t.Fatalf("expected HTTP 500 AppError, got %v", err)
	}
	if appErr.Data != nil {
		t.Fatalf("expected no data on internal errors")
	}
}

func TestSizeLimitErrorKeepsData(t *testing.T) {
	data := map[string]int64{"max_file_size": 4, "file_size": 9}
	err := newAppErrorWithData(http.StatusRequestEntityTooLarge, "file exceeds the size limit", data, nil)

	if err.HTTPCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected HTTP 413, got %d", err.HTTPCode)
	}
	got, ok := err.Data.(map[string]int64)
	if !ok || got["max_file_size"] != 4 || got["file_size"] != 9 {
		t.Fatalf("expected size details to be preserved, got %#v", err.Data)
	}
}

func TestNilAppErrorIsEmpty(t *testing.T) {
	var appErr *AppError
	if appErr.Error() != "" || appErr.Unwrap() != nil {
		t.Fatalf("expected nil AppError to be empty")
	}
}
