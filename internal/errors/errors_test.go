package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := New(ErrCategoryConflict, CodeDuplicateToken, "token already exists")
	want := "[CONFLICT:DUPLICATE_TOKEN] token already exists"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestError_FormatWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCategoryStore, CodePutFailed, "unable to create site", cause)
	want := "[STORE:PUT_FAILED] unable to create site: connection refused"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewStoreError(CodeScanFailed, "scan aborted", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause in the chain")
	}
}

func TestError_IsMatchesCategoryAndCode(t *testing.T) {
	a := NewNotFoundError(CodeInvalidSiteToken, "no such site")
	b := NewNotFoundError(CodeInvalidSiteToken, "different message")
	c := NewNotFoundError(CodeInvalidZoneToken, "no such zone")

	if !errors.Is(a, b) {
		t.Error("errors with same category and code should match")
	}
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestError_IsThroughWrapping(t *testing.T) {
	inner := NewConflictError(CodeDeviceAlreadyAssigned, "device busy")
	outer := fmt.Errorf("create assignment: %w", inner)
	if !errors.Is(outer, NewConflictError(CodeDeviceAlreadyAssigned, "")) {
		t.Error("expected match through fmt.Errorf wrapping")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewCorruptError(CodeUnexpectedColumnCount, "found 2 body columns")
	if GetCategory(err) != ErrCategoryCorrupt {
		t.Errorf("got category %q", GetCategory(err))
	}
	if GetCode(err) != CodeUnexpectedColumnCount {
		t.Errorf("got code %q", GetCode(err))
	}

	plain := errors.New("plain")
	if GetCategory(plain) != "" || GetCode(plain) != "" {
		t.Error("plain errors should yield empty category and code")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewNotFoundError(CodeInvalidHardwareID, "unknown device")) {
		t.Error("expected not-found category to be detected")
	}
	if IsNotFound(NewConflictError(CodeDuplicateToken, "dup")) {
		t.Error("conflict should not be reported as not found")
	}
}
