package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestWithFieldsCopiesAndMatchesSentinel(t *testing.T) {
	fields := map[string]string{"title": "title is required"}
	err := NewValidation(fields)

	if ErrValidation.Fields != nil {
		t.Fatal("expected sentinel to remain without fields")
	}
	if err.Fields["title"] != "title is required" {
		t.Fatalf("unexpected fields: %v", err.Fields)
	}

	fields["title"] = "mutated"
	if err.Fields["title"] != "title is required" {
		t.Fatal("expected fields to be copied")
	}

	wrapped := fmt.Errorf("section: %w", err)
	if !stdErrors.Is(wrapped, ErrValidation) {
		t.Fatal("expected wrapped copy to match the sentinel")
	}
	if stdErrors.Is(wrapped, ErrConflict) {
		t.Fatal("expected different code not to match")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
