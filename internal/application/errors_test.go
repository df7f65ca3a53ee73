package application

import "testing"

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := newValidationError("summary", "summary is required")
	if got := withFields.Error(); got != "validation failed: summary is required" {
		t.Fatalf("unexpected message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !newValidationError("field", "bad").HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to win, got %q", got)
	}

	other := newValidationError("second", "another")
	base.merge(other)
	base.merge(nil)

	issues := base.Issues()
	if len(issues) != 2 || issues[0] != "value" || issues[1] != "another" {
		t.Fatalf("expected ordered issues, got %v", issues)
	}
}
