package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/skillsenselab/taskflow/errors"
)

type sampleRequest struct {
	Name       string `json:"name" validate:"required"`
	Kind       string `json:"kind" validate:"omitempty,oneof=batch streaming"`
	Concurrent int    `json:"concurrent" validate:"min=1,max=64"`
}

func TestValidate_Passes(t *testing.T) {
	req := sampleRequest{Name: "nightly", Kind: "batch", Concurrent: 4}
	if err := Validate(req); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_ReportsAllFields(t *testing.T) {
	req := sampleRequest{Kind: "adhoc", Concurrent: 0}
	err := Validate(req)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("Validate() returned %T, want *errors.AppError", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("Code = %q, want %q", appErr.Code, errors.ErrCodeInvalidInput)
	}

	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok {
		t.Fatalf("Details[fields] = %T, want []FieldError", appErr.Details["fields"])
	}
	if len(fields) != 3 {
		t.Fatalf("got %d field errors, want 3: %v", len(fields), fields)
	}
	for _, want := range []string{"name", "kind", "concurrent"} {
		found := false
		for _, f := range fields {
			if f.Field == want {
				found = true
			}
		}
		if !found {
			t.Errorf("no field error for %q in %v", want, fields)
		}
	}
}

func TestValidate_UsesJSONTagNames(t *testing.T) {
	type tagged struct {
		DisplayName string `json:"display_name" validate:"required"`
	}
	err := Validate(tagged{})
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "display_name") {
		t.Errorf("error %q does not mention json field name", err.Error())
	}
}

func TestValidator_Fluent(t *testing.T) {
	v := New().
		Required("name", "  ").
		RequiredUUID("workflow_id", "not-a-uuid").
		Min("version", 0, 1).
		MaxLength("tag", strings.Repeat("x", 100), 64).
		OneOf("phase", "paused", []string{"planning", "running"})

	if !v.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	if got := len(v.Errors()); got != 5 {
		t.Fatalf("got %d errors, want 5: %v", got, v.Errors())
	}

	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("Validate() = nil, want AppError")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("Code = %q, want %q", appErr.Code, errors.ErrCodeInvalidInput)
	}
}

func TestValidator_CleanInput(t *testing.T) {
	v := New().
		Required("name", "release").
		RequiredUUID("workflow_id", uuid.New().String()).
		Min("version", 3, 1).
		OneOf("phase", "", []string{"planning"}).
		Custom(true, "tasks", "must not be empty")

	if v.HasErrors() {
		t.Fatalf("unexpected errors: %v", v.Errors())
	}
	if appErr := v.Validate(); appErr != nil {
		t.Fatalf("Validate() = %v, want nil", appErr)
	}
}

func TestValidator_NilUUIDRejected(t *testing.T) {
	v := New().RequiredUUID("workflow_id", uuid.Nil.String())
	if !v.HasErrors() {
		t.Fatal("nil UUID accepted")
	}
}
