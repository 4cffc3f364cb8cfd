package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // valid UUIDv7
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // invalid hex
		"",                                     // empty
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B", // uppercase, ids are stored lowercase
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidStageCode(t *testing.T) {
	valid := []string{"admin_selection", "psychotest", "interview", "hr2", "ok"}
	invalid := []string{"", "a", "Interview", "2nd_interview", "final-decision", "has space", "_lead"}
	for _, code := range valid {
		if !IsValidStageCode(code) {
			t.Errorf("IsValidStageCode(%q) = false, want true", code)
		}
	}
	for _, code := range invalid {
		if IsValidStageCode(code) {
			t.Errorf("IsValidStageCode(%q) = true, want false", code)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "decision", Message: "invalid"},
		{Field: "score", Message: "required"},
	}
	got := errs.Error()
	want := "decision: invalid; score: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "decision", Message: "invalid"},
		{Field: "score", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"decision": "invalid", "score": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
