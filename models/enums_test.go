package models

import "testing"

func TestParseTaskStatus(t *testing.T) {
	for _, s := range []string{"DRAFT", "APPROVED", "IN_PROGRESS", "COMPLETED", "CANCELLED"} {
		got, err := ParseTaskStatus(s)
		if err != nil {
			t.Fatalf("ParseTaskStatus(%q): %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("ParseTaskStatus(%q) = %q", s, got)
		}
	}

	for _, s := range []string{"", "draft", "Approved", "DONE", "IN PROGRESS"} {
		if _, err := ParseTaskStatus(s); err == nil {
			t.Fatalf("ParseTaskStatus(%q) should fail", s)
		}
	}
}

func TestParseTaskActionType(t *testing.T) {
	for _, s := range []string{"NO_CHANGE", "REPAIRED", "REPLACED"} {
		if _, err := ParseTaskActionType(s); err != nil {
			t.Fatalf("ParseTaskActionType(%q): %v", s, err)
		}
	}
	if _, err := ParseTaskActionType("replaced"); err == nil {
		t.Fatal("lowercase action type should be rejected")
	}
}

func TestUserRoleLabel(t *testing.T) {
	cases := map[UserRole]string{
		UserRoleAdmin: "Admin",
		UserRoleOwner: "Owner",
		UserRoleStaff: "Staff",
		UserRole("?"): "Staff",
	}
	for role, want := range cases {
		if got := role.Label(); got != want {
			t.Fatalf("Label(%q) = %q, want %q", role, got, want)
		}
	}
}
