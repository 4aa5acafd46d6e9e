package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPrivilegeError(t *testing.T) {
	if !isPrivilegeError(&pgconn.PgError{Code: "42501"}) {
		t.Fatal("SQLSTATE 42501 must classify as a privilege error")
	}
	if !isPrivilegeError(fmt.Errorf("create extension: %w", &pgconn.PgError{Code: "42501"})) {
		t.Fatal("wrapped 42501 must classify as a privilege error")
	}
	if isPrivilegeError(&pgconn.PgError{Code: "42P01"}) {
		t.Fatal("other SQLSTATEs are not privilege errors")
	}
	if isPrivilegeError(errors.New("boom")) {
		t.Fatal("plain errors are not privilege errors")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusApplied:        "applied",
		StatusAlreadyApplied: "already-applied",
		StatusSkipped:        "skipped",
		StatusFailed:         "failed",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestStepOrder(t *testing.T) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		index[s.Name] = i
	}

	// Tables must exist before the legacy migration writes into them, and
	// repair must run after migration so migrated rows are covered.
	if index["convective_outlooks_table"] > index["legacy_spc_outlooks"] ||
		index["fire_outlooks_table"] > index["legacy_spc_outlooks"] {
		t.Fatal("outlook tables must be ensured before legacy migration")
	}
	if index["legacy_spc_outlooks"] > index["outlook_row_repair"] {
		t.Fatal("row repair must follow legacy migration")
	}
	if index["postgis_extension"] != 0 {
		t.Fatal("spatial extension must come first")
	}
}
