package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/open-idm/open-idm/internal/apperr"
)

func TestTranslateErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  string
	}{
		{
			name:  "no rows becomes not-found",
			err:   pgx.ErrNoRows,
			check: apperr.IsNotFound,
			want:  "not-found",
		},
		{
			name:  "unique violation becomes conflict",
			err:   &pgconn.PgError{Code: "23505", ConstraintName: "object_classes_system_name_idx"},
			check: apperr.IsConflict,
			want:  "conflict",
		},
		{
			name:  "foreign key violation becomes conflict",
			err:   &pgconn.PgError{Code: "23503", ConstraintName: "role_systems_object_class_id_fkey"},
			check: apperr.IsConflict,
			want:  "conflict",
		},
		{
			name:  "wrapped foreign key violation becomes conflict",
			err:   fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503", ConstraintName: "role_systems_object_class_id_fkey"}),
			check: apperr.IsConflict,
			want:  "conflict",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := translateErr(tc.err, "object class", "abc")
			if !tc.check(got) {
				t.Fatalf("translateErr(%v) = %v, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestTranslateErr_PassesUnknownErrorsThrough(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	if got := translateErr(cause, "system", "abc"); !errors.Is(got, cause) {
		t.Fatalf("translateErr() = %v, want the original error", got)
	}
	if got := translateErr(&pgconn.PgError{Code: "40001"}, "system", "abc"); apperr.IsConflict(got) || apperr.IsNotFound(got) {
		t.Fatalf("translateErr(serialization failure) = %v, must not be translated", got)
	}
	if translateErr(nil, "system", "abc") != nil {
		t.Fatal("translateErr(nil) must be nil")
	}
}
