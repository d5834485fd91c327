package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestTaxonomyMatchersSurviveWrapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		match func(error) bool
	}{
		{name: "validation", err: Invalid("name", "is required"), match: IsValidation},
		{name: "authorization", err: Forbidden("identity/abc", "change password"), match: IsAuthorization},
		{name: "not found", err: NotFound("system", "abc"), match: IsNotFound},
		{name: "conflict", err: Conflict("system", "name already exists"), match: IsConflict},
		{name: "connector", err: Connector("sys-1", "ping", errors.New("refused")), match: IsConnector},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if !tc.match(tc.err) {
				t.Fatalf("matcher rejected %v", tc.err)
			}
			wrapped := fmt.Errorf("handling request: %w", tc.err)
			if !tc.match(wrapped) {
				t.Fatalf("matcher rejected wrapped %v", wrapped)
			}
		})
	}
}

func TestMatchersDoNotCrossCategories(t *testing.T) {
	t.Parallel()

	err := NotFound("system", "abc")
	if IsAuthorization(err) {
		t.Fatal("not-found must not match authorization")
	}
	if IsConflict(err) {
		t.Fatal("not-found must not match conflict")
	}
	if IsNotFound(Forbidden("identity/abc", "list accounts")) {
		t.Fatal("authorization must not match not-found")
	}
}

func TestValidationError_ListsEveryField(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Fields: []FieldError{
		{Field: "name", Message: "is required"},
		{Field: "kind", Message: "is unknown"},
	}}
	got := err.Error()
	want := "validation failed: name: is required; kind: is unknown"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNotFoundError_Message(t *testing.T) {
	t.Parallel()

	if got := NotFound("system", "abc").Error(); got != `system "abc" not found` {
		t.Fatalf("Error() = %q", got)
	}
	if got := (&NotFoundError{Entity: "system"}).Error(); got != "system not found" {
		t.Fatalf("Error() without id = %q", got)
	}
}

func TestConnectorError_TimeoutMessageAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("context deadline exceeded")
	err := ConnectorTimeout("sys-1", "read-schema", cause)

	if !err.Timeout {
		t.Fatal("Timeout = false, want true")
	}
	if got, want := err.Error(), "connector read-schema timed out: context deadline exceeded"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Fatal("ConnectorTimeout must unwrap to its cause")
	}
}
