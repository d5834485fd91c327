package registry

import "testing"

type testDefinition struct {
	kind string
}

func (d *testDefinition) Kind() string                     { return d.kind }
func (d *testDefinition) DisplayName() string              { return d.kind }
func (d *testDefinition) Framework() string                { return "test" }
func (d *testDefinition) DecodeConfig([]byte) (any, error) { return nil, nil }
func (d *testDefinition) ValidateConfig(any) error         { return nil }
func (d *testDefinition) IsConfigured(any) bool            { return true }
func (d *testDefinition) SourceName(any) string            { return "" }
func (d *testDefinition) NewClient(any) (Client, error)    { return nil, nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(&testDefinition{kind: "Okta"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, ok := reg.Get("okta"); !ok {
		t.Fatal("Get(okta) not found")
	}
	if _, ok := reg.Get("  OKTA  "); !ok {
		t.Fatal("Get must normalize the kind")
	}
	if _, ok := reg.Get("ldap"); ok {
		t.Fatal("Get(ldap) found an unregistered kind")
	}
}

func TestRegistry_RejectsDuplicatesAndEmptyKinds(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(&testDefinition{kind: "okta"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(&testDefinition{kind: "OKTA"}); err == nil {
		t.Fatal("Register(duplicate) expected error")
	}
	if err := reg.Register(&testDefinition{kind: "  "}); err == nil {
		t.Fatal("Register(empty kind) expected error")
	}
}

func TestRegistry_AllKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, kind := range []string{"okta", "aws-idc", "vault"} {
		if err := reg.Register(&testDefinition{kind: kind}); err != nil {
			t.Fatalf("Register(%s) error = %v", kind, err)
		}
	}

	defs := reg.All()
	if len(defs) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(defs))
	}
	for i, want := range []string{"okta", "aws-idc", "vault"} {
		if defs[i].Kind() != want {
			t.Fatalf("All()[%d] = %q, want %q", i, defs[i].Kind(), want)
		}
	}
}

func TestKey_FullName(t *testing.T) {
	t.Parallel()

	if got := (Key{Kind: " Okta ", Name: "Acme"}).FullName(); got != "okta:acme" {
		t.Fatalf("FullName() = %q, want okta:acme", got)
	}
}

func TestLockKey_Distinguishes(t *testing.T) {
	t.Parallel()

	if LockKey("okta", "acme") != LockKey(" OKTA ", "Acme") {
		t.Fatal("LockKey must normalize case and whitespace")
	}
	if LockKey("okta", "acme") == LockKey("okta", "other") {
		t.Fatal("distinct names must produce distinct keys")
	}
}
